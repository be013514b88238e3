package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/lib/pq"
)

// GetActiveDeals returns deals whose active flag is set and whose time
// window contains the given instant, restricted to the requested scope
// kinds. Targets and cart conditions are loaded with the deal.
func (r *Repository) GetActiveDeals(ctx context.Context, at time.Time, kinds ...domain.DealKind) ([]domain.Deal, error) {
	kindStrs := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrs[i] = string(k)
	}

	query := `
		SELECT d.id, d.name, d.amount, d.discount_type, d.deal_kind,
		       d.starts_at, d.ends_at, d.active, d.conditions,
		       COALESCE(array_agg(t.target_id) FILTER (WHERE t.target_id IS NOT NULL), '{}')
		FROM deals d
		LEFT JOIN deal_targets t ON t.deal_id = d.id
		WHERE d.active
		  AND d.starts_at <= $1
		  AND d.ends_at >= $1
		  AND d.deal_kind = ANY($2)
		GROUP BY d.id
		ORDER BY d.id
	`

	rows, err := r.db.QueryContext(ctx, query, at, pq.Array(kindStrs))
	if err != nil {
		return nil, fmt.Errorf("query active deals: %w", err)
	}
	defer rows.Close()

	var deals []domain.Deal
	for rows.Next() {
		var (
			deal           domain.Deal
			kind           domain.DealKind
			conditionsJSON []byte
			targetIDs      []int64
		)
		if err := rows.Scan(
			&deal.ID,
			&deal.Name,
			&deal.Amount,
			&deal.Type,
			&kind,
			&deal.StartsAt,
			&deal.EndsAt,
			&deal.Active,
			&conditionsJSON,
			pq.Array(&targetIDs),
		); err != nil {
			return nil, fmt.Errorf("scan deal row: %w", err)
		}

		var conditions *domain.CartConditions
		if len(conditionsJSON) > 0 {
			conditions = &domain.CartConditions{}
			if err := json.Unmarshal(conditionsJSON, conditions); err != nil {
				return nil, fmt.Errorf("unmarshal deal %d conditions: %w", deal.ID, err)
			}
		}

		scope, err := domain.ScopeFor(kind, targetIDs, conditions)
		if err != nil {
			return nil, fmt.Errorf("deal %d: %w", deal.ID, err)
		}
		deal.Scope = scope
		deals = append(deals, deal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return deals, nil
}
