package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/lib/pq"
)

// GetLineItem resolves a subproduct to a pricing line item with a zero
// quantity; callers set the quantity from the cart or request.
func (r *Repository) GetLineItem(ctx context.Context, subproductID int64) (*domain.LineItem, error) {
	query := `
		SELECT sp.id, sp.product_id, p.name, sp.variant, sp.price, sp.stock, p.brand_id,
		       COALESCE(array_agg(pc.category_id) FILTER (WHERE pc.category_id IS NOT NULL), '{}')
		FROM subproducts sp
		JOIN products p ON p.id = sp.product_id
		LEFT JOIN product_categories pc ON pc.product_id = p.id
		WHERE sp.id = $1
		GROUP BY sp.id, sp.product_id, p.name, sp.variant, sp.price, sp.stock, p.brand_id
	`

	var (
		item        domain.LineItem
		brandID     sql.NullInt64
		categoryIDs []int64
	)
	err := r.db.QueryRowContext(ctx, query, subproductID).Scan(
		&item.SubproductID,
		&item.ProductID,
		&item.Name,
		&item.Variant,
		&item.UnitPrice,
		&item.Stock,
		&brandID,
		pq.Array(&categoryIDs),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubproductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query line item: %w", err)
	}

	if brandID.Valid {
		item.BrandID = &brandID.Int64
	}
	item.CategoryIDs = domain.NewIDSet(categoryIDs...)

	return &item, nil
}
