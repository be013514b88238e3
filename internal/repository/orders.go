package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/google/uuid"
)

const orderColumns = `id, user_id, guest_id, total, currency, status, payment_status,
	shipping_status, items, shipping_address, billing_address, created_at, updated_at`

// insertOrder writes the order row inside the given transaction so order
// creation shares the checkout transaction with the stock decrement.
func insertOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	var billingJSON []byte
	if order.BillingAddress != nil {
		billingJSON, err = json.Marshal(order.BillingAddress)
		if err != nil {
			return fmt.Errorf("marshal billing address: %w", err)
		}
	}

	query := `INSERT INTO orders (id, user_id, guest_id, total, currency, status,
	              payment_status, shipping_status, items, shipping_address, billing_address,
	              created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`

	_, err = tx.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.GuestID,
		order.Total,
		order.Currency,
		order.Status,
		order.PaymentStatus,
		order.ShippingStatus,
		itemsJSON,
		shippingJSON,
		billingJSON,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, userID int64) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order        domain.Order
		userID       sql.NullInt64
		guestID      sql.NullString
		itemsJSON    []byte
		shippingJSON []byte
		billingJSON  []byte
	)
	if err := row.Scan(
		&order.ID,
		&userID,
		&guestID,
		&order.Total,
		&order.Currency,
		&order.Status,
		&order.PaymentStatus,
		&order.ShippingStatus,
		&itemsJSON,
		&shippingJSON,
		&billingJSON,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if userID.Valid {
		order.UserID = &userID.Int64
	}
	if guestID.Valid {
		order.GuestID = &guestID.String
	}
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if len(billingJSON) > 0 {
		order.BillingAddress = &domain.Address{}
		if err := json.Unmarshal(billingJSON, order.BillingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal billing address: %w", err)
		}
	}

	return &order, nil
}
