package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const cartColumns = `id, user_id, session_id, status, total, currency, last_activity`

func (r *Repository) GetCart(ctx context.Context, cartID int64) (*domain.Cart, error) {
	query := fmt.Sprintf(`SELECT %s FROM carts WHERE id = $1`, cartColumns)
	return r.scanCart(ctx, r.db.QueryRowContext(ctx, query, cartID))
}

func (r *Repository) GetCartByUser(ctx context.Context, userID int64) (*domain.Cart, error) {
	query := fmt.Sprintf(`SELECT %s FROM carts WHERE user_id = $1 AND status = 'active'`, cartColumns)
	return r.scanCart(ctx, r.db.QueryRowContext(ctx, query, userID))
}

func (r *Repository) scanCart(ctx context.Context, row *sql.Row) (*domain.Cart, error) {
	var (
		cart      domain.Cart
		userID    sql.NullInt64
		sessionID sql.NullString
	)
	err := row.Scan(
		&cart.ID,
		&userID,
		&sessionID,
		&cart.Status,
		&cart.Total,
		&cart.Currency,
		&cart.LastActivity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	if userID.Valid {
		cart.UserID = &userID.Int64
	}
	if sessionID.Valid {
		cart.SessionID = &sessionID.String
	}

	items, err := r.getCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return &cart, nil
}

func (r *Repository) getCartItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	query := `SELECT cart_id, subproduct_id, quantity FROM cart_items
	          WHERE cart_id = $1 ORDER BY subproduct_id`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.CartID, &item.SubproductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

func (r *Repository) CreateCart(ctx context.Context, userID int64, currency string) (*domain.Cart, error) {
	query := `INSERT INTO carts (user_id, status, total, currency, last_activity)
	          VALUES ($1, 'active', 0, $2, NOW())
	          RETURNING id, user_id, session_id, status, total, currency, last_activity`
	return r.scanCart(ctx, r.db.QueryRowContext(ctx, query, userID, currency))
}

// AddItem inserts the subproduct into the cart, or increments the existing
// row's quantity when the variant is already present. One row per
// (cart, subproduct), always.
func (r *Repository) AddItem(ctx context.Context, cartID, subproductID int64, quantity int) error {
	query := `INSERT INTO cart_items (cart_id, subproduct_id, quantity)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (cart_id, subproduct_id)
	          DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	if _, err := r.db.ExecContext(ctx, query, cartID, subproductID, quantity); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign_key_violation
			return ErrCartNotFound
		}
		return fmt.Errorf("add cart item: %w", err)
	}

	return r.touchCart(ctx, cartID)
}

func (r *Repository) UpdateItemQuantity(ctx context.Context, cartID, subproductID int64, quantity int) error {
	query := `UPDATE cart_items SET quantity = $3
	          WHERE cart_id = $1 AND subproduct_id = $2`

	result, err := r.db.ExecContext(ctx, query, cartID, subproductID, quantity)
	if err != nil {
		return fmt.Errorf("update cart item quantity: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}

	return r.touchCart(ctx, cartID)
}

func (r *Repository) RemoveItem(ctx context.Context, cartID, subproductID int64) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND subproduct_id = $2`

	result, err := r.db.ExecContext(ctx, query, cartID, subproductID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}

	return r.touchCart(ctx, cartID)
}

func (r *Repository) DeleteCart(ctx context.Context, cartID int64) error {
	// cart_items cascade with the cart row
	result, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCartNotFound
	}
	return nil
}

// UpdateCartTotal refreshes the denormalized total after a mutation. The
// cached value is display-only; pricing always recomputes from the items.
func (r *Repository) UpdateCartTotal(ctx context.Context, cartID int64, total decimal.Decimal) error {
	query := `UPDATE carts SET total = $2, last_activity = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, cartID, total)
	if err != nil {
		return fmt.Errorf("update cart total: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (r *Repository) touchCart(ctx context.Context, cartID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE carts SET last_activity = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}
