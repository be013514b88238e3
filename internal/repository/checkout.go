package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
)

// FinalizeCheckout commits a checkout in one transaction: lock the
// subproduct rows, validate and decrement stock, insert the order and its
// outbox event, and delete the cart. Any failure rolls the whole thing
// back, so a losing concurrent checkout sees ErrInsufficientStock and an
// untouched cart rather than oversold stock or a partial order.
func (r *Repository) FinalizeCheckout(ctx context.Context, cartID int64, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkout transaction: %w", err)
	}
	defer tx.Rollback()

	if err := decrementStock(ctx, tx, order.Items); err != nil {
		if isSerializationFailure(err) {
			return ErrTxConflict
		}
		return err
	}

	if err := insertOrder(ctx, tx, order); err != nil {
		if isSerializationFailure(err) {
			return ErrTxConflict
		}
		return err
	}

	if err := insertOrderPlacedEvent(ctx, tx, order); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return ErrTxConflict
		}
		return fmt.Errorf("commit checkout transaction: %w", err)
	}
	return nil
}

// decrementStock locks the subproduct rows in ascending id order (a stable
// lock order prevents deadlocks between concurrent checkouts), verifies
// every requested quantity fits, then decrements.
func decrementStock(ctx context.Context, tx *sql.Tx, items []domain.OrderItemSnapshot) error {
	wanted := make(map[int64]int, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := wanted[item.SubproductID]; !ok {
			ids = append(ids, item.SubproductID)
		}
		wanted[item.SubproductID] += item.Quantity
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		var stock int
		err := tx.QueryRowContext(ctx,
			`SELECT stock FROM subproducts WHERE id = $1 FOR UPDATE`, id).Scan(&stock)
		if err == sql.ErrNoRows {
			return ErrSubproductNotFound
		}
		if err != nil {
			return fmt.Errorf("lock subproduct %d: %w", id, err)
		}

		if stock < wanted[id] {
			return &InsufficientStockError{
				SubproductID: id,
				Requested:    wanted[id],
				Available:    stock,
			}
		}
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE subproducts SET stock = stock - $2 WHERE id = $1`, id, wanted[id]); err != nil {
			return fmt.Errorf("decrement stock for subproduct %d: %w", id, err)
		}
	}

	return nil
}
