package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusConverted CartStatus = "converted"
)

// Cart belongs to exactly one of a registered user or a guest session.
// Total is a denormalized cache of the pricing engine's output, recomputed
// on every mutation; the item list is the source of truth.
type Cart struct {
	ID           int64           `json:"id"`
	UserID       *int64          `json:"user_id,omitempty"`
	SessionID    *string         `json:"session_id,omitempty"`
	Status       CartStatus      `json:"status"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	LastActivity time.Time       `json:"last_activity"`
	Items        []CartItem      `json:"items"`
}

// CartItem is unique per (cart, subproduct); adding an already-present
// variant increments quantity instead of inserting a second row.
type CartItem struct {
	CartID       int64 `json:"cart_id"`
	SubproductID int64 `json:"subproduct_id"`
	Quantity     int   `json:"quantity"`
}

func (c *Cart) TotalQuantity() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
