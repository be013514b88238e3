package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type ShippingStatus string

const (
	ShippingStatusPending   ShippingStatus = "pending"
	ShippingStatusShipped   ShippingStatus = "shipped"
	ShippingStatusDelivered ShippingStatus = "delivered"
)

var ErrAddressIncomplete = errors.New("address is missing required fields")

type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

func (a Address) Validate() error {
	if a.Name == "" || a.Street == "" || a.City == "" || a.PostalCode == "" || a.Country == "" {
		return ErrAddressIncomplete
	}
	return nil
}

// OrderItemSnapshot is the immutable copy of a purchased item, frozen at
// checkout time. Later catalog or price changes never alter it.
type OrderItemSnapshot struct {
	ProductID    int64           `json:"product_id"`
	SubproductID int64           `json:"subproduct_id"`
	Name         string          `json:"name"`
	Variant      string          `json:"variant"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

// Order is created exactly once per checkout. Items and Total never change
// after creation; only the status fields transition.
type Order struct {
	ID              uuid.UUID           `json:"id"`
	UserID          *int64              `json:"user_id,omitempty"`
	GuestID         *string             `json:"guest_id,omitempty"`
	Total           decimal.Decimal     `json:"total"`
	Currency        string              `json:"currency"`
	Status          OrderStatus         `json:"status"`
	PaymentStatus   PaymentStatus       `json:"payment_status"`
	ShippingStatus  ShippingStatus      `json:"shipping_status"`
	Items           []OrderItemSnapshot `json:"items"`
	ShippingAddress Address             `json:"shipping_address"`
	BillingAddress  *Address            `json:"billing_address,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
