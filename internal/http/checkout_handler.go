package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
)

type checkoutService interface {
	CheckoutUserCart(ctx context.Context, userID int64, shipping domain.Address, billing *domain.Address, at time.Time) (*domain.Order, error)
}

type CheckoutHandler struct {
	checkout checkoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout checkoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	ShippingAddress domain.Address  `json:"shipping_address"`
	BillingAddress  *domain.Address `json:"billing_address,omitempty"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.checkout.CheckoutUserCart(ctx, userID, req.ShippingAddress, req.BillingAddress, time.Now())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	log.Printf("order %s placed for user %d (request %s)", order.ID, userID, getRequestID(r.Context()))
	respondJSON(w, http.StatusCreated, order)
}
