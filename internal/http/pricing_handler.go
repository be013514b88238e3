package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/service"
)

type pricingService interface {
	PreviewItem(ctx context.Context, subproductID int64, quantity int, at time.Time) (*service.ItemPrice, error)
}

type PricingHandler struct {
	pricing pricingService
	timeout time.Duration
}

func NewPricingHandler(pricing pricingService, timeout time.Duration) *PricingHandler {
	return &PricingHandler{
		pricing: pricing,
		timeout: timeout,
	}
}

// PreviewItem serves the display price for a single subproduct. Quantity
// defaults to 1 and is only used for the line subtotal, the applied deal
// is resolved per unit.
func (h *PricingHandler) PreviewItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	subproductID, ok := subproductIDParam(w, r)
	if !ok {
		return
	}

	quantity := 1
	if q := r.URL.Query().Get("quantity"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be a positive integer")
			return
		}
		quantity = parsed
	}

	price, err := h.pricing.PreviewItem(ctx, subproductID, quantity, time.Now())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, price)
}
