package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/repository"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/service"
)

type cartService interface {
	GetCart(ctx context.Context, userID int64, at time.Time) (*domain.Cart, domain.CartPricingResult, []service.ItemPrice, error)
	AddItem(ctx context.Context, userID, subproductID int64, quantity int, at time.Time) error
	UpdateQuantity(ctx context.Context, userID, subproductID int64, quantity int, at time.Time) error
	RemoveItem(ctx context.Context, userID, subproductID int64, at time.Time) error
	ClearCart(ctx context.Context, userID int64) error
}

type CartHandler struct {
	carts   cartService
	timeout time.Duration
}

func NewCartHandler(carts cartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	SubproductID int64 `json:"subproduct_id"`
	Quantity     int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Cart    *domain.Cart             `json:"cart"`
	Items   []service.ItemPrice      `json:"items"`
	Pricing domain.CartPricingResult `json:"pricing"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cart, result, items, err := h.carts.GetCart(ctx, userID, time.Now())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: cart, Items: items, Pricing: result})
}

// PriceCart returns the pricing breakdown without the cart envelope.
func (h *CartHandler) PriceCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	_, result, items, err := h.carts.GetCart(ctx, userID, time.Now())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":   items,
		"pricing": result,
	})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.SubproductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_subproduct_id", "subproduct_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	at := time.Now()
	if err := h.carts.AddItem(ctx, userID, req.SubproductID, req.Quantity, at); err != nil {
		handleServiceError(w, err)
		return
	}

	cart, result, items, err := h.carts.GetCart(ctx, userID, at)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CartResponseDTO{Cart: cart, Items: items, Pricing: result})
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	subproductID, ok := subproductIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	at := time.Now()
	if err := h.carts.UpdateQuantity(ctx, userID, subproductID, req.Quantity, at); err != nil {
		handleServiceError(w, err)
		return
	}

	cart, result, items, err := h.carts.GetCart(ctx, userID, at)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: cart, Items: items, Pricing: result})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	subproductID, ok := subproductIDParam(w, r)
	if !ok {
		return
	}

	at := time.Now()
	if err := h.carts.RemoveItem(ctx, userID, subproductID, at); err != nil {
		handleServiceError(w, err)
		return
	}

	cart, result, items, err := h.carts.GetCart(ctx, userID, at)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: cart, Items: items, Pricing: result})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.ClearCart(ctx, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func subproductIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "subproduct_id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_subproduct_id", "subproduct_id must be a positive integer")
		return 0, false
	}
	return id, true
}

func getUserIDFromContext(ctx context.Context) int64 {
	if userID, ok := ctx.Value("user_id").(int64); ok {
		return userID
	}
	return 0
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value("request_id").(string); ok {
		return requestID
	}
	return ""
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleServiceError converts domain and repository errors to HTTP status
// codes. Unknown errors are logged and hidden behind a generic 500.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrSubproductNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, repository.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, repository.ErrTxConflict):
		respondError(w, http.StatusConflict, "conflict", "checkout conflicted with concurrent orders, try again")
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, service.ErrInvalidQuantity):
		respondError(w, http.StatusUnprocessableEntity, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrAddressIncomplete):
		respondError(w, http.StatusUnprocessableEntity, "invalid_address", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
