package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/repository"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/service"
)

type checkoutServiceMock struct {
	order *domain.Order
	err   error
}

func (m *checkoutServiceMock) CheckoutUserCart(context.Context, int64, domain.Address, *domain.Address, time.Time) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func validAddress() domain.Address {
	return domain.Address{
		Name:       "Jane Doe",
		Street:     "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}

func checkoutBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(CheckoutRequestDTO{ShippingAddress: validAddress()})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	return body
}

func TestCheckout_Success(t *testing.T) {
	userID := int64(1)
	mock := &checkoutServiceMock{order: &domain.Order{
		ID:     uuid.New(),
		UserID: &userID,
		Total:  decimal.RequireFromString("230"),
		Status: domain.OrderStatusPending,
	}}
	handler := NewCheckoutHandler(mock, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("POST", "/", bytes.NewReader(checkoutBody(t))))

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Errorf("Expected status code %d, got %d", http.StatusCreated, recorder.Code)
	}

	var response domain.Order
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.ID != mock.order.ID {
		t.Errorf("Expected order id %s, got %s", mock.order.ID, response.ID)
	}
}

func TestCheckout_Unauthorized(t *testing.T) {
	handler := NewCheckoutHandler(&checkoutServiceMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/", bytes.NewReader(checkoutBody(t)))

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	handler := NewCheckoutHandler(&checkoutServiceMock{err: service.ErrEmptyCart}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("POST", "/", bytes.NewReader(checkoutBody(t))))

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status code %d, got %d", http.StatusUnprocessableEntity, recorder.Code)
	}
}

func TestCheckout_InsufficientStock(t *testing.T) {
	mock := &checkoutServiceMock{err: &repository.InsufficientStockError{
		SubproductID: 10,
		Requested:    5,
		Available:    2,
	}}
	handler := NewCheckoutHandler(mock, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("POST", "/", bytes.NewReader(checkoutBody(t))))

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusConflict {
		t.Errorf("Expected status code %d, got %d", http.StatusConflict, recorder.Code)
	}

	var response ErrorResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Code != "insufficient_stock" {
		t.Errorf("Expected code insufficient_stock, got %s", response.Code)
	}
}

func TestCheckout_InvalidAddress(t *testing.T) {
	handler := NewCheckoutHandler(&checkoutServiceMock{err: domain.ErrAddressIncomplete}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("POST", "/", bytes.NewReader([]byte(`{"shipping_address":{}}`))))

	handler.Checkout(recorder, request)

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status code %d, got %d", http.StatusUnprocessableEntity, recorder.Code)
	}
}
