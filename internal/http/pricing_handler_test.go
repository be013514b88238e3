package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/repository"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/service"
)

type pricingServiceMock struct {
	price *service.ItemPrice
	err   error
}

func (m *pricingServiceMock) PreviewItem(context.Context, int64, int, time.Time) (*service.ItemPrice, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.price, nil
}

func TestPreviewItem_Success(t *testing.T) {
	mock := &pricingServiceMock{price: &service.ItemPrice{
		Item: domain.LineItem{
			SubproductID: 10,
			Name:         "Hoodie",
			UnitPrice:    decimal.RequireFromString("100"),
		},
		UnitPrice: decimal.RequireFromString("85"),
	}}
	handler := NewPricingHandler(mock, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/?quantity=2", nil)
	request = withURLParam(request, "subproduct_id", "10")

	handler.PreviewItem(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response service.ItemPrice
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.UnitPrice.Equal(decimal.RequireFromString("85")) {
		t.Errorf("Expected unit price 85, got %s", response.UnitPrice)
	}
}

func TestPreviewItem_InvalidQuantity(t *testing.T) {
	handler := NewPricingHandler(&pricingServiceMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/?quantity=-1", nil)
	request = withURLParam(request, "subproduct_id", "10")

	handler.PreviewItem(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestPreviewItem_UnknownSubproduct(t *testing.T) {
	handler := NewPricingHandler(&pricingServiceMock{err: repository.ErrSubproductNotFound}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/", nil)
	request = withURLParam(request, "subproduct_id", "999")

	handler.PreviewItem(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, recorder.Code)
	}
}
