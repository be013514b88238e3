package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/pricing"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/repository"
	"github.com/google/uuid"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

const (
	// maxCheckoutAttempts bounds retries on row-lock contention before
	// the conflict surfaces to the caller.
	maxCheckoutAttempts = 3
	checkoutBackoff     = 50 * time.Millisecond
)

type CheckoutRequest struct {
	CartID          int64
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
}

type CheckoutService struct {
	carts    repository.CartRepository
	catalog  repository.CatalogRepository
	deals    repository.DealRepository
	checkout repository.CheckoutRepository
}

func NewCheckoutService(
	carts repository.CartRepository,
	catalog repository.CatalogRepository,
	deals repository.DealRepository,
	checkout repository.CheckoutRepository,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		catalog:  catalog,
		deals:    deals,
		checkout: checkout,
	}
}

// ProcessCheckout turns a cart into an order at the given instant:
// validate, resolve the committed prices, then finalize atomically.
// The prices frozen into the snapshot are the ones resolved here; later
// deal or catalog changes never touch the order.
func (s *CheckoutService) ProcessCheckout(ctx context.Context, req CheckoutRequest, at time.Time) (*domain.Order, error) {
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, fmt.Errorf("shipping address: %w", err)
	}
	if req.BillingAddress != nil {
		if err := req.BillingAddress.Validate(); err != nil {
			return nil, fmt.Errorf("billing address: %w", err)
		}
	}

	cart, err := s.carts.GetCart(ctx, req.CartID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items, err := s.loadLineItems(ctx, cart)
	if err != nil {
		return nil, err
	}

	// Early stock check so the common failure is cheap and names the
	// offending item. The transaction re-validates under row locks.
	for _, item := range items {
		if item.Stock < item.Quantity {
			return nil, &repository.InsufficientStockError{
				SubproductID: item.SubproductID,
				Requested:    item.Quantity,
				Available:    item.Stock,
			}
		}
	}

	// Committed prices come straight from the repository, not the
	// display cache.
	kinds := append([]domain.DealKind{domain.DealKindCart}, itemDealKinds...)
	deals, err := s.deals.GetActiveDeals(ctx, at, kinds...)
	if err != nil {
		return nil, err
	}

	order, err := buildOrder(cart, items, deals, req, at)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		err = s.checkout.FinalizeCheckout(ctx, cart.ID, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrTxConflict) || attempt >= maxCheckoutAttempts {
			return nil, err
		}

		log.Printf("checkout for cart %d hit a conflict, retrying (attempt %d)", cart.ID, attempt)
		select {
		case <-time.After(time.Duration(attempt) * checkoutBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// CheckoutUserCart resolves the user's active cart and processes it.
func (s *CheckoutService) CheckoutUserCart(ctx context.Context, userID int64, shipping domain.Address, billing *domain.Address, at time.Time) (*domain.Order, error) {
	cart, err := s.carts.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.ProcessCheckout(ctx, CheckoutRequest{
		CartID:          cart.ID,
		ShippingAddress: shipping,
		BillingAddress:  billing,
	}, at)
}

func (s *CheckoutService) loadLineItems(ctx context.Context, cart *domain.Cart) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		item, err := s.catalog.GetLineItem(ctx, ci.SubproductID)
		if err != nil {
			return nil, err
		}
		item.Quantity = ci.Quantity
		items = append(items, *item)
	}
	return items, nil
}

// buildOrder freezes the item snapshots and the order total. When a cart
// deal was selected the total is the cart-discounted subtotal and the unit
// prices stay undiscounted; otherwise each unit price is the item's
// best-deal final price and the total is their sum. One rule, applied
// uniformly with the cart pricing engine.
func buildOrder(cart *domain.Cart, items []domain.LineItem, deals []domain.Deal, req CheckoutRequest, at time.Time) (*domain.Order, error) {
	result := pricing.PriceCart(items, deals, at)

	snapshots := make([]domain.OrderItemSnapshot, 0, len(items))
	for _, item := range items {
		unitPrice := item.UnitPrice
		if result.AppliedDeal == nil {
			applied, err := pricing.ResolveBestDeal(item, deals, at)
			if err != nil {
				return nil, err
			}
			if applied != nil {
				unitPrice = applied.FinalPrice
			}
		}
		snapshots = append(snapshots, domain.OrderItemSnapshot{
			ProductID:    item.ProductID,
			SubproductID: item.SubproductID,
			Name:         item.Name,
			Variant:      item.Variant,
			Price:        unitPrice,
			Quantity:     item.Quantity,
		})
	}

	return &domain.Order{
		ID:              uuid.New(),
		UserID:          cart.UserID,
		GuestID:         cart.SessionID,
		Total:           result.FinalTotal,
		Currency:        cart.Currency,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		ShippingStatus:  domain.ShippingStatusPending,
		Items:           snapshots,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		CreatedAt:       at,
		UpdatedAt:       at,
	}, nil
}
