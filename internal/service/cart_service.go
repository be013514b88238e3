package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/repository"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

const defaultCurrency = "USD"

// cartPricer is the slice of PricingService the cart service needs.
type cartPricer interface {
	PriceCart(ctx context.Context, cart *domain.Cart, at time.Time) (domain.CartPricingResult, []ItemPrice, error)
}

type CartService struct {
	repo    repository.CartRepository
	catalog repository.CatalogRepository
	pricer  cartPricer
}

func NewCartService(repo repository.CartRepository, catalog repository.CatalogRepository, pricer cartPricer) *CartService {
	return &CartService{
		repo:    repo,
		catalog: catalog,
		pricer:  pricer,
	}
}

// GetCart returns the user's active cart with a fresh pricing result. A
// user without a cart gets an empty one rather than an error.
func (s *CartService) GetCart(ctx context.Context, userID int64, at time.Time) (*domain.Cart, domain.CartPricingResult, []ItemPrice, error) {
	cart, err := s.repo.GetCartByUser(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		empty := &domain.Cart{
			UserID:       &userID,
			Status:       domain.CartStatusActive,
			Currency:     defaultCurrency,
			LastActivity: at,
		}
		return empty, domain.CartPricingResult{}, nil, nil
	}
	if err != nil {
		return nil, domain.CartPricingResult{}, nil, err
	}

	result, prices, err := s.pricer.PriceCart(ctx, cart, at)
	if err != nil {
		return nil, domain.CartPricingResult{}, nil, err
	}
	cart.Total = result.FinalTotal

	return cart, result, prices, nil
}

// AddItem puts a variant in the user's cart, creating the cart on first
// use. Re-adding a variant increments its quantity.
func (s *CartService) AddItem(ctx context.Context, userID, subproductID int64, quantity int, at time.Time) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	// Reject unknown variants up front; pricing against nonexistent
	// catalog data is never recovered silently.
	if _, err := s.catalog.GetLineItem(ctx, subproductID); err != nil {
		return err
	}

	cart, err := s.repo.GetCartByUser(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart, err = s.repo.CreateCart(ctx, userID, defaultCurrency)
	}
	if err != nil {
		return err
	}

	if err := s.repo.AddItem(ctx, cart.ID, subproductID, quantity); err != nil {
		return err
	}

	s.refreshTotal(ctx, cart.ID, at)
	return nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, subproductID int64, quantity int, at time.Time) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	cart, err := s.repo.GetCartByUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateItemQuantity(ctx, cart.ID, subproductID, quantity); err != nil {
		return err
	}

	s.refreshTotal(ctx, cart.ID, at)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, subproductID int64, at time.Time) error {
	cart, err := s.repo.GetCartByUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.repo.RemoveItem(ctx, cart.ID, subproductID); err != nil {
		return err
	}

	s.refreshTotal(ctx, cart.ID, at)
	return nil
}

func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	cart, err := s.repo.GetCartByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.DeleteCart(ctx, cart.ID)
}

// refreshTotal recomputes the denormalized cart total after a mutation.
// The cached total is display-only, so a failed refresh logs and moves on;
// the mutation itself already succeeded.
func (s *CartService) refreshTotal(ctx context.Context, cartID int64, at time.Time) {
	cart, err := s.repo.GetCart(ctx, cartID)
	if err != nil {
		log.Printf("cart total refresh: reload cart %d: %v", cartID, err)
		return
	}

	result, _, err := s.pricer.PriceCart(ctx, cart, at)
	if err != nil {
		log.Printf("cart total refresh: price cart %d: %v", cartID, err)
		return
	}

	if err := s.repo.UpdateCartTotal(ctx, cartID, result.FinalTotal); err != nil {
		log.Printf("cart total refresh: store cart %d: %v", cartID, err)
	}
}
