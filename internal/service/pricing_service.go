package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/cache"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/pricing"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// itemDealKinds are the scopes resolved per line item; cart deals are
// evaluated against the whole cart.
var itemDealKinds = []domain.DealKind{
	domain.DealKindProduct,
	domain.DealKindCategory,
	domain.DealKindBrand,
}

// ItemPrice is a priced line item for display: the best applied deal (if
// any) and the effective unit price.
type ItemPrice struct {
	Item      domain.LineItem     `json:"item"`
	Applied   *domain.AppliedDeal `json:"applied_deal,omitempty"`
	UnitPrice decimal.Decimal     `json:"unit_price"`
}

// PricingService serves price previews. Deal reads go through the cache
// with singleflight so a burst of displays after expiry produces one
// database fetch per scope kind. Results are pure and side-effect free,
// safe to recompute at any time.
type PricingService struct {
	catalog repository.CatalogRepository
	deals   repository.DealRepository
	cache   cache.DealCache
	sfg     singleflight.Group // Prevents cache stampede
}

func NewPricingService(catalog repository.CatalogRepository, deals repository.DealRepository, cache cache.DealCache) *PricingService {
	return &PricingService{
		catalog: catalog,
		deals:   deals,
		cache:   cache,
	}
}

// activeDeals loads one scope kind, cache-aside. Cached lists may be up to
// a TTL stale; the resolver re-checks every deal's window at `at`, so a
// stale entry can only delay a deal's appearance, never resurrect one.
func (s *PricingService) activeDeals(ctx context.Context, kind domain.DealKind, at time.Time) ([]domain.Deal, error) {
	v, err, _ := s.sfg.Do(string(kind), func() (interface{}, error) {
		deals, err := s.cache.Get(ctx, kind)
		if err == nil {
			return deals, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("deal cache get error: %v", err) // log cache error but continue
		}

		deals, errGet := s.deals.GetActiveDeals(ctx, at, kind)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), kind, deals); errSet != nil {
				log.Printf("deal cache set error: %v", errSet)
			}
		}()

		return deals, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.Deal), nil
}

func (s *PricingService) collectDeals(ctx context.Context, at time.Time, kinds ...domain.DealKind) ([]domain.Deal, error) {
	var all []domain.Deal
	for _, kind := range kinds {
		deals, err := s.activeDeals(ctx, kind, at)
		if err != nil {
			return nil, err
		}
		all = append(all, deals...)
	}
	return all, nil
}

// PreviewItem prices one variant at the given instant: catalog state plus
// the best matching deal.
func (s *PricingService) PreviewItem(ctx context.Context, subproductID int64, quantity int, at time.Time) (*ItemPrice, error) {
	if quantity < 1 {
		quantity = 1
	}

	item, err := s.catalog.GetLineItem(ctx, subproductID)
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity

	deals, err := s.collectDeals(ctx, at, itemDealKinds...)
	if err != nil {
		return nil, err
	}

	applied, err := pricing.ResolveBestDeal(*item, deals, at)
	if err != nil {
		return nil, err
	}

	price := &ItemPrice{Item: *item, Applied: applied, UnitPrice: item.UnitPrice}
	if applied != nil {
		price.UnitPrice = applied.FinalPrice
	}
	return price, nil
}

// PriceCart prices a full cart: resolves every cart item against the
// catalog, then runs the cart pricing engine over the active deal set.
// The per-item breakdown is returned alongside for display.
func (s *PricingService) PriceCart(ctx context.Context, cart *domain.Cart, at time.Time) (domain.CartPricingResult, []ItemPrice, error) {
	items, err := s.resolveLineItems(ctx, cart)
	if err != nil {
		return domain.CartPricingResult{}, nil, err
	}

	kinds := append([]domain.DealKind{domain.DealKindCart}, itemDealKinds...)
	deals, err := s.collectDeals(ctx, at, kinds...)
	if err != nil {
		return domain.CartPricingResult{}, nil, err
	}

	result := pricing.PriceCart(items, deals, at)

	prices := make([]ItemPrice, 0, len(items))
	for _, item := range items {
		applied, err := pricing.ResolveBestDeal(item, deals, at)
		if err != nil {
			return domain.CartPricingResult{}, nil, err
		}
		p := ItemPrice{Item: item, Applied: applied, UnitPrice: item.UnitPrice}
		// A selected cart deal replaces per-item discounts; unit prices
		// stay undiscounted underneath it.
		if applied != nil && result.AppliedDeal == nil {
			p.UnitPrice = applied.FinalPrice
		}
		prices = append(prices, p)
	}

	return result, prices, nil
}

func (s *PricingService) resolveLineItems(ctx context.Context, cart *domain.Cart) ([]domain.LineItem, error) {
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
