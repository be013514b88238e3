// Package pricing holds the deal resolution and cart pricing engine.
// Everything here is a pure computation over already-loaded data: no
// storage access, no clock reads. The evaluation instant is always an
// explicit parameter so results are reproducible.
package pricing

import (
	"errors"
	"log"
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidLineItem = errors.New("line item unit price must be positive")
)

var oneHundred = decimal.NewFromInt(100)

// ResolveBestDeal finds the single best product/category/brand deal for a
// line item: every deal effective at the given instant whose targets match
// the item's dimension is a candidate; the one with the largest computed
// discount wins, ties broken by lowest deal id. Cart-scoped deals are
// ignored here; PriceCart evaluates those against the whole cart.
//
// Returns nil when no deal matches. That is the common, non-error outcome.
func ResolveBestDeal(item domain.LineItem, deals []domain.Deal, at time.Time) (*domain.AppliedDeal, error) {
	if item.UnitPrice.Sign() <= 0 {
		return nil, ErrInvalidLineItem
	}

	var best *domain.AppliedDeal
	for i := range deals {
		d := &deals[i]
		if !d.EffectiveAt(at) {
			continue
		}
		if !scopeMatches(d.Scope, item) {
			continue
		}
		discount := candidateDiscount(d, item.UnitPrice)
		if best == nil || betterThan(discount, d.ID, best) {
			best = &domain.AppliedDeal{
				Deal:           *d,
				OriginalPrice:  item.UnitPrice,
				DiscountAmount: discount,
				FinalPrice:     item.UnitPrice.Sub(discount),
			}
		}
	}
	return best, nil
}

// betterThan implements the max-discount, lowest-id-on-tie ordering.
func betterThan(discount decimal.Decimal, id int64, current *domain.AppliedDeal) bool {
	switch discount.Cmp(current.DiscountAmount) {
	case 1:
		return true
	case 0:
		return id < current.Deal.ID
	default:
		return false
	}
}

func scopeMatches(scope domain.DealScope, item domain.LineItem) bool {
	switch s := scope.(type) {
	case domain.ProductScope:
		return s.ProductIDs.Contains(item.ProductID)
	case domain.CategoryScope:
		return s.CategoryIDs.Intersects(item.CategoryIDs)
	case domain.BrandScope:
		return item.BrandID != nil && s.BrandIDs.Contains(*item.BrandID)
	case domain.CartScope:
		return false
	default:
		return false
	}
}

// candidateDiscount computes a deal's discount against a base amount.
// Malformed deal data is clamped rather than rejected: a percentage outside
// [0,100] or a negative fixed amount comes from a bad admin row and must
// not break pricing for everyone. The result never exceeds the base, so a
// discounted price cannot go negative.
func candidateDiscount(d *domain.Deal, base decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch d.Type {
	case domain.DiscountPercentage:
		pct := d.Amount
		if pct.Sign() < 0 || pct.GreaterThan(oneHundred) {
			log.Printf("deal %d has percentage %s outside [0,100], clamping", d.ID, pct)
			pct = clampPercent(pct)
		}
		discount = base.Mul(pct).Div(oneHundred)
	case domain.DiscountFixed:
		discount = d.Amount
		if discount.Sign() < 0 {
			log.Printf("deal %d has negative fixed amount %s, clamping to 0", d.ID, discount)
			discount = decimal.Zero
		}
	default:
		log.Printf("deal %d has unknown discount type %q, ignoring", d.ID, d.Type)
		return decimal.Zero
	}

	if discount.GreaterThan(base) {
		discount = base
	}
	return discount
}

func clampPercent(pct decimal.Decimal) decimal.Decimal {
	if pct.Sign() < 0 {
		return decimal.Zero
	}
	return oneHundred
}
