package pricing

import (
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/shopspring/decimal"
)

// PriceCart computes a cart's final total from its line items and the
// active deal set. The undiscounted subtotal is the reference for cart-deal
// eligibility. Cart deals and per-item deals are mutually exclusive: when
// an eligible cart deal exists it discounts the raw subtotal and per-item
// deals are not stacked underneath; otherwise the total is the subtotal
// minus the sum of per-item best discounts.
func PriceCart(items []domain.LineItem, deals []domain.Deal, at time.Time) domain.CartPricingResult {
	subtotal := decimal.Zero
	count := 0
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal())
		count += it.Quantity
	}

	result := domain.CartPricingResult{
		OriginalTotal:  subtotal,
		DiscountAmount: decimal.Zero,
		FinalTotal:     subtotal,
		ItemCount:      count,
	}
	if len(items) == 0 {
		return result
	}

	if cartDeal, discount := bestCartDeal(deals, subtotal, count, at); cartDeal != nil {
		result.AppliedDeal = cartDeal
		result.DiscountAmount = discount
		result.FinalTotal = subtotal.Sub(discount)
		return result
	}

	// No cart deal eligible: sum per-item best discounts.
	itemDiscount := decimal.Zero
	for _, it := range items {
		applied, err := ResolveBestDeal(it, deals, at)
		if err != nil || applied == nil {
			continue
		}
		itemDiscount = itemDiscount.Add(
			applied.DiscountAmount.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	result.DiscountAmount = itemDiscount
	result.FinalTotal = subtotal.Sub(itemDiscount)
	return result
}

// bestCartDeal selects the best eligible cart-scoped deal against the
// undiscounted subtotal, with the same max-then-lowest-id rule as item
// resolution. Returns nil when none is eligible.
func bestCartDeal(deals []domain.Deal, subtotal decimal.Decimal, itemCount int, at time.Time) (*domain.Deal, decimal.Decimal) {
	var (
		best         *domain.Deal
		bestDiscount decimal.Decimal
	)
	for i := range deals {
		d := &deals[i]
		scope, ok := d.Scope.(domain.CartScope)
		if !ok || !d.EffectiveAt(at) {
			continue
		}
		if subtotal.LessThan(scope.Conditions.MinimumAmount) {
			continue
		}
		if itemCount < scope.Conditions.RequiredItems {
			continue
		}
		discount := candidateDiscount(d, subtotal)
		if best == nil ||
			discount.GreaterThan(bestDiscount) ||
			(discount.Equal(bestDiscount) && d.ID < best.ID) {
			best = d
			bestDiscount = discount
		}
	}
	if best == nil {
		return nil, decimal.Zero
	}
	return best, bestDiscount
}
