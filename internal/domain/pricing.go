package domain

import "github.com/shopspring/decimal"

// LineItem is one purchasable variant being priced, resolved fresh from
// catalog data per request. Never persisted.
type LineItem struct {
	ProductID    int64
	SubproductID int64
	Name         string
	Variant      string
	CategoryIDs  IDSet
	BrandID      *int64
	UnitPrice    decimal.Decimal
	Stock        int
	Quantity     int
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// AppliedDeal is the single best deal selected for a line item, with the
// computed discount. FinalPrice is always within [0, OriginalPrice].
type AppliedDeal struct {
	Deal           Deal            `json:"deal"`
	OriginalPrice  decimal.Decimal `json:"original_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalPrice     decimal.Decimal `json:"final_price"`
}

// CartPricingResult is the cart-level pricing outcome. AppliedDeal is set
// only when a cart-scoped deal was selected; otherwise DiscountAmount is
// the sum of per-item best-deal discounts.
type CartPricingResult struct {
	OriginalTotal  decimal.Decimal `json:"original_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalTotal     decimal.Decimal `json:"final_total"`
	AppliedDeal    *Deal           `json:"applied_deal,omitempty"`
	ItemCount      int             `json:"item_count"`
}
