package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// DealKind identifies which dimension of a purchase a deal targets.
type DealKind string

const (
	DealKindProduct  DealKind = "product"
	DealKindCategory DealKind = "category"
	DealKindBrand    DealKind = "brand"
	DealKindCart     DealKind = "cart"
)

// IDSet is a set of entity ids a deal targets.
type IDSet map[int64]struct{}

func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Intersects(other IDSet) bool {
	// Iterate the smaller set
	small, large := s, other
	if len(other) < len(s) {
		small, large = other, s
	}
	for id := range small {
		if large.Contains(id) {
			return true
		}
	}
	return false
}

func (s IDSet) Slice() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// DealScope is a sealed sum type over the four deal targeting dimensions.
// Matching code type-switches over the concrete scopes; a deal always
// carries exactly one.
type DealScope interface {
	Kind() DealKind
	sealedScope()
}

type ProductScope struct {
	ProductIDs IDSet
}

func (ProductScope) Kind() DealKind { return DealKindProduct }
func (ProductScope) sealedScope()   {}

type CategoryScope struct {
	CategoryIDs IDSet
}

func (CategoryScope) Kind() DealKind { return DealKindCategory }
func (CategoryScope) sealedScope()   {}

type BrandScope struct {
	BrandIDs IDSet
}

func (BrandScope) Kind() DealKind { return DealKindBrand }
func (BrandScope) sealedScope()   {}

// CartConditions gates a cart-wide deal. Zero values mean "no condition",
// so a conditionless cart deal matches every nonempty cart.
type CartConditions struct {
	MinimumAmount decimal.Decimal `json:"minimum_amount"`
	RequiredItems int             `json:"required_items"`
}

type CartScope struct {
	Conditions CartConditions
}

func (CartScope) Kind() DealKind { return DealKindCart }
func (CartScope) sealedScope()   {}

// Deal is a time-bounded promotional discount rule. Read-only from the
// pricing engine's perspective.
type Deal struct {
	ID       int64
	Name     string
	Amount   decimal.Decimal
	Type     DiscountType
	StartsAt time.Time
	EndsAt   time.Time
	Active   bool
	Scope    DealScope
}

// EffectiveAt reports whether the deal applies at the given instant. The
// instant is always passed in explicitly so resolution stays deterministic
// under test.
func (d *Deal) EffectiveAt(at time.Time) bool {
	if !d.Active {
		return false
	}
	return !at.Before(d.StartsAt) && !at.After(d.EndsAt)
}

// dealJSON is the wire/cache envelope for Deal. The scope sum type flattens
// into kind + target ids + conditions.
type dealJSON struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Type       DiscountType    `json:"type"`
	StartsAt   time.Time       `json:"starts_at"`
	EndsAt     time.Time       `json:"ends_at"`
	Active     bool            `json:"active"`
	Kind       DealKind        `json:"kind"`
	TargetIDs  []int64         `json:"target_ids,omitempty"`
	Conditions *CartConditions `json:"conditions,omitempty"`
}

func (d Deal) MarshalJSON() ([]byte, error) {
	env := dealJSON{
		ID:       d.ID,
		Name:     d.Name,
		Amount:   d.Amount,
		Type:     d.Type,
		StartsAt: d.StartsAt,
		EndsAt:   d.EndsAt,
		Active:   d.Active,
	}
	switch s := d.Scope.(type) {
	case ProductScope:
		env.Kind = DealKindProduct
		env.TargetIDs = s.ProductIDs.Slice()
	case CategoryScope:
		env.Kind = DealKindCategory
		env.TargetIDs = s.CategoryIDs.Slice()
	case BrandScope:
		env.Kind = DealKindBrand
		env.TargetIDs = s.BrandIDs.Slice()
	case CartScope:
		env.Kind = DealKindCart
		cond := s.Conditions
		env.Conditions = &cond
	default:
		return nil, fmt.Errorf("deal %d has no scope", d.ID)
	}
	return json.Marshal(env)
}

func (d *Deal) UnmarshalJSON(data []byte) error {
	var env dealJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	scope, err := ScopeFor(env.Kind, env.TargetIDs, env.Conditions)
	if err != nil {
		return err
	}
	*d = Deal{
		ID:       env.ID,
		Name:     env.Name,
		Amount:   env.Amount,
		Type:     env.Type,
		StartsAt: env.StartsAt,
		EndsAt:   env.EndsAt,
		Active:   env.Active,
		Scope:    scope,
	}
	return nil
}

// ScopeFor builds the concrete scope for a stored deal row.
func ScopeFor(kind DealKind, targetIDs []int64, conditions *CartConditions) (DealScope, error) {
	switch kind {
	case DealKindProduct:
		return ProductScope{ProductIDs: NewIDSet(targetIDs...)}, nil
	case DealKindCategory:
		return CategoryScope{CategoryIDs: NewIDSet(targetIDs...)}, nil
	case DealKindBrand:
		return BrandScope{BrandIDs: NewIDSet(targetIDs...)}, nil
	case DealKindCart:
		var cond CartConditions
		if conditions != nil {
			cond = *conditions
		}
		return CartScope{Conditions: cond}, nil
	default:
		return nil, fmt.Errorf("unknown deal kind %q", kind)
	}
}
