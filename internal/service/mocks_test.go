package service

import (
	"context"
	"sync"
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/cache"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/repository"
	"github.com/shopspring/decimal"
)

type mockCatalog struct {
	m     sync.RWMutex
	items map[int64]domain.LineItem // by subproduct id
	err   error
}

func (m *mockCatalog) GetLineItem(_ context.Context, subproductID int64) (*domain.LineItem, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	item, ok := m.items[subproductID]
	if !ok {
		return nil, repository.ErrSubproductNotFound
	}
	return &item, nil
}

type mockDealRepo struct {
	m     sync.RWMutex
	deals []domain.Deal
	err   error
	calls int
}

func (m *mockDealRepo) GetActiveDeals(_ context.Context, at time.Time, kinds ...domain.DealKind) ([]domain.Deal, error) {
	m.m.Lock()
	m.calls++
	m.m.Unlock()

	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	wanted := make(map[domain.DealKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}
	var out []domain.Deal
	for _, d := range m.deals {
		if wanted[d.Scope.Kind()] && d.EffectiveAt(at) {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockDealCache struct {
	m     sync.RWMutex
	deals map[domain.DealKind][]domain.Deal
	sets  int
}

func (m *mockDealCache) Get(_ context.Context, kind domain.DealKind) ([]domain.Deal, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if deals, ok := m.deals[kind]; ok {
		return deals, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *mockDealCache) Set(_ context.Context, kind domain.DealKind, deals []domain.Deal) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.deals == nil {
		m.deals = make(map[domain.DealKind][]domain.Deal)
	}
	m.deals[kind] = deals
	m.sets++
	return nil
}

func (m *mockDealCache) Delete(_ context.Context, kind domain.DealKind) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.deals, kind)
	return nil
}

type mockCartRepo struct {
	m      sync.RWMutex
	cart   *domain.Cart
	err    error
	nextID int64
	totals map[int64]decimal.Decimal // recorded UpdateCartTotal calls
}

func (m *mockCartRepo) GetCart(_ context.Context, cartID int64) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil || m.cart.ID != cartID {
		return nil, repository.ErrCartNotFound
	}
	c := *m.cart
	c.Items = append([]domain.CartItem(nil), m.cart.Items...)
	return &c, nil
}

func (m *mockCartRepo) GetCartByUser(_ context.Context, userID int64) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil || m.cart.UserID == nil || *m.cart.UserID != userID {
		return nil, repository.ErrCartNotFound
	}
	c := *m.cart
	c.Items = append([]domain.CartItem(nil), m.cart.Items...)
	return &c, nil
}

func (m *mockCartRepo) CreateCart(_ context.Context, userID int64, currency string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.nextID++
	m.cart = &domain.Cart{
		ID:       m.nextID,
		UserID:   &userID,
		Status:   domain.CartStatusActive,
		Currency: currency,
	}
	return m.cart, nil
}

// AddItem mirrors the ON CONFLICT upsert: one row per variant, re-adds
// increment quantity.
func (m *mockCartRepo) AddItem(_ context.Context, cartID, subproductID int64, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil || m.cart.ID != cartID {
		return repository.ErrCartNotFound
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].SubproductID == subproductID {
			m.cart.Items[i].Quantity += quantity
			return nil
		}
	}
	m.cart.Items = append(m.cart.Items, domain.CartItem{
		CartID:       cartID,
		SubproductID: subproductID,
		Quantity:     quantity,
	})
	return nil
}

func (m *mockCartRepo) UpdateItemQuantity(_ context.Context, cartID, subproductID int64, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil || m.cart.ID != cartID {
		return repository.ErrCartNotFound
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].SubproductID == subproductID {
			m.cart.Items[i].Quantity = quantity
			return nil
		}
	}
	return repository.ErrItemNotFound
}

func (m *mockCartRepo) RemoveItem(_ context.Context, cartID, subproductID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil || m.cart.ID != cartID {
		return repository.ErrCartNotFound
	}
	for i, item := range m.cart.Items {
		if item.SubproductID == subproductID {
			m.cart.Items = append(m.cart.Items[:i], m.cart.Items[i+1:]...)
			return nil
		}
	}
	return repository.ErrItemNotFound
}

func (m *mockCartRepo) DeleteCart(_ context.Context, cartID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil || m.cart.ID != cartID {
		return repository.ErrCartNotFound
	}
	m.cart = nil
	return nil
}

func (m *mockCartRepo) UpdateCartTotal(_ context.Context, cartID int64, total decimal.Decimal) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.totals == nil {
		m.totals = make(map[int64]decimal.Decimal)
	}
	m.totals[cartID] = total
	if m.cart != nil && m.cart.ID == cartID {
		m.cart.Total = total
	}
	return nil
}

// mockCheckoutRepo mimics FinalizeCheckout's all-or-nothing contract over
// an in-memory stock table.
type mockCheckoutRepo struct {
	m             sync.Mutex
	stocks        map[int64]int
	order         *domain.Order
	cartDeleted   int64
	carts         *mockCartRepo
	conflictsLeft int // return ErrTxConflict this many times before succeeding
	calls         int
}

func (m *mockCheckoutRepo) FinalizeCheckout(_ context.Context, cartID int64, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++

	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return repository.ErrTxConflict
	}

	// Validate everything before touching anything.
	for _, item := range order.Items {
		if m.stocks[item.SubproductID] < item.Quantity {
			return &repository.InsufficientStockError{
				SubproductID: item.SubproductID,
				Requested:    item.Quantity,
				Available:    m.stocks[item.SubproductID],
			}
		}
	}

	for _, item := range order.Items {
		m.stocks[item.SubproductID] -= item.Quantity
	}
	m.order = order
	m.cartDeleted = cartID
	if m.carts != nil {
		m.carts.m.Lock()
		if m.carts.cart != nil && m.carts.cart.ID == cartID {
			m.carts.cart = nil
		}
		m.carts.m.Unlock()
	}
	return nil
}
