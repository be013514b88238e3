package cache

import (
	"context"
	"errors"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
)

// DealCache holds recently fetched active-deal lists, keyed by scope kind.
// Price display hits this on every request; entries may be slightly stale,
// so the pricing engine re-checks each deal's window at evaluation time.
type DealCache interface {
	Get(ctx context.Context, kind domain.DealKind) ([]domain.Deal, error)
	Set(ctx context.Context, kind domain.DealKind, deals []domain.Deal) error
	Delete(ctx context.Context, kind domain.DealKind) error
}

var ErrCacheMiss = errors.New("cache miss")
