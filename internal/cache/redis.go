package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, kind domain.DealKind) ([]domain.Deal, error) {
	key := cacheKey(kind)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var deals []domain.Deal
	if err2 := json.Unmarshal(data, &deals); err2 != nil {
		return nil, fmt.Errorf("unmarshal deals failed: %w", err2)
	}

	return deals, nil
}

func (r *RedisCache) Set(ctx context.Context, kind domain.DealKind, deals []domain.Deal) error {
	key := cacheKey(kind)
	data, err := json.Marshal(deals)
	if err != nil {
		return fmt.Errorf("marshal deals failed: %w", err)
	}

	// jitter spreads expiry so all kinds don't refill at once
	jitter := time.Duration(rand.Intn(15)) * time.Second
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, kind domain.DealKind) error {
	if err := r.client.Del(ctx, cacheKey(kind)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(kind domain.DealKind) string {
	return fmt.Sprintf("deals:%s", kind)
}
