package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, profileID string) ([]domain.CartItem, error) {
	key := cacheKey(profileID)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	items, err := domain.UnmarshalCartItems(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return items, nil
}

func (r RedisCache) Set(ctx context.Context, profileID string, items []domain.CartItem) error {
	key := cacheKey(profileID)
	data, err := domain.MarshalCartItems(items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, profileID string) error {
	key := cacheKey(profileID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func cacheKey(profileID string) string {
	return fmt.Sprintf("cart:%s", profileID)
}
