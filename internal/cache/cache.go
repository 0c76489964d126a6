package cache

import (
	"context"
	"errors"

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

// CartCache holds the serialized cart entry of a browser profile.
type CartCache interface {
	Get(ctx context.Context, profileID string) ([]domain.CartItem, error)
	Set(ctx context.Context, profileID string, items []domain.CartItem) error
	Delete(ctx context.Context, profileID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop never hits. It is used when no cache backend is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]domain.CartItem, error) { return nil, ErrCacheMiss }

func (Noop) Set(context.Context, string, []domain.CartItem) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }
