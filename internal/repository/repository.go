package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// Cart is the durable cart entry of one browser profile.
type Cart struct {
	ProfileID string
	Items     []domain.CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartRepository persists whole cart entries. The cart store owns merge
// semantics, so implementations only read and replace the item list.
type CartRepository interface {
	GetCart(ctx context.Context, profileID string) (*Cart, error)
	SaveCart(ctx context.Context, profileID string, items []domain.CartItem) error
	DeleteCart(ctx context.Context, profileID string) error
}
