package repository

import (
	"context"
	"sync"
	"time"

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

type memoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*Cart
	now   func() time.Time
}

func NewMemoryRepository() CartRepository {
	return &memoryRepository{
		carts: make(map[string]*Cart),
		now:   time.Now,
	}
}

func (m *memoryRepository) GetCart(_ context.Context, profileID string) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cart, ok := m.carts[profileID]
	if !ok {
		return nil, ErrCartNotFound
	}

	out := *cart
	out.Items = cloneItems(cart.Items)
	return &out, nil
}

func (m *memoryRepository) SaveCart(_ context.Context, profileID string, items []domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cart, ok := m.carts[profileID]
	if !ok {
		cart = &Cart{ProfileID: profileID, CreatedAt: now}
		m.carts[profileID] = cart
	}
	cart.Items = cloneItems(items)
	cart.UpdatedAt = now
	return nil
}

func (m *memoryRepository) DeleteCart(_ context.Context, profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[profileID]; !ok {
		return ErrCartNotFound
	}
	delete(m.carts, profileID)
	return nil
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	if items == nil {
		return []domain.CartItem{}
	}
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}
