package cart

import (
	"context"
	"sync"

	"github.com/ErnestIssa/peak-mode/internal/cache"
	"github.com/ErnestIssa/peak-mode/internal/domain"
)

type mockCache struct {
	m       sync.Mutex
	entries map[string][]domain.CartItem
	getErr  error
	gets    int
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]domain.CartItem)}
}

func (c *mockCache) Get(_ context.Context, profileID string) ([]domain.CartItem, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	items, ok := c.entries[profileID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return items, nil
}

func (c *mockCache) Set(_ context.Context, profileID string, items []domain.CartItem) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.entries[profileID] = cloneItems(items)
	return nil
}

func (c *mockCache) Delete(_ context.Context, profileID string) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.deletes++
	delete(c.entries, profileID)
	return nil
}

func (c *mockCache) has(profileID string) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.entries[profileID]
	return ok
}
