package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/ErnestIssa/peak-mode/internal/cache"
	"github.com/ErnestIssa/peak-mode/internal/domain"
	"github.com/ErnestIssa/peak-mode/internal/repository"
)

// Store is the per-profile cart. Items keep insertion order and lines
// sharing an ItemKey are merged.
type Store struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group
	locks *keyedMutex
}

func NewStore(repo repository.CartRepository, c cache.CartCache) *Store {
	if c == nil {
		c = cache.Noop{}
	}
	return &Store{
		repo:  repo,
		cache: c,
		locks: newKeyedMutex(),
	}
}

func (s *Store) GetAll(ctx context.Context, profileID string) ([]domain.CartItem, error) {
	if profileID == "" {
		return nil, ErrMissingProfile
	}

	v, err, _ := s.sfg.Do(profileID, func() (interface{}, error) {
		items, err := s.cache.Get(ctx, profileID)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("cart cache get failed", "profile_id", profileID, "error", err)
		}

		unlock := s.locks.Lock(profileID)
		defer unlock()

		items, err = s.load(ctx, profileID)
		if err != nil {
			return nil, err
		}
		s.fillCache(profileID, items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	return cloneItems(v.([]domain.CartItem)), nil
}

// AddOrMergeItem appends item, or adds its quantity to the line with the
// same key.
func (s *Store) AddOrMergeItem(ctx context.Context, profileID string, item domain.CartItem) ([]domain.CartItem, error) {
	if profileID == "" {
		return nil, ErrMissingProfile
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, profileID, func(items []domain.CartItem) ([]domain.CartItem, error) {
		for _, existing := range items {
			if !strings.EqualFold(existing.Currency, item.Currency) {
				return nil, fmt.Errorf("%w: cart is in %s", ErrCurrencyMismatch, existing.Currency)
			}
		}

		key := item.Key()
		for i := range items {
			if items[i].Key() == key {
				items[i].Quantity += item.Quantity
				return items, nil
			}
		}
		return append(items, item), nil
	})
}

// UpdateQuantity sets the quantity of one line. A quantity of zero or less
// removes it.
func (s *Store) UpdateQuantity(ctx context.Context, profileID string, key domain.ItemKey, quantity int) ([]domain.CartItem, error) {
	if profileID == "" {
		return nil, ErrMissingProfile
	}

	return s.mutate(ctx, profileID, func(items []domain.CartItem) ([]domain.CartItem, error) {
		idx := indexOf(items, key)
		if idx < 0 {
			return nil, ErrItemNotFound
		}
		if quantity <= 0 {
			return append(items[:idx], items[idx+1:]...), nil
		}
		items[idx].Quantity = quantity
		return items, nil
	})
}

func (s *Store) RemoveItem(ctx context.Context, profileID string, key domain.ItemKey) ([]domain.CartItem, error) {
	if profileID == "" {
		return nil, ErrMissingProfile
	}

	return s.mutate(ctx, profileID, func(items []domain.CartItem) ([]domain.CartItem, error) {
		idx := indexOf(items, key)
		if idx < 0 {
			return nil, ErrItemNotFound
		}
		return append(items[:idx], items[idx+1:]...), nil
	})
}

func (s *Store) Clear(ctx context.Context, profileID string) error {
	if profileID == "" {
		return ErrMissingProfile
	}

	unlock := s.locks.Lock(profileID)
	defer unlock()

	err := s.repo.DeleteCart(ctx, profileID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		slog.Error("cart delete failed", "profile_id", profileID, "error", err)
		return err
	}

	s.invalidate(profileID)
	return nil
}

// GetTotal sums unit price times quantity over the lines in currency.
func (s *Store) GetTotal(ctx context.Context, profileID, currency string) (decimal.Decimal, error) {
	items, err := s.GetAll(ctx, profileID)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(items, currency), nil
}

func Total(items []domain.CartItem, currency string) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if strings.EqualFold(it.Currency, currency) {
			total = total.Add(it.Subtotal())
		}
	}
	return total
}

// Currency reports the single currency of a cart, or "" when it is empty.
func Currency(items []domain.CartItem) string {
	if len(items) == 0 {
		return ""
	}
	return strings.ToUpper(items[0].Currency)
}

func (s *Store) mutate(ctx context.Context, profileID string, apply func([]domain.CartItem) ([]domain.CartItem, error)) ([]domain.CartItem, error) {
	unlock := s.locks.Lock(profileID)
	defer unlock()

	items, err := s.load(ctx, profileID)
	if err != nil {
		return nil, err
	}

	updated, err := apply(items)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveCart(ctx, profileID, updated); err != nil {
		slog.Error("cart save failed", "profile_id", profileID, "error", err)
		return nil, err
	}

	s.invalidate(profileID)
	return cloneItems(updated), nil
}

func (s *Store) load(ctx context.Context, profileID string) ([]domain.CartItem, error) {
	stored, err := s.repo.GetCart(ctx, profileID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return []domain.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	return cloneItems(stored.Items), nil
}

func (s *Store) fillCache(profileID string, items []domain.CartItem) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, profileID, items); err != nil {
		slog.Warn("cart cache set failed", "profile_id", profileID, "error", err)
	}
}

func (s *Store) invalidate(profileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, profileID); err != nil {
		slog.Warn("cart cache invalidate failed", "profile_id", profileID, "error", err)
	}
}

func indexOf(items []domain.CartItem, key domain.ItemKey) int {
	for i := range items {
		if items[i].Key() == key {
			return i
		}
	}
	return -1
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}
