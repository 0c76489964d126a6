package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErnestIssa/peak-mode/internal/cache"
	"github.com/ErnestIssa/peak-mode/internal/domain"
	"github.com/ErnestIssa/peak-mode/internal/repository"
)

func tee(size string, qty int) domain.CartItem {
	return domain.CartItem{
		ID:        "tee-1",
		Name:      "Training Tee",
		UnitPrice: decimal.NewFromInt(50),
		Quantity:  qty,
		Size:      size,
		Color:     "black",
		Currency:  "SEK",
		Source:    domain.SourceInternal,
	}
}

func newTestStore() (*Store, *mockCache) {
	c := newMockCache()
	return NewStore(repository.NewMemoryRepository(), c), c
}

func TestAddOrMergeItem_NewItem(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	items, err := store.AddOrMergeItem(ctx, "p1", tee("M", 1))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestAddOrMergeItem_SameKeySumsQuantities(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.AddOrMergeItem(ctx, "p1", tee("M", 1))
	require.NoError(t, err)
	items, err := store.AddOrMergeItem(ctx, "p1", tee("M", 2))
	require.NoError(t, err)

	require.Len(t, items, 1, "merge must never duplicate a line")
	assert.Equal(t, 3, items[0].Quantity)
}

func TestAddOrMergeItem_DifferentKeyAppends(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	other := tee("M", 1)
	other.Source = domain.SourcePrintful

	for _, it := range []domain.CartItem{tee("M", 1), tee("L", 1), other} {
		_, err := store.AddOrMergeItem(ctx, "p1", it)
		require.NoError(t, err)
	}

	items, err := store.GetAll(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "M", items[0].Size)
	assert.Equal(t, "L", items[1].Size)
	assert.Equal(t, domain.SourcePrintful, items[2].Source)
}

func TestAddOrMergeItem_RejectsInvalidItem(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.AddOrMergeItem(context.Background(), "p1", tee("M", 0))
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "quantity", vErr.Field)
}

func TestAddOrMergeItem_RejectsMixedCurrency(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.AddOrMergeItem(ctx, "p1", tee("M", 1))
	require.NoError(t, err)

	eur := tee("S", 1)
	eur.Currency = "EUR"
	_, err = store.AddOrMergeItem(ctx, "p1", eur)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	items, err := store.GetAll(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAddOrMergeItem_MissingProfile(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.AddOrMergeItem(context.Background(), "", tee("M", 1))
	assert.ErrorIs(t, err, ErrMissingProfile)
}

func TestUpdateQuantity(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	_, err := store.AddOrMergeItem(ctx, "p1", tee("M", 1))
	require.NoError(t, err)

	items, err := store.UpdateQuantity(ctx, "p1", tee("M", 1).Key(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, items[0].Quantity)

	items, err = store.UpdateQuantity(ctx, "p1", tee("M", 1).Key(), 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = store.UpdateQuantity(ctx, "p1", tee("XL", 1).Key(), 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	_, err := store.AddOrMergeItem(ctx, "p1", tee("M", 1))
	require.NoError(t, err)
	_, err = store.AddOrMergeItem(ctx, "p1", tee("L", 1))
	require.NoError(t, err)

	items, err := store.RemoveItem(ctx, "p1", tee("M", 1).Key())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "L", items[0].Size)

	_, err = store.RemoveItem(ctx, "p1", tee("M", 1).Key())
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestClear(t *testing.T) {
	store, c := newTestStore()
	ctx := context.Background()
	_, err := store.AddOrMergeItem(ctx, "p1", tee("M", 1))
	require.NoError(t, err)
	_, err = store.GetAll(ctx, "p1")
	require.NoError(t, err)
	require.True(t, c.has("p1"))

	require.NoError(t, store.Clear(ctx, "p1"))
	assert.False(t, c.has("p1"))

	items, err := store.GetAll(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, items)

	// clearing an empty cart is not an error
	assert.NoError(t, store.Clear(ctx, "p1"))
}

func TestGetTotal(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, err := store.AddOrMergeItem(ctx, "p1", tee("M", 2))
	require.NoError(t, err)
	cheap := tee("L", 1)
	cheap.UnitPrice = decimal.RequireFromString("0.5")
	_, err = store.AddOrMergeItem(ctx, "p1", cheap)
	require.NoError(t, err)

	total, err := store.GetTotal(ctx, "p1", "sek")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.5").Equal(total), "got %s", total)

	total, err = store.GetTotal(ctx, "p1", "EUR")
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "", Currency(nil))
	it := tee("M", 1)
	it.Currency = "sek"
	assert.Equal(t, "SEK", Currency([]domain.CartItem{it}))
}

func TestGetAll_ServesFromCache(t *testing.T) {
	store, c := newTestStore()
	ctx := context.Background()
	c.entries["p1"] = []domain.CartItem{tee("M", 7)}

	items, err := store.GetAll(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)
}

func TestGetAll_CacheErrorFallsBackToRepository(t *testing.T) {
	store, c := newTestStore()
	ctx := context.Background()
	_, err := store.AddOrMergeItem(ctx, "p1", tee("M", 1))
	require.NoError(t, err)

	c.getErr = errors.New("connection refused")
	items, err := store.GetAll(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestWritesInvalidateCache(t *testing.T) {
	store, c := newTestStore()
	ctx := context.Background()

	_, err := store.AddOrMergeItem(ctx, "p1", tee("M", 1))
	require.NoError(t, err)
	_, err = store.GetAll(ctx, "p1")
	require.NoError(t, err)
	require.True(t, c.has("p1"))

	_, err = store.AddOrMergeItem(ctx, "p1", tee("M", 1))
	require.NoError(t, err)
	assert.False(t, c.has("p1"))

	items, err := store.GetAll(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestConcurrentAddsMergeWithoutLoss(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AddOrMergeItem(ctx, "p1", tee("M", 1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := store.GetAll(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, workers, items[0].Quantity)
	assert.Equal(t, 0, store.locks.size())
}

func TestStore_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewStore(repository.NewMemoryRepository(), cache.NewRedisCache(client))
	ctx := context.Background()

	_, err := store.AddOrMergeItem(ctx, "p1", tee("M", 2))
	require.NoError(t, err)

	items, err := store.GetAll(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, mr.Exists("cart:p1"))

	require.NoError(t, store.Clear(ctx, "p1"))
	assert.False(t, mr.Exists("cart:p1"))
}
