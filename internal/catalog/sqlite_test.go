package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations())
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations())
}

func TestList_InternalProducts(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ForSource(domain.SourceInternal).List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 4)

	hoodie := products[0]
	assert.Equal(t, "peak-hoodie", hoodie.ID)
	assert.Equal(t, domain.SourceInternal, hoodie.Source)
	assert.Equal(t, "SEK", hoodie.Currency)
	assert.True(t, decimal.NewFromInt(799).Equal(hoodie.Price))
	assert.Len(t, hoodie.Variants, 4)
	assert.Equal(t, []string{"/images/products/peak-hoodie.jpg"}, hoodie.Images)
}

func TestList_TestSourceIsSeparate(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ForSource(domain.SourceTest).List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "test-product", products[0].ID)
	assert.Empty(t, products[0].Images)
}

func TestList_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ForSource(domain.SourceInternal).List(ctx)
	assert.ErrorContains(t, err, "failed to query products")
}

func TestGet_ReturnsProductWithVariants(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.ForSource(domain.SourceInternal).Get(context.Background(), "peak-hoodie")
	require.NoError(t, err)
	assert.Equal(t, "Peak Mode Hoodie", p.Name)

	price, ok := p.PriceFor("XL", "Black")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(849).Equal(price))

	price, ok = p.PriceFor("M", "Black")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(799).Equal(price))
}

func TestGet_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.ForSource(domain.SourceInternal).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)

	// a test product is not visible through the internal source
	_, err = repo.ForSource(domain.SourceInternal).Get(context.Background(), "test-product")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
