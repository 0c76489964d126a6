package http

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ErnestIssa/peak-mode/internal/cart"
	"github.com/ErnestIssa/peak-mode/internal/catalog"
	"github.com/ErnestIssa/peak-mode/internal/domain"
)

// CatalogMock serves a fixed product list and records priced items.
type CatalogMock struct {
	products []domain.Product
	err      error

	mu     sync.Mutex
	priced []catalog.ItemRequest
}

func (m *CatalogMock) Sources() []domain.Source {
	return []domain.Source{domain.SourceInternal, domain.SourceTest}
}

func (m *CatalogMock) List(_ context.Context, tag domain.Source) ([]domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Product
	for _, p := range m.products {
		if p.Source == tag {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *CatalogMock) Get(_ context.Context, tag domain.Source, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.products {
		if m.products[i].Source == tag && m.products[i].ID == id {
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (m *CatalogMock) CartItem(ctx context.Context, req catalog.ItemRequest) (domain.CartItem, error) {
	m.mu.Lock()
	m.priced = append(m.priced, req)
	m.mu.Unlock()

	p, err := m.Get(ctx, req.Source, req.ID)
	if err != nil {
		return domain.CartItem{}, err
	}
	price, ok := p.PriceFor(req.Size, req.Color)
	if !ok {
		return domain.CartItem{}, catalog.ErrVariantNotFound
	}
	return domain.CartItem{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: price,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
		Currency:  p.Currency,
		Source:    p.Source,
	}, nil
}

// CartMock fails every call with err, or delegates to a real store.
type CartMock struct {
	*cart.Store
	err error
}

func (m CartMock) GetAll(ctx context.Context, profileID string) ([]domain.CartItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.Store.GetAll(ctx, profileID)
}

func (m CartMock) UpdateQuantity(ctx context.Context, profileID string, key domain.ItemKey, quantity int) ([]domain.CartItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.Store.UpdateQuantity(ctx, profileID, key, quantity)
}

func testProducts() []domain.Product {
	return []domain.Product{
		{
			ID:       "peak-hoodie",
			Source:   domain.SourceInternal,
			Name:     "Peak Hoodie",
			Price:    decimal.RequireFromString("799"),
			Currency: "SEK",
			Variants: []domain.Variant{
				{ID: "peak-hoodie-m-black", Size: "M", Color: "Black", Price: decimal.RequireFromString("799")},
				{ID: "peak-hoodie-xl-black", Size: "XL", Color: "Black", Price: decimal.RequireFromString("849")},
			},
		},
		{
			ID:       "test-product",
			Source:   domain.SourceTest,
			Name:     "Test Product",
			Price:    decimal.RequireFromString("5"),
			Currency: "SEK",
		},
	}
}
