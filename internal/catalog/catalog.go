package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("product has no variant with that size and color")
	ErrUnknownSource   = errors.New("unknown product source")
	ErrUpstream        = errors.New("product source unavailable")
)

// Source is one product catalog. Implementations decode their own payloads
// into domain.Product.
type Source interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

// Resolver dispatches catalog calls by product source tag.
type Resolver struct {
	sources map[domain.Source]Source
}

func NewResolver() *Resolver {
	return &Resolver{sources: make(map[domain.Source]Source)}
}

func (r *Resolver) Register(tag domain.Source, s Source) {
	r.sources[tag] = s
}

func (r *Resolver) Sources() []domain.Source {
	out := make([]domain.Source, 0, len(r.sources))
	for _, tag := range []domain.Source{domain.SourceInternal, domain.SourcePrintful, domain.SourceCJDropshipping, domain.SourceTest} {
		if _, ok := r.sources[tag]; ok {
			out = append(out, tag)
		}
	}
	return out
}

func (r *Resolver) source(tag domain.Source) (Source, error) {
	s, ok := r.sources[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, tag)
	}
	return s, nil
}

func (r *Resolver) List(ctx context.Context, tag domain.Source) ([]domain.Product, error) {
	s, err := r.source(tag)
	if err != nil {
		return nil, err
	}
	return s.List(ctx)
}

func (r *Resolver) Get(ctx context.Context, tag domain.Source, id string) (*domain.Product, error) {
	s, err := r.source(tag)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// ItemRequest is what a shopper asks to put in the cart. Price and name are
// taken from the catalog, never from the request.
type ItemRequest struct {
	Source   domain.Source
	ID       string
	Size     string
	Color    string
	Quantity int
}

// CartItem looks the product up and prices the requested variant.
func (r *Resolver) CartItem(ctx context.Context, req ItemRequest) (domain.CartItem, error) {
	p, err := r.Get(ctx, req.Source, req.ID)
	if err != nil {
		return domain.CartItem{}, err
	}

	price, ok := p.PriceFor(req.Size, req.Color)
	if !ok {
		return domain.CartItem{}, fmt.Errorf("%w: %s/%s", ErrVariantNotFound, req.Size, req.Color)
	}

	return domain.CartItem{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: price,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
		Currency:  strings.ToUpper(p.Currency),
		Source:    req.Source,
	}, nil
}
