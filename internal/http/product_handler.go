package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ErnestIssa/peak-mode/internal/catalog"
	"github.com/ErnestIssa/peak-mode/internal/domain"
)

// Catalog is the read side of the product sources.
type Catalog interface {
	Sources() []domain.Source
	List(ctx context.Context, tag domain.Source) ([]domain.Product, error)
	Get(ctx context.Context, tag domain.Source, id string) (*domain.Product, error)
	CartItem(ctx context.Context, req catalog.ItemRequest) (domain.CartItem, error)
}

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewProductHandler(c Catalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: c,
		timeout: timeout,
	}
}

type VariantResponse struct {
	ID    string      `json:"id"`
	Size  string      `json:"size,omitempty"`
	Color string      `json:"color,omitempty"`
	Price json.Number `json:"price"`
}

type ProductResponse struct {
	ID          string            `json:"id"`
	Source      domain.Source     `json:"source"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Price       json.Number       `json:"price"`
	Currency    string            `json:"currency"`
	Images      []string          `json:"images,omitempty"`
	Variants    []VariantResponse `json:"variants,omitempty"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

// GET /api/v1/products?source=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sources := h.catalog.Sources()
	if q := r.URL.Query().Get("source"); q != "" {
		tag, err := domain.ParseSource(q)
		if err != nil {
			respondError(w, http.StatusBadRequest, "unknown_source", err.Error())
			return
		}
		sources = []domain.Source{tag}
	}

	products := make([]ProductResponse, 0)
	for _, tag := range sources {
		list, err := h.catalog.List(ctx, tag)
		if err != nil {
			handleError(w, err)
			return
		}
		for i := range list {
			products = append(products, toProductResponse(&list[i]))
		}
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

// GET /api/v1/products/{source}/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tag, err := domain.ParseSource(chi.URLParam(r, "source"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown_source", err.Error())
		return
	}

	p, err := h.catalog.Get(ctx, tag, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProductResponse(p))
}

func toProductResponse(p *domain.Product) ProductResponse {
	res := ProductResponse{
		ID:          p.ID,
		Source:      p.Source,
		Name:        p.Name,
		Description: p.Description,
		Price:       json.Number(p.Price.String()),
		Currency:    p.Currency,
		Images:      p.Images,
	}
	for _, v := range p.Variants {
		res.Variants = append(res.Variants, VariantResponse{
			ID:    v.ID,
			Size:  v.Size,
			Color: v.Color,
			Price: json.Number(v.Price.String()),
		})
	}
	return res
}
