package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ErnestIssa/peak-mode/internal/cart"
	"github.com/ErnestIssa/peak-mode/internal/catalog"
	"github.com/ErnestIssa/peak-mode/internal/domain"
)

// CartService is the cart store as seen by the HTTP layer.
type CartService interface {
	GetAll(ctx context.Context, profileID string) ([]domain.CartItem, error)
	AddOrMergeItem(ctx context.Context, profileID string, item domain.CartItem) ([]domain.CartItem, error)
	UpdateQuantity(ctx context.Context, profileID string, key domain.ItemKey, quantity int) ([]domain.CartItem, error)
	RemoveItem(ctx context.Context, profileID string, key domain.ItemKey) ([]domain.CartItem, error)
	Clear(ctx context.Context, profileID string) error
}

type CartHandler struct {
	cart    CartService
	catalog Catalog
	timeout time.Duration
}

func NewCartHandler(c CartService, products Catalog, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    c,
		catalog: products,
		timeout: timeout,
	}
}

type ItemKeyDTO struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Size   string `json:"size,omitempty"`
	Color  string `json:"color,omitempty"`
}

type AddItemRequestDTO struct {
	ItemKeyDTO
	Quantity int `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	ItemKeyDTO
	Quantity int `json:"quantity"`
}

type CartItemResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Price    json.Number   `json:"price"`
	Size     string        `json:"size,omitempty"`
	Color    string        `json:"color,omitempty"`
	Quantity int           `json:"quantity"`
	Currency string        `json:"currency"`
	Source   domain.Source `json:"source"`
	Subtotal json.Number   `json:"subtotal"`
}

type CartResponse struct {
	Items    []CartItemResponse `json:"items"`
	Total    json.Number        `json:"total"`
	Currency string             `json:"currency,omitempty"`
}

const maxQuantity = 99

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.cart.GetAll(ctx, profileFromContext(r.Context()))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(items))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	key, ok := parseItemKey(w, req.ItemKeyDTO)
	if !ok {
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	// prices always come from the catalog, never from the client
	item, err := h.catalog.CartItem(ctx, catalog.ItemRequest{
		Source:   key.Source,
		ID:       key.ID,
		Size:     key.Size,
		Color:    key.Color,
		Quantity: req.Quantity,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	items, err := h.cart.AddOrMergeItem(ctx, profileFromContext(r.Context()), item)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartResponse(items))
}

// PUT /api/v1/cart/items
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	key, ok := parseItemKey(w, req.ItemKeyDTO)
	if !ok {
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	items, err := h.cart.UpdateQuantity(ctx, profileFromContext(r.Context()), key, req.Quantity)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(items))
}

// DELETE /api/v1/cart/items
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ItemKeyDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	key, ok := parseItemKey(w, req)
	if !ok {
		return
	}

	items, err := h.cart.RemoveItem(ctx, profileFromContext(r.Context()), key)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(items))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.cart.Clear(ctx, profileFromContext(r.Context())); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(nil))
}

func parseItemKey(w http.ResponseWriter, dto ItemKeyDTO) (domain.ItemKey, bool) {
	if dto.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "id is required")
		return domain.ItemKey{}, false
	}
	src, err := domain.ParseSource(dto.Source)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown_source", err.Error())
		return domain.ItemKey{}, false
	}
	return domain.ItemKey{ID: dto.ID, Size: dto.Size, Color: dto.Color, Source: src}, true
}

func toCartResponse(items []domain.CartItem) CartResponse {
	currency := cart.Currency(items)
	res := CartResponse{
		Items:    make([]CartItemResponse, 0, len(items)),
		Total:    json.Number(cart.Total(items, currency).String()),
		Currency: currency,
	}
	for _, it := range items {
		res.Items = append(res.Items, CartItemResponse{
			ID:       it.ID,
			Name:     it.Name,
			Price:    json.Number(it.UnitPrice.String()),
			Size:     it.Size,
			Color:    it.Color,
			Quantity: it.Quantity,
			Currency: it.Currency,
			Source:   it.Source,
			Subtotal: json.Number(it.Subtotal().String()),
		})
	}
	return res
}
