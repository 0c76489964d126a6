package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// persistedItem is the stored shape of a cart line:
// {id, name, price:number, size:string|null, color:string|null, quantity, currency, source}
type persistedItem struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Size     *string     `json:"size"`
	Color    *string     `json:"color"`
	Quantity int         `json:"quantity"`
	Currency string      `json:"currency"`
	Source   Source      `json:"source"`
}

func MarshalCartItems(items []CartItem) ([]byte, error) {
	out := make([]persistedItem, len(items))
	for i, it := range items {
		out[i] = persistedItem{
			ID:       it.ID,
			Name:     it.Name,
			Price:    json.Number(it.UnitPrice.String()),
			Size:     optional(it.Size),
			Color:    optional(it.Color),
			Quantity: it.Quantity,
			Currency: it.Currency,
			Source:   it.Source,
		}
	}
	return json.Marshal(out)
}

func UnmarshalCartItems(data []byte) ([]CartItem, error) {
	var in []persistedItem
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal cart items failed: %w", err)
	}

	items := make([]CartItem, len(in))
	for i, p := range in {
		price, err := decimal.NewFromString(p.Price.String())
		if err != nil {
			return nil, fmt.Errorf("invalid price for item %s: %w", p.ID, err)
		}
		source := p.Source
		if source == "" {
			source = SourceInternal
		}
		items[i] = CartItem{
			ID:        p.ID,
			Name:      p.Name,
			UnitPrice: price,
			Quantity:  p.Quantity,
			Size:      deref(p.Size),
			Color:     deref(p.Color),
			Currency:  p.Currency,
			Source:    source,
		}
	}
	return items, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
