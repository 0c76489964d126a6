package domain

import "github.com/shopspring/decimal"

// Product is the shape every catalog source is decoded into.
type Product struct {
	ID          string
	Source      Source
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    string
	Images      []string
	Variants    []Variant
}

type Variant struct {
	ID    string
	Size  string
	Color string
	Price decimal.Decimal
}

// PriceFor returns the price of the variant matching size and color, falling back
// to the product price. ok is false when the product has variants and none match.
func (p *Product) PriceFor(size, color string) (decimal.Decimal, bool) {
	if len(p.Variants) == 0 {
		return p.Price, true
	}
	for _, v := range p.Variants {
		if v.Size == size && v.Color == color {
			if v.Price.IsZero() {
				return p.Price, true
			}
			return v.Price, true
		}
	}
	return decimal.Zero, false
}
