package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Source tags where a product (and therefore a cart line) comes from.
type Source string

const (
	SourceInternal       Source = "internal"
	SourcePrintful       Source = "printful"
	SourceCJDropshipping Source = "cjdropshipping"
	SourceTest           Source = "test"
)

func (s Source) Valid() bool {
	switch s {
	case SourceInternal, SourcePrintful, SourceCJDropshipping, SourceTest:
		return true
	}
	return false
}

func ParseSource(v string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown product source %q", v)
	}
	return s, nil
}

// ItemKey identifies a cart line. Lines with equal keys are merged.
type ItemKey struct {
	ID     string `json:"id"`
	Size   string `json:"size,omitempty"`
	Color  string `json:"color,omitempty"`
	Source Source `json:"source"`
}

type CartItem struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Size      string
	Color     string
	Currency  string
	Source    Source
}

func (i CartItem) Key() ItemKey {
	return ItemKey{ID: i.ID, Size: i.Size, Color: i.Color, Source: i.Source}
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i CartItem) Validate() error {
	switch {
	case strings.TrimSpace(i.ID) == "":
		return &ValidationError{Field: "id", Message: "item id is required"}
	case i.Quantity <= 0:
		return &ValidationError{Field: "quantity", Message: "quantity must be positive"}
	case i.UnitPrice.IsNegative():
		return &ValidationError{Field: "price", Message: "price must not be negative"}
	case strings.TrimSpace(i.Currency) == "":
		return &ValidationError{Field: "currency", Message: "currency is required"}
	case !i.Source.Valid():
		return &ValidationError{Field: "source", Message: "unknown product source"}
	}
	return nil
}
