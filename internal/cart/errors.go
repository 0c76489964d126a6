package cart

import "errors"

var (
	ErrItemNotFound     = errors.New("item not found in cart")
	ErrCurrencyMismatch = errors.New("cart already holds items in another currency")
	ErrMissingProfile   = errors.New("profile id is required")
)
