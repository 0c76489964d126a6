package capture

import "context"

type Billing struct {
	Name  string
	Email string
	Phone string
}

// SDK is the card processor's client library: the secure card element and the
// calls it makes on the shopper's behalf.
type SDK interface {
	// Loaded reports whether the library is already present.
	Loaded() bool
	Load(ctx context.Context) error
	NewInstance(publicKey string) (Instance, error)
}

// Instance is one initialized copy of the library, bound to a public key.
type Instance interface {
	// Confirm confirms the payment intent behind clientSecret with the card token
	// produced by the secure element, returning the payment intent id.
	Confirm(ctx context.Context, clientSecret, cardToken string, billing Billing) (string, error)
	Destroy()
}

// Slot is where the secure card element is mounted. It only ever exposes the
// opaque token the element produced, never card data.
type Slot interface {
	Name() string
	Token() string
}
