package capture

import "errors"

var (
	ErrNotReady          = errors.New("card input is not mounted")
	ErrAlreadyMounted    = errors.New("card input already mounted for this handle")
	ErrStaleHandle       = errors.New("capture handle was replaced by a newer initialization")
	ErrDeclinedOrInvalid = errors.New("card declined or invalid")
	ErrSecretConsumed    = errors.New("client secret was already confirmed")
	ErrSDKUnavailable    = errors.New("card processor SDK could not be loaded")
	ErrUnavailable       = errors.New("card processor unreachable")
	ErrMissingPublicKey  = errors.New("public key is required")
)

// DeclinedError is a card or payment problem reported by the processor. Message is
// safe to show to the shopper.
type DeclinedError struct {
	Message string
}

func (e *DeclinedError) Error() string {
	return "card declined or invalid: " + e.Message
}

func (e *DeclinedError) Is(target error) bool {
	return target == ErrDeclinedOrInvalid
}

func declined(msg string) *DeclinedError {
	return &DeclinedError{Message: msg}
}
