package checkout

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrInFlight          = errors.New("a checkout request is already in progress")
	ErrSessionStale      = errors.New("payment session can no longer be confirmed")
	ErrDialogNotFound    = errors.New("checkout dialog not found")
	ErrDialogClosed      = errors.New("checkout dialog was closed")
	ErrIllegalTransition = errors.New("illegal transition of checkout state")
)

const (
	reasonGatewayFallback   = "We could not start the payment. Please try again."
	reasonUnreachable       = "The payment service is not responding. Please try again in a moment."
	reasonCardFormFailed    = "The card form could not be loaded. Please try again."
	reasonConfirmFailed     = "The payment could not be completed. Please try again."
	reasonNotConfirmed      = "Your payment could not be confirmed. You have not been sent an order confirmation."
	reasonTimeout           = "The payment request timed out. Please try again."
	noticePaymentSuccessful = "Payment successful! Redirecting to your order confirmation."
)
