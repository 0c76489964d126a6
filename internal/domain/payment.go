package domain

import "log/slog"

// PaymentSession is what a successful create-payment call hands back. It scopes
// one confirmation attempt and must never be logged or stored.
type PaymentSession struct {
	PublicKey       string
	ClientSecret    string
	PaymentIntentID string
}

func (PaymentSession) String() string {
	return "PaymentSession{redacted}"
}

func (PaymentSession) LogValue() slog.Value {
	return slog.StringValue("redacted")
}

type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeCancelled OutcomeKind = "cancelled"
)

type PaymentOutcome struct {
	Kind            OutcomeKind
	PaymentIntentID string
	Reason          string
}

func Succeeded(paymentIntentID string) PaymentOutcome {
	return PaymentOutcome{Kind: OutcomeSucceeded, PaymentIntentID: paymentIntentID}
}

func Failed(reason string) PaymentOutcome {
	return PaymentOutcome{Kind: OutcomeFailed, Reason: reason}
}

func Cancelled() PaymentOutcome {
	return PaymentOutcome{Kind: OutcomeCancelled}
}
