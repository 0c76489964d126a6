package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

// Redirect is a deferred navigation the browser performs after After has passed.
type Redirect struct {
	Path  string
	After time.Duration
}

// View is what the shopper sees of a dialog. It never carries the client secret.
type View struct {
	ID              string
	State           domain.CheckoutState
	Reason          string
	Notice          string
	PublicKey       string
	PaymentIntentID string
	Amount          decimal.Decimal
	Currency        string
	CanRetryCard    bool
	Loading         bool
	Redirect        *Redirect
}

// RetryFrom selects where a failed dialog resumes.
type RetryFrom int

const (
	// RetryFromInfo discards the payment session and asks for customer details again.
	RetryFromInfo RetryFrom = iota + 1
	// RetryFromCard keeps the session and asks for card details again.
	RetryFromCard
)

func ParseRetryFrom(v string) (RetryFrom, bool) {
	switch v {
	case "info", "":
		return RetryFromInfo, true
	case "card":
		return RetryFromCard, true
	}
	return 0, false
}
