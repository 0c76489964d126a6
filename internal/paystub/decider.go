package paystub

import (
	"math/rand"
	"strings"
)

// Decision is what the simulated processor does with a confirmation.
type Decision struct {
	Status  string // intent status after confirmation
	Decline string // card error message; set only when declined
}

type Decider interface {
	Decide(paymentMethod string) Decision
}

// RandomDecider approves 95% of confirmations and declines the rest with a known reason.
type RandomDecider struct{}

func (RandomDecider) Decide(string) Decision {
	return calcDecision(rand.Intn(101)) // 101 because Intn is exclusive of the upper bound
}

var declineReasons = []string{
	"Your card was declined.",
	"Your card has insufficient funds.",
	"Your card has expired.",
	"Your card's security code is incorrect.",
	"An error occurred while processing your card.",
}

func calcDecision(randomInt int) Decision {
	if randomInt < 95 {
		return Decision{Status: StatusSucceeded}
	}
	reason := randomInt - 95
	if reason <= 0 || reason > len(declineReasons) {
		return Decision{Status: StatusRequiresPaymentMethod, Decline: "Your card was declined."}
	}
	return Decision{Status: StatusRequiresPaymentMethod, Decline: declineReasons[reason-1]}
}

// TokenDecider follows the processor's well-known test tokens.
type TokenDecider struct{}

func (TokenDecider) Decide(paymentMethod string) Decision {
	pm := strings.ToLower(paymentMethod)
	switch {
	case strings.Contains(pm, "insufficientfunds"):
		return Decision{Status: StatusRequiresPaymentMethod, Decline: "Your card has insufficient funds."}
	case strings.Contains(pm, "chargedeclined"):
		return Decision{Status: StatusRequiresPaymentMethod, Decline: "Your card was declined."}
	case strings.Contains(pm, "processing"):
		return Decision{Status: StatusProcessing}
	default:
		return Decision{Status: StatusSucceeded}
	}
}
