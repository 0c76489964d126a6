package domain

type CheckoutState string

const (
	CheckoutStateCollectingInfo    CheckoutState = "COLLECTING_INFO"
	CheckoutStateInitiating        CheckoutState = "INITIATING"
	CheckoutStateAwaitingCardInput CheckoutState = "AWAITING_CARD_INPUT"
	CheckoutStateConfirming        CheckoutState = "CONFIRMING"
	CheckoutStateVerifying         CheckoutState = "VERIFYING"
	CheckoutStateSucceeded         CheckoutState = "SUCCEEDED"
	CheckoutStateFailed            CheckoutState = "FAILED"
	CheckoutStateCancelled         CheckoutState = "CANCELLED"
)

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}

var transitions = map[CheckoutState][]CheckoutState{
	CheckoutStateCollectingInfo:    {CheckoutStateInitiating, CheckoutStateCancelled},
	CheckoutStateInitiating:        {CheckoutStateAwaitingCardInput, CheckoutStateFailed, CheckoutStateCancelled},
	CheckoutStateAwaitingCardInput: {CheckoutStateConfirming, CheckoutStateCancelled},
	CheckoutStateConfirming:        {CheckoutStateVerifying, CheckoutStateFailed, CheckoutStateCancelled},
	CheckoutStateVerifying:         {CheckoutStateSucceeded, CheckoutStateFailed, CheckoutStateCancelled},
	CheckoutStateFailed:            {CheckoutStateCollectingInfo, CheckoutStateAwaitingCardInput, CheckoutStateCancelled},
}

func CanTransitionTo(from, to CheckoutState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
