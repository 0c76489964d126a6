package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ErnestIssa/peak-mode/internal/domain"
	"github.com/ErnestIssa/peak-mode/internal/gateway"
)

// PaymentGateway is the slice of the VornifyPay client the orchestrator needs.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, currency string, order gateway.OrderDescriptor) (*domain.PaymentSession, error)
	VerifyPayment(ctx context.Context, paymentIntentID string) (*gateway.Verification, error)
}

type CartStore interface {
	GetAll(ctx context.Context, profileID string) ([]domain.CartItem, error)
	Clear(ctx context.Context, profileID string) error
}

// CompletedOrder is handed to notifiers once a payment is verified.
type CompletedOrder struct {
	PaymentIntentID string
	ProfileID       string
	Customer        domain.CustomerInfo
	Items           []domain.CartItem
	Total           decimal.Decimal
	Currency        string
	CompletedAt     time.Time
}

type Notifier interface {
	OrderCompleted(ctx context.Context, order CompletedOrder) error
}

type NotifierFunc func(ctx context.Context, order CompletedOrder) error

func (f NotifierFunc) OrderCompleted(ctx context.Context, order CompletedOrder) error {
	return f(ctx, order)
}
