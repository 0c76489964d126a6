package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ErnestIssa/peak-mode/internal/capture"
	"github.com/ErnestIssa/peak-mode/internal/domain"
	"github.com/ErnestIssa/peak-mode/internal/gateway"
)

type createCall struct {
	Amount   decimal.Decimal
	Currency string
	Order    gateway.OrderDescriptor
	CtxErr   error
}

// MockGateway implements PaymentGateway for testing
type MockGateway struct {
	m           sync.Mutex
	Session     *domain.PaymentSession
	CreateErr   error
	Verify      *gateway.Verification
	VerifyErr   error
	CreateCalls []createCall
	VerifyCalls []string

	// when set, the call signals on *Started and waits for *Release or ctx
	CreateStarted chan struct{}
	CreateRelease chan struct{}
	VerifyStarted chan struct{}
	VerifyRelease chan struct{}

	VerifyDelay time.Duration
}

func (m *MockGateway) CreatePayment(ctx context.Context, amount decimal.Decimal, currency string, order gateway.OrderDescriptor) (*domain.PaymentSession, error) {
	m.m.Lock()
	m.CreateCalls = append(m.CreateCalls, createCall{Amount: amount, Currency: currency, Order: order, CtxErr: ctx.Err()})
	started, release := m.CreateStarted, m.CreateRelease
	m.m.Unlock()

	if err := wait(ctx, started, release); err != nil {
		return nil, err
	}

	m.m.Lock()
	defer m.m.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	s := *m.Session
	return &s, nil
}

func (m *MockGateway) VerifyPayment(ctx context.Context, paymentIntentID string) (*gateway.Verification, error) {
	m.m.Lock()
	m.VerifyCalls = append(m.VerifyCalls, paymentIntentID)
	started, release := m.VerifyStarted, m.VerifyRelease
	m.m.Unlock()

	if err := wait(ctx, started, release); err != nil {
		return nil, err
	}
	if err := sleep(ctx, m.VerifyDelay); err != nil {
		return nil, err
	}

	m.m.Lock()
	defer m.m.Unlock()
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	v := *m.Verify
	return &v, nil
}

func (m *MockGateway) createCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.CreateCalls)
}

func (m *MockGateway) verifyCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.VerifyCalls)
}

func wait(ctx context.Context, started, release chan struct{}) error {
	if started != nil {
		started <- struct{}{}
	}
	if release == nil {
		return nil
	}
	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sleep waits for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MockSDK implements capture.SDK for testing
type MockSDK struct {
	loaded    atomic.Bool
	loads     atomic.Int32
	instances atomic.Int32

	// token -> outcome of Confirm
	Declines     map[string]string
	IntentID     string
	ConfirmDelay time.Duration
	ConfirmErr   error
}

func (s *MockSDK) Loaded() bool { return s.loaded.Load() }

func (s *MockSDK) Load(context.Context) error {
	s.loads.Add(1)
	s.loaded.Store(true)
	return nil
}

func (s *MockSDK) NewInstance(publicKey string) (capture.Instance, error) {
	s.instances.Add(1)
	return &mockInstance{sdk: s, publicKey: publicKey}, nil
}

type mockInstance struct {
	sdk       *MockSDK
	publicKey string
	destroyed atomic.Bool
}

func (i *mockInstance) Confirm(ctx context.Context, _ string, cardToken string, _ capture.Billing) (string, error) {
	if err := sleep(ctx, i.sdk.ConfirmDelay); err != nil {
		return "", err
	}
	if i.sdk.ConfirmErr != nil {
		return "", i.sdk.ConfirmErr
	}
	if msg, ok := i.sdk.Declines[cardToken]; ok {
		return "", &capture.DeclinedError{Message: msg}
	}
	return i.sdk.IntentID, nil
}

func (i *mockInstance) Destroy() {
	i.destroyed.Store(true)
}

type recordingNotifier struct {
	m      sync.Mutex
	orders []CompletedOrder
}

func (n *recordingNotifier) OrderCompleted(_ context.Context, order CompletedOrder) error {
	n.m.Lock()
	defer n.m.Unlock()
	n.orders = append(n.orders, order)
	return nil
}

func (n *recordingNotifier) all() []CompletedOrder {
	n.m.Lock()
	defer n.m.Unlock()
	return append([]CompletedOrder(nil), n.orders...)
}
