package checkout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ErnestIssa/peak-mode/internal/capture"
	"github.com/ErnestIssa/peak-mode/internal/domain"
	"github.com/ErnestIssa/peak-mode/pkg/metrics"
)

const (
	DefaultCallTimeout   = 30 * time.Second
	DefaultRedirectDelay = 2 * time.Second

	confirmationPath = "/order-confirmation"
	notifyTimeout    = 15 * time.Second
)

type Config struct {
	// CallTimeout bounds every gateway and card capture call.
	CallTimeout time.Duration
	// RedirectDelay is how long the success notice is shown before navigating.
	RedirectDelay time.Duration
	DialogTTL     time.Duration
}

func (c Config) withDefaults() Config {
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.RedirectDelay <= 0 {
		c.RedirectDelay = DefaultRedirectDelay
	}
	if c.DialogTTL <= 0 {
		c.DialogTTL = DefaultDialogTTL
	}
	return c
}

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifiers = append(o.notifiers, n)
	}
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// Orchestrator drives checkout dialogs from customer details to a verified payment.
type Orchestrator struct {
	gateway   PaymentGateway
	capture   *capture.Library
	cart      CartStore
	notifiers []Notifier
	metrics   *metrics.CheckoutMetrics
	registry  *Registry
	cfg       Config

	notifyWG sync.WaitGroup
}

func New(gw PaymentGateway, lib *capture.Library, cart CartStore, cfg Config, opts ...Option) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		gateway:  gw,
		capture:  lib,
		cart:     cart,
		cfg:      cfg,
		registry: NewRegistry(cfg.DialogTTL),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics != nil {
		gauge := o.metrics.OpenDialogs
		o.registry.onChange = func(open int) { gauge.Set(float64(open)) }
	}
	return o
}

// Open starts a new dialog for profileID in COLLECTING_INFO.
func (o *Orchestrator) Open(profileID string) *Dialog {
	d := &Dialog{
		id:        uuid.New().String(),
		profileID: profileID,
		o:         o,
		state:     domain.CheckoutStateCollectingInfo,
		adapter:   o.capture.NewAdapter(),
		slot:      capture.NewTokenSlot("card-element"),
		touched:   o.registry.now(),
	}
	o.registry.add(d)
	slog.Info("checkout dialog opened", "dialog_id", d.id, "profile_id", profileID)
	return d
}

func (o *Orchestrator) Dialog(id, profileID string) (*Dialog, error) {
	return o.registry.Get(id, profileID)
}

// Close cancels the dialog and forgets it. Closing an unknown dialog is
// ErrDialogNotFound.
func (o *Orchestrator) Close(id, profileID string) (View, error) {
	d, err := o.registry.Get(id, profileID)
	if err != nil {
		return View{}, err
	}
	view := d.Close()
	o.registry.remove(id)
	return view, nil
}

// Run expires idle dialogs until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	return o.registry.Run(ctx)
}

// Wait blocks until outstanding order notifications have finished.
func (o *Orchestrator) Wait() {
	o.notifyWG.Wait()
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.cfg.CallTimeout)
}

func (o *Orchestrator) observeCall(operation string, started time.Time, err error) {
	if o.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.metrics.CallLatency.WithLabelValues(operation, result).Observe(time.Since(started).Seconds())
}

func (o *Orchestrator) observeOutcome(outcome string) {
	if o.metrics == nil {
		return
	}
	o.metrics.Outcomes.WithLabelValues(outcome).Inc()
}

func (o *Orchestrator) notify(order CompletedOrder) {
	if len(o.notifiers) == 0 {
		return
	}
	o.notifyWG.Add(1)
	go func() {
		defer o.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		for _, n := range o.notifiers {
			if err := n.OrderCompleted(ctx, order); err != nil {
				slog.Error("order notification failed",
					"payment_intent_id", order.PaymentIntentID,
					"error", err)
			}
		}
	}()
}
