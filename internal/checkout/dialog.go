package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ErnestIssa/peak-mode/internal/capture"
	"github.com/ErnestIssa/peak-mode/internal/cart"
	"github.com/ErnestIssa/peak-mode/internal/domain"
	"github.com/ErnestIssa/peak-mode/internal/gateway"
)

// Dialog is one checkout attempt. At most one action runs at a time; network
// calls run outside the mutex and their results are dropped if the dialog was
// closed meanwhile.
type Dialog struct {
	id        string
	profileID string
	o         *Orchestrator
	adapter   *capture.Adapter
	slot      *capture.TokenSlot

	mu              sync.Mutex
	state           domain.CheckoutState
	epoch           uint64
	loading         bool
	customer        domain.CustomerInfo
	items           []domain.CartItem
	amount          decimal.Decimal
	currency        string
	session         *domain.PaymentSession
	sessionFresh    bool
	handle          *capture.Handle
	reason          string
	notice          string
	paymentIntentID string
	redirect        *Redirect
	touched         time.Time
}

func (d *Dialog) ID() string {
	return d.id
}

func (d *Dialog) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

// Continue validates the customer details and starts a payment for the
// current cart. Invalid details leave the dialog in COLLECTING_INFO and make
// no network call.
func (d *Dialog) Continue(ctx context.Context, info domain.CustomerInfo) (View, error) {
	d.mu.Lock()
	if err := d.beginLocked(domain.CheckoutStateCollectingInfo); err != nil {
		defer d.mu.Unlock()
		return d.viewLocked(), err
	}
	if err := info.Validate(); err != nil {
		defer d.mu.Unlock()
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			d.reason = vErr.Message
		}
		return d.viewLocked(), err
	}
	customer := info.Normalized()
	d.customer = customer
	d.reason = ""
	d.loading = true
	epoch := d.epoch
	d.mu.Unlock()

	items, err := d.o.cart.GetAll(ctx, d.profileID)
	if err == nil && len(items) == 0 {
		err = ErrEmptyCart
	}
	if err != nil {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.epoch == epoch {
			d.loading = false
		}
		return d.viewLocked(), err
	}
	currency := cart.Currency(items)
	amount := cart.Total(items, currency)

	d.mu.Lock()
	if d.epoch != epoch {
		defer d.mu.Unlock()
		return d.viewLocked(), ErrDialogClosed
	}
	if err := d.transitionLocked(domain.CheckoutStateInitiating); err != nil {
		defer d.mu.Unlock()
		d.loading = false
		return d.viewLocked(), err
	}
	d.items = items
	d.amount = amount
	d.currency = currency
	d.mu.Unlock()

	createCtx, cancel := d.o.callContext(ctx)
	started := time.Now()
	session, err := d.o.gateway.CreatePayment(createCtx, amount, currency, orderFor(customer, items))
	cancel()
	d.o.observeCall("create_payment", started, err)
	if err != nil {
		slog.Warn("create payment failed", "dialog_id", d.id, "error", err)
		return d.finishFailed(epoch, createFailureReason(err), false)
	}

	mountCtx, cancel := d.o.callContext(ctx)
	started = time.Now()
	handle, err := d.mountCardInput(mountCtx, session.PublicKey)
	cancel()
	d.o.observeCall("mount_card_input", started, err)
	if err != nil {
		slog.Error("card input could not be mounted", "dialog_id", d.id, "error", err)
		return d.finishFailed(epoch, reasonCardFormFailed, false)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
	if d.epoch != epoch {
		slog.Info("discarding create payment response for closed dialog", "dialog_id", d.id)
		d.adapter.Teardown()
		return d.viewLocked(), ErrDialogClosed
	}
	if err := d.transitionLocked(domain.CheckoutStateAwaitingCardInput); err != nil {
		return d.viewLocked(), err
	}
	d.session = session
	d.sessionFresh = true
	d.handle = handle
	return d.viewLocked(), nil
}

// Pay confirms the card behind token and verifies the result with the payment
// service. Only a verified success clears the cart.
func (d *Dialog) Pay(ctx context.Context, token string) (View, error) {
	d.mu.Lock()
	if err := d.beginLocked(domain.CheckoutStateAwaitingCardInput); err != nil {
		defer d.mu.Unlock()
		return d.viewLocked(), err
	}
	if err := d.transitionLocked(domain.CheckoutStateConfirming); err != nil {
		defer d.mu.Unlock()
		return d.viewLocked(), err
	}
	d.slot.Fill(token)
	d.loading = true
	d.reason = ""
	epoch := d.epoch
	session := *d.session
	handle := d.handle
	billing := capture.Billing{Name: d.customer.Name, Email: d.customer.Email, Phone: d.customer.Phone}
	d.mu.Unlock()

	confirmCtx, cancel := d.o.callContext(ctx)
	started := time.Now()
	intentID, err := d.adapter.Confirm(confirmCtx, handle, session.ClientSecret, billing)
	cancel()
	d.o.observeCall("confirm_card", started, err)
	if err != nil {
		reason, fresh := d.confirmFailure(err)
		return d.finishFailed(epoch, reason, fresh)
	}
	if intentID == "" {
		intentID = session.PaymentIntentID
	}

	d.mu.Lock()
	if d.epoch != epoch {
		defer d.mu.Unlock()
		slog.Info("discarding card confirmation for closed dialog", "dialog_id", d.id)
		return d.viewLocked(), ErrDialogClosed
	}
	// the secret is spent from here on, whatever verification says
	d.sessionFresh = false
	if err := d.transitionLocked(domain.CheckoutStateVerifying); err != nil {
		defer d.mu.Unlock()
		d.loading = false
		return d.viewLocked(), err
	}
	d.mu.Unlock()

	verifyCtx, cancel := d.o.callContext(ctx)
	started = time.Now()
	verification, err := d.o.gateway.VerifyPayment(verifyCtx, intentID)
	cancel()
	d.o.observeCall("verify_payment", started, err)
	if err != nil {
		slog.Warn("verify payment failed", "dialog_id", d.id, "payment_intent_id", intentID, "error", err)
		return d.finishFailed(epoch, reasonNotConfirmed, false)
	}
	if !verification.Succeeded {
		slog.Warn("payment not confirmed by verification",
			"dialog_id", d.id,
			"payment_intent_id", intentID,
			"status", verification.Status)
		return d.finishFailed(epoch, reasonNotConfirmed, false)
	}

	return d.succeed(ctx, epoch, intentID)
}

// Retry resumes a FAILED dialog.
func (d *Dialog) Retry(from RetryFrom) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.beginLocked(domain.CheckoutStateFailed); err != nil {
		return d.viewLocked(), err
	}

	switch from {
	case RetryFromCard:
		if !d.sessionFresh || d.session == nil || d.handle == nil {
			return d.viewLocked(), ErrSessionStale
		}
		if err := d.transitionLocked(domain.CheckoutStateAwaitingCardInput); err != nil {
			return d.viewLocked(), err
		}
	default:
		d.discardSessionLocked()
		if err := d.transitionLocked(domain.CheckoutStateCollectingInfo); err != nil {
			return d.viewLocked(), err
		}
	}
	d.reason = ""
	return d.viewLocked(), nil
}

// Close cancels the dialog and discards its payment session. Responses to
// calls started before Close are ignored. Closing a finished dialog is a no-op.
func (d *Dialog) Close() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	return d.viewLocked()
}

// closeIfIdle closes the dialog only if no call is in flight and it has not
// been touched since cutoff. The check and the close happen under one lock.
func (d *Dialog) closeIfIdle(cutoff time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loading || !d.touched.Before(cutoff) {
		return false
	}
	d.closeLocked()
	return true
}

func (d *Dialog) closeLocked() {
	if d.state == domain.CheckoutStateSucceeded || d.state == domain.CheckoutStateCancelled {
		return
	}

	d.epoch++
	d.loading = false
	if err := d.transitionLocked(domain.CheckoutStateCancelled); err != nil {
		return
	}
	d.discardSessionLocked()
	d.reason = ""
	d.o.observeOutcome(string(domain.OutcomeCancelled))
	slog.Info("checkout dialog closed", "dialog_id", d.id)
}

func (d *Dialog) mountCardInput(ctx context.Context, publicKey string) (*capture.Handle, error) {
	handle, err := d.adapter.Initialize(ctx, publicKey)
	if err != nil {
		return nil, err
	}
	if err := d.adapter.MountInput(handle, d.slot); err != nil && !errors.Is(err, capture.ErrAlreadyMounted) {
		return nil, err
	}
	return handle, nil
}

func (d *Dialog) succeed(ctx context.Context, epoch uint64, intentID string) (View, error) {
	d.mu.Lock()
	d.loading = false
	if d.epoch != epoch {
		defer d.mu.Unlock()
		slog.Info("discarding verification for closed dialog", "dialog_id", d.id, "payment_intent_id", intentID)
		return d.viewLocked(), ErrDialogClosed
	}
	if err := d.transitionLocked(domain.CheckoutStateSucceeded); err != nil {
		defer d.mu.Unlock()
		return d.viewLocked(), err
	}
	d.paymentIntentID = intentID
	d.session = nil
	d.handle = nil
	d.notice = noticePaymentSuccessful
	d.redirect = &Redirect{
		Path:  confirmationPath + "?payment_intent=" + url.QueryEscape(intentID),
		After: d.o.cfg.RedirectDelay,
	}
	order := CompletedOrder{
		PaymentIntentID: intentID,
		ProfileID:       d.profileID,
		Customer:        d.customer,
		Items:           d.items,
		Total:           d.amount,
		Currency:        d.currency,
		CompletedAt:     time.Now().UTC(),
	}
	view := d.viewLocked()
	d.mu.Unlock()

	d.o.observeOutcome(string(domain.OutcomeSucceeded))
	slog.Info("checkout succeeded", "dialog_id", d.id, "payment_intent_id", intentID)

	clearCtx, cancel := d.o.callContext(ctx)
	defer cancel()
	if err := d.o.cart.Clear(clearCtx, d.profileID); err != nil {
		slog.Error("failed to clear cart after payment", "profile_id", d.profileID, "error", err)
	}
	d.adapter.Teardown()
	d.o.notify(order)

	return view, nil
}

// finishFailed moves the dialog to FAILED unless it was closed while the call
// was running. fresh reports whether the session may be confirmed again.
func (d *Dialog) finishFailed(epoch uint64, reason string, fresh bool) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.loading = false
	if d.epoch != epoch {
		slog.Info("discarding failed call for closed dialog", "dialog_id", d.id)
		return d.viewLocked(), ErrDialogClosed
	}
	if err := d.transitionLocked(domain.CheckoutStateFailed); err != nil {
		return d.viewLocked(), err
	}
	d.reason = reason
	d.sessionFresh = fresh && d.session != nil
	d.o.observeOutcome(string(domain.OutcomeFailed))
	return d.viewLocked(), nil
}

func (d *Dialog) confirmFailure(err error) (string, bool) {
	fresh := capture.IsRetriable(err)
	var declined *capture.DeclinedError
	switch {
	case errors.As(err, &declined):
		return declined.Message, fresh
	case fresh:
		return reasonConfirmFailed, fresh
	case errors.Is(err, capture.ErrNotReady):
		slog.Error("card confirmation attempted before the card input was mounted", "dialog_id", d.id)
		return reasonConfirmFailed, false
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout, false
	default:
		slog.Warn("card confirmation failed", "dialog_id", d.id, "error", err)
		return reasonConfirmFailed, false
	}
}

func createFailureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	case errors.Is(err, gateway.ErrRejected):
		if msg := gateway.Message(err); msg != "" {
			return msg
		}
		return reasonGatewayFallback
	case errors.Is(err, gateway.ErrUnreachable):
		return reasonUnreachable
	default:
		return reasonGatewayFallback
	}
}

func (d *Dialog) beginLocked(allowed domain.CheckoutState) error {
	if d.loading {
		return ErrInFlight
	}
	if d.state == domain.CheckoutStateCancelled {
		return ErrDialogClosed
	}
	if d.state != allowed {
		return fmt.Errorf("%w: dialog is %s", ErrIllegalTransition, d.state)
	}
	return nil
}

func (d *Dialog) transitionLocked(to domain.CheckoutState) error {
	if !domain.CanTransitionTo(d.state, to) {
		slog.Error("illegal checkout transition", "dialog_id", d.id, "from", d.state, "to", to)
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, d.state, to)
	}
	d.state = to
	d.touched = d.o.registry.now()
	return nil
}

func (d *Dialog) discardSessionLocked() {
	d.session = nil
	d.sessionFresh = false
	d.handle = nil
	d.adapter.Teardown()
}

func (d *Dialog) viewLocked() View {
	v := View{
		ID:              d.id,
		State:           d.state,
		Reason:          d.reason,
		Notice:          d.notice,
		PaymentIntentID: d.paymentIntentID,
		Amount:          d.amount,
		Currency:        d.currency,
		CanRetryCard:    d.state == domain.CheckoutStateFailed && d.sessionFresh && d.handle != nil,
		Loading:         d.loading,
		Redirect:        d.redirect,
	}
	if d.session != nil {
		v.PublicKey = d.session.PublicKey
	}
	return v
}

func orderFor(customer domain.CustomerInfo, items []domain.CartItem) gateway.OrderDescriptor {
	lines := make([]gateway.LineItem, 0, len(items))
	units := 0
	for _, it := range items {
		lines = append(lines, gateway.LineItem{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.UnitPrice,
			Quantity: it.Quantity,
			Size:     it.Size,
			Color:    it.Color,
		})
		units += it.Quantity
	}

	order := gateway.OrderDescriptor{
		Name:         "Peak Mode order",
		ProductID:    "cart",
		Description:  strconv.Itoa(units) + " item(s)",
		CustomerName: customer.Name,
		Email:        customer.Email,
		Phone:        customer.Phone,
		Items:        lines,
	}
	if len(items) == 1 {
		order.Name = items[0].Name
		order.ProductID = items[0].ID
	}
	return order
}
