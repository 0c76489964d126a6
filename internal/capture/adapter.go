package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Library owns the process-wide SDK and makes sure it is loaded once.
type Library struct {
	sdk SDK
	sfg singleflight.Group
}

func NewLibrary(sdk SDK) *Library {
	return &Library{sdk: sdk}
}

func (l *Library) ensureLoaded(ctx context.Context) error {
	if l.sdk.Loaded() {
		return nil
	}
	_, err, _ := l.sfg.Do("load", func() (interface{}, error) {
		if l.sdk.Loaded() {
			return nil, nil
		}
		return nil, l.sdk.Load(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSDKUnavailable, err)
	}
	return nil
}

// NewAdapter returns an adapter for one checkout dialog.
func (l *Library) NewAdapter() *Adapter {
	return &Adapter{lib: l}
}

// Handle is the capability returned by Initialize. Dependent calls must present it.
type Handle struct {
	publicKey string
	instance  Instance

	mu       sync.Mutex
	stale    bool
	slot     Slot
	consumed map[string]struct{}
}

func (h *Handle) PublicKey() string {
	return h.publicKey
}

// Adapter bridges one dialog to the processor's secure card element.
type Adapter struct {
	lib *Library

	mu      sync.Mutex
	current *Handle
}

// Initialize is a no-op for the key already in use. A different key tears the
// current instance down and creates a new one.
func (a *Adapter) Initialize(ctx context.Context, publicKey string) (*Handle, error) {
	if strings.TrimSpace(publicKey) == "" {
		return nil, ErrMissingPublicKey
	}
	if err := a.lib.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil && a.current.publicKey == publicKey {
		return a.current, nil
	}
	a.teardownLocked()

	inst, err := a.lib.sdk.NewInstance(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor instance: %w", err)
	}
	a.current = &Handle{
		publicKey: publicKey,
		instance:  inst,
		consumed:  make(map[string]struct{}),
	}
	return a.current, nil
}

// MountInput binds the secure input to slot. A handle mounts once.
func (a *Adapter) MountInput(h *Handle, slot Slot) error {
	if h == nil {
		return ErrNotReady
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stale {
		return ErrStaleHandle
	}
	if h.slot != nil {
		return ErrAlreadyMounted
	}
	h.slot = slot
	return nil
}

func (a *Adapter) Confirm(ctx context.Context, h *Handle, clientSecret string, billing Billing) (string, error) {
	if h == nil {
		return "", ErrNotReady
	}

	h.mu.Lock()
	switch {
	case h.stale:
		h.mu.Unlock()
		return "", ErrStaleHandle
	case h.slot == nil:
		h.mu.Unlock()
		return "", ErrNotReady
	}
	if _, used := h.consumed[clientSecret]; used {
		h.mu.Unlock()
		return "", ErrSecretConsumed
	}
	token := h.slot.Token()
	inst := h.instance
	h.mu.Unlock()

	if token == "" {
		return "", declined("card details are incomplete")
	}

	intentID, err := inst.Confirm(ctx, clientSecret, token, billing)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.consumed[clientSecret] = struct{}{}
	h.mu.Unlock()
	return intentID, nil
}

// Teardown destroys the current instance, if any. Outstanding handles become stale.
func (a *Adapter) Teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.teardownLocked()
}

func (a *Adapter) teardownLocked() {
	if a.current == nil {
		return
	}
	a.current.mu.Lock()
	a.current.stale = true
	a.current.mu.Unlock()
	a.current.instance.Destroy()
	a.current = nil
}

// IsRetriable reports whether a confirm failure leaves the payment intent untouched,
// so the same session may be confirmed again with different card details.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrDeclinedOrInvalid)
}
