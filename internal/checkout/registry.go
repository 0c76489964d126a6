package checkout

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultDialogTTL is how long an idle dialog is kept before it is closed.
	DefaultDialogTTL = 30 * time.Minute

	// CleanupInterval is how often the background cleanup runs.
	CleanupInterval = 30 * time.Second
)

// Registry holds open dialogs by id.
type Registry struct {
	mu      sync.RWMutex
	dialogs map[string]*Dialog
	ttl     time.Duration
	now     func() time.Time

	onChange func(open int)
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultDialogTTL
	}
	return &Registry{
		dialogs: make(map[string]*Dialog),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *Registry) add(d *Dialog) {
	r.mu.Lock()
	r.dialogs[d.id] = d
	n := len(r.dialogs)
	r.mu.Unlock()
	r.changed(n)
}

// Get returns the dialog with id, provided it belongs to profileID.
func (r *Registry) Get(id, profileID string) (*Dialog, error) {
	r.mu.RLock()
	d, ok := r.dialogs[id]
	r.mu.RUnlock()
	if !ok || d.profileID != profileID {
		return nil, ErrDialogNotFound
	}
	return d, nil
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.dialogs, id)
	n := len(r.dialogs)
	r.mu.Unlock()
	r.changed(n)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.dialogs)
}

// Run expires idle dialogs until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.expire()
		case <-ctx.Done():
			return nil
		}
	}
}

// expire closes and drops every dialog idle for longer than the TTL.
// Dialogs with a call in flight are left alone.
func (r *Registry) expire() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.RLock()
	candidates := make([]*Dialog, 0, len(r.dialogs))
	for _, d := range r.dialogs {
		candidates = append(candidates, d)
	}
	r.mu.RUnlock()

	expired := 0
	for _, d := range candidates {
		if !d.closeIfIdle(cutoff) {
			continue
		}
		r.remove(d.id)
		expired++
		slog.Info("checkout dialog expired", "dialog_id", d.id)
	}
	return expired
}

func (r *Registry) changed(open int) {
	if r.onChange != nil {
		r.onChange(open)
	}
}
