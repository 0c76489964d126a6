package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalError is the cancellation cause of a context stopped by a signal.
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return "received signal " + e.Signal.String()
}

// WithSignals returns a context cancelled by the first of signals (SIGINT and
// SIGTERM when none are given). A second signal exits the process at once.
func WithSignals(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	ctx, cancel := context.WithCancelCause(parent)

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, signals...)
	stop := make(chan struct{})

	go func() {
		defer signal.Stop(ch)
		select {
		case <-stop:
			return
		case <-parent.Done():
			return
		case sig := <-ch:
			slog.Info("shutdown signal received", "signal", sig.String())
			cancel(&SignalError{Signal: sig})
		}

		select {
		case <-stop:
		case <-parent.Done():
		case sig := <-ch:
			slog.Error("second shutdown signal, exiting", "signal", sig.String())
			os.Exit(1)
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() { close(stop) })
		cancel(context.Canceled)
	}
}

// Signal reports the signal that stopped ctx, if any.
func Signal(ctx context.Context) (os.Signal, bool) {
	var sigErr *SignalError
	if errors.As(context.Cause(ctx), &sigErr) {
		return sigErr.Signal, true
	}
	return nil, false
}
