package loader

import "context"

// retryGate is a single-slot rendezvous between a suspended load-retry loop
// and RetryAllFailed. Release buffers at most one pending wakeup, so a
// release that arrives before the loop reaches Wait is not lost, and
// releases beyond the first are coalesced.
type retryGate struct {
	ch chan struct{}
}

func newRetryGate() *retryGate {
	return &retryGate{ch: make(chan struct{}, 1)}
}

// Release wakes the waiter, or buffers one wakeup if none is waiting.
// Excess releases while a wakeup is already buffered are dropped.
func (g *retryGate) Release() {
	select {
	case g.ch <- struct{}{}:
	default:
	}
}

// Wait suspends the caller until a Release occurs or the context is
// canceled.
func (g *retryGate) Wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
