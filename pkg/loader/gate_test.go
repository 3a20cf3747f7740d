package loader

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryGate_ReleaseBeforeWait(t *testing.T) {
	gate := newRetryGate()

	// A release with nobody waiting must wake the next wait (no lost
	// wakeup).
	gate.Release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := gate.Wait(ctx); err != nil {
		t.Errorf("Wait() error: %v", err)
	}
}

func TestRetryGate_CoalescesReleases(t *testing.T) {
	gate := newRetryGate()

	// Multiple releases must retain at most one pending wakeup.
	gate.Release()
	gate.Release()
	gate.Release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := gate.Wait(ctx); err != nil {
		t.Fatalf("First Wait() error: %v", err)
	}

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()
	if err := gate.Wait(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Second Wait() error = %v, want deadline exceeded", err)
	}
}

func TestRetryGate_ReleaseWakesWaiter(t *testing.T) {
	gate := newRetryGate()

	done := make(chan error, 1)
	go func() {
		done <- gate.Wait(context.Background())
	}()

	// Give the waiter time to block.
	time.Sleep(20 * time.Millisecond)
	gate.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Waiter was not woken by Release")
	}
}

func TestRetryGate_WaitCanceled(t *testing.T) {
	gate := newRetryGate()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- gate.Wait(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Wait() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}
