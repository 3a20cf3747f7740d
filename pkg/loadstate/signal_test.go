package loadstate

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testSignal() *Signal {
	return NewSignal(zerolog.Nop())
}

func receive(t *testing.T, sub <-chan State) State {
	t.Helper()

	select {
	case state := <-sub:
		return state
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for state")
		return State{}
	}
}

func TestSignal_StartsIdle(t *testing.T) {
	s := testSignal()

	if got := s.Current(); got != Idle() {
		t.Errorf("Current() = %+v, want idle", got)
	}
}

func TestSignal_SubscribeReplaysCurrent(t *testing.T) {
	s := testSignal()
	s.Publish(Loaded())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := s.Subscribe(ctx)
	if got := receive(t, sub); got.Status != StatusLoaded {
		t.Errorf("Replayed status = %q, want %q", got.Status, StatusLoaded)
	}
}

func TestSignal_PublishOrder(t *testing.T) {
	s := testSignal()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := s.Subscribe(ctx)
	receive(t, sub) // drain the replayed idle state

	s.Publish(Loading())
	s.Publish(Error("error code: 503"))
	s.Publish(Loading())
	s.Publish(Loaded())

	want := []State{Loading(), Error("error code: 503"), Loading(), Loaded()}
	for i, w := range want {
		if got := receive(t, sub); got != w {
			t.Errorf("State[%d] = %+v, want %+v", i, got, w)
		}
	}

	if got := s.Current(); got != Loaded() {
		t.Errorf("Current() = %+v, want loaded", got)
	}
}

func TestSignal_MultipleSubscribers(t *testing.T) {
	s := testSignal()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub1 := s.Subscribe(ctx)
	sub2 := s.Subscribe(ctx)
	receive(t, sub1)
	receive(t, sub2)

	s.Publish(Loading())

	for i, sub := range []<-chan State{sub1, sub2} {
		if got := receive(t, sub); got.Status != StatusLoading {
			t.Errorf("Subscriber %d status = %q, want %q", i, got.Status, StatusLoading)
		}
	}
}

func TestSignal_SlowSubscriberKeepsLatest(t *testing.T) {
	s := testSignal()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := s.Subscribe(ctx)

	// Overflow the subscriber's buffer without draining it. The oldest
	// values are dropped; the most recent must still land.
	for i := 0; i < subBufferSize+10; i++ {
		s.Publish(Loading())
	}
	s.Publish(Loaded())

	var last State
	for {
		select {
		case state := <-sub:
			last = state
			continue
		default:
		}
		break
	}

	if last.Status != StatusLoaded {
		t.Errorf("Last observed status = %q, want %q", last.Status, StatusLoaded)
	}
}

func TestSignal_UnsubscribeOnContextCancel(t *testing.T) {
	s := testSignal()

	ctx, cancel := context.WithCancel(context.Background())
	sub := s.Subscribe(ctx)
	receive(t, sub)

	cancel()

	// The channel is closed once the unsubscription is processed.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Subscription channel was not closed after cancel")
		}
	}
}

func TestStateConstructors(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		status  Status
		message string
		isError bool
	}{
		{"idle", Idle(), StatusIdle, "", false},
		{"loading", Loading(), StatusLoading, "", false},
		{"loaded", Loaded(), StatusLoaded, "", false},
		{"error", Error("error code: 503"), StatusError, "error code: 503", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.state.Status != tt.status {
				t.Errorf("Status = %q, want %q", tt.state.Status, tt.status)
			}
			if tt.state.Message != tt.message {
				t.Errorf("Message = %q, want %q", tt.state.Message, tt.message)
			}
			if tt.state.IsError() != tt.isError {
				t.Errorf("IsError() = %v, want %v", tt.state.IsError(), tt.isError)
			}
		})
	}
}
