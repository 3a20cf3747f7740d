package loadstate

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

const (
	// subBufferSize is the buffer size of the channel for each subscription.
	// When a subscriber falls this far behind, the oldest buffered value is
	// dropped so the most recent state always lands.
	subBufferSize = 64
)

// Signal is a last-write-wins broadcast cell. Publish sets the current
// value and notifies all subscribers; Subscribe delivers the current value
// immediately, then every subsequent change.
type Signal struct {
	mu      sync.Mutex
	current State
	subs    map[chan State]struct{}

	logger zerolog.Logger
}

// NewSignal creates a signal holding the Idle state.
func NewSignal(logger zerolog.Logger) *Signal {
	return &Signal{
		current: Idle(),
		subs:    make(map[chan State]struct{}),
		logger:  logger,
	}
}

// Current returns the most recently published state.
func (s *Signal) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Publish sets the current state and notifies all subscribers.
func (s *Signal) Publish(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = state

	s.logger.Debug().
		Str("status", string(state.Status)).
		Str("message", state.Message).
		Msg("State published")

	for sub := range s.subs {
		s.send(sub, state)
	}
}

// Subscribe subscribes the caller to the state stream. The current state is
// delivered first, then every subsequent Publish. The subscription ends and
// the channel is closed when the context is canceled.
func (s *Signal) Subscribe(ctx context.Context) <-chan State {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := make(chan State, subBufferSize)
	sub <- s.current
	s.subs[sub] = struct{}{}

	// when the context is canceled remove the subscriber
	go func() {
		<-ctx.Done()
		s.unsubscribe(sub)
	}()

	return sub
}

// send delivers a state to one subscriber, dropping the subscriber's oldest
// buffered value when its buffer is full.
func (s *Signal) send(sub chan State, state State) {
	select {
	case sub <- state:
		return
	default:
	}

	select {
	case <-sub:
	default:
	}

	select {
	case sub <- state:
	default:
	}
}

func (s *Signal) unsubscribe(sub chan State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub]; !ok {
		// already unsubscribed
		return
	}
	close(sub)
	delete(s.subs, sub)
}
