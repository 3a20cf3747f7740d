package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/feedpager/feedpager/pkg/loadstate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for paged-loading operations.
var (
	pagingFetchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paging_fetch_attempts_total",
		Help: "Total page fetch attempts by operation and outcome",
	}, []string{"operation", "outcome"})

	pagingFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paging_fetch_duration_seconds",
		Help:    "Page fetch duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	pagingRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paging_retries_total",
		Help: "Total retry wakeups consumed by operation",
	}, []string{"operation"})
)

// Operation names used in logs and metrics.
const (
	opInitial = "initial"
	opAfter   = "after"
)

// pendingRetry records the one outstanding failed attempt. Only the most
// recent failure is retryable; arming a new record discards the old one.
type pendingRetry[K comparable] struct {
	op   string
	key  K // set for opAfter only
	size int
}

// Config holds the loader configuration.
type Config[K comparable, T any] struct {
	// Source is the remote paginated source to load from (required).
	Source Source[K, T]

	// KeyFn derives the forward continuation key from an item. When set,
	// the key for the next page is taken from the last item of each loaded
	// page instead of the server's returned after-token (item-keyed
	// variant). Leave nil to use the server's tokens directly.
	KeyFn func(T) K
}

// Loader drives LoadInitial/LoadAfter/LoadBefore against a Source for one
// paging session. It owns the session's network and initial-load state
// signals and its retry state; a new session needs a new Loader.
//
// The calling layer invokes the load operations sequentially within one
// session; the loader does not lock state transitions against overlapping
// load calls. RetryAllFailed may be called from any goroutine.
type Loader[K comparable, T any] struct {
	source Source[K, T]
	keyFn  func(T) K

	network *loadstate.Signal
	initial *loadstate.Signal
	gate    *retryGate

	mu      sync.Mutex
	pending *pendingRetry[K]

	logger zerolog.Logger
}

// New creates a loader for one paging session.
func New[K comparable, T any](cfg Config[K, T]) (*Loader[K, T], error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source is required")
	}

	logger := log.With().Str("component", "loader").Logger()

	return &Loader[K, T]{
		source:  cfg.Source,
		keyFn:   cfg.KeyFn,
		network: loadstate.NewSignal(logger.With().Str("signal", "network").Logger()),
		initial: loadstate.NewSignal(logger.With().Str("signal", "initial").Logger()),
		gate:    newRetryGate(),
		logger:  logger,
	}, nil
}

// NetworkState returns the signal reflecting the outcome of every page
// fetch (initial and after).
func (l *Loader[K, T]) NetworkState() *loadstate.Signal {
	return l.network
}

// InitialLoadState returns the signal reflecting only the initial fetch,
// letting the caller distinguish "first page still loading" from "loading
// more below existing items".
func (l *Loader[K, T]) InitialLoadState() *loadstate.Signal {
	return l.initial
}

// LoadInitial fetches the first page. It publishes Loading to both signals,
// and on failure publishes Error, arms a retry, and suspends until
// RetryAllFailed is called, then re-attempts with the same parameters. It
// never returns a fetch failure; the only error return is ctx.Err() when
// the owning session is torn down.
func (l *Loader[K, T]) LoadInitial(ctx context.Context, size int) (InitialResult[K, T], error) {
	for {
		l.network.Publish(loadstate.Loading())
		l.initial.Publish(loadstate.Loading())

		page, err := l.attempt(opInitial, func() (Page[K, T], error) {
			return l.source.FetchInitial(ctx, size)
		})
		if err == nil {
			l.clearPending()
			l.network.Publish(loadstate.Loaded())
			l.initial.Publish(loadstate.Loaded())
			return InitialResult[K, T]{
				Items:  page.Items,
				After:  l.afterKey(page),
				Before: page.Before,
			}, nil
		}

		if ctx.Err() != nil {
			return InitialResult[K, T]{}, ctx.Err()
		}

		message := stateMessage(err)
		l.armPending(&pendingRetry[K]{op: opInitial, size: size})
		l.network.Publish(loadstate.Error(message))
		l.initial.Publish(loadstate.Error(message))

		if waitErr := l.gate.Wait(ctx); waitErr != nil {
			return InitialResult[K, T]{}, waitErr
		}
		pagingRetriesTotal.WithLabelValues(opInitial).Inc()
	}
}

// LoadAfter fetches the page following the given continuation key. Same
// retry-loop shape as LoadInitial, but reports only through the network
// signal. A nil After in the result means the end of the stream.
func (l *Loader[K, T]) LoadAfter(ctx context.Context, key K, size int) (AfterResult[K, T], error) {
	for {
		l.network.Publish(loadstate.Loading())

		page, err := l.attempt(opAfter, func() (Page[K, T], error) {
			return l.source.FetchAfter(ctx, key, size)
		})
		if err == nil {
			l.clearPending()
			l.network.Publish(loadstate.Loaded())
			return AfterResult[K, T]{
				Items: page.Items,
				After: l.afterKey(page),
			}, nil
		}

		if ctx.Err() != nil {
			return AfterResult[K, T]{}, ctx.Err()
		}

		l.armPending(&pendingRetry[K]{op: opAfter, key: key, size: size})
		l.network.Publish(loadstate.Error(stateMessage(err)))

		if waitErr := l.gate.Wait(ctx); waitErr != nil {
			return AfterResult[K, T]{}, waitErr
		}
		pagingRetriesTotal.WithLabelValues(opAfter).Inc()
	}
}

// LoadBefore always returns an empty page with no further key. Backward
// paging is unsupported in this system; this is a terminal behavior, not an
// error. No fetch is issued and no state is published.
func (l *Loader[K, T]) LoadBefore(_ context.Context, _ K, _ int) (BeforeResult[K, T], error) {
	l.logger.Debug().Msg("Backward paging unsupported, returning empty page")
	return BeforeResult[K, T]{}, nil
}

// RetryAllFailed takes the outstanding retry record, if any, and wakes the
// suspended load loop exactly once. A no-op when nothing failed or a
// success already cleared the record. Safe to call from any goroutine; the
// re-attempt runs on the suspended loop's goroutine, not the caller's.
func (l *Loader[K, T]) RetryAllFailed() {
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	if pending == nil {
		return
	}

	l.logger.Info().
		Str("operation", pending.op).
		Int("size", pending.size).
		Msg("Retry signaled")

	l.gate.Release()
}

// Key applies the item-keyed variant's key projection to an item. Reports
// false on a token-keyed loader.
func (l *Loader[K, T]) Key(item T) (K, bool) {
	if l.keyFn == nil {
		var zero K
		return zero, false
	}
	return l.keyFn(item), true
}

// attempt runs one fetch with timing, metrics, and outcome logging.
func (l *Loader[K, T]) attempt(op string, fetch func() (Page[K, T], error)) (Page[K, T], error) {
	start := time.Now()
	page, err := fetch()
	pagingFetchDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		pagingFetchAttemptsTotal.WithLabelValues(op, "error").Inc()
		l.logger.Warn().
			Err(err).
			Str("operation", op).
			Msg("Page fetch failed")
		return Page[K, T]{}, err
	}

	pagingFetchAttemptsTotal.WithLabelValues(op, "success").Inc()
	l.logger.Debug().
		Str("operation", op).
		Int("items", len(page.Items)).
		Msg("Page fetch succeeded")
	return page, nil
}

// afterKey resolves the forward continuation key for a loaded page. The key
// comes only from the page itself: the server's after-token, or the key
// derived from the page's own last item on the item-keyed variant.
func (l *Loader[K, T]) afterKey(page Page[K, T]) *K {
	if l.keyFn == nil {
		return page.After
	}
	if len(page.Items) == 0 {
		return nil
	}
	key := l.keyFn(page.Items[len(page.Items)-1])
	return &key
}

func (l *Loader[K, T]) armPending(pending *pendingRetry[K]) {
	l.mu.Lock()
	l.pending = pending
	l.mu.Unlock()
}

func (l *Loader[K, T]) clearPending() {
	l.mu.Lock()
	l.pending = nil
	l.mu.Unlock()
}
