// Package source provides an HTTP implementation of the loader's Source
// contract against a reddit-style listing API, with optional Redis-backed
// response caching.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/feedpager/feedpager/pkg/loader"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for listing requests.
var (
	listingRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_requests_total",
		Help: "Total listing requests by feed and status",
	}, []string{"feed", "status"})

	listingRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listing_request_duration_seconds",
		Help:    "Listing request duration in seconds by feed",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"feed"})
)

// Config holds the listing source configuration.
type Config struct {
	// BaseURL is the listing server root, e.g. "https://www.reddit.com".
	BaseURL string

	// Feed is the listing to page through, e.g. a subreddit name. The
	// source identity is fixed here for the lifetime of the session.
	Feed string

	// UserAgent header sent with every request (required by most listing
	// servers).
	UserAgent string

	// HTTPClient is the client used for requests (default: 30s timeout).
	HTTPClient *http.Client

	// Cache enables read-through response caching when set.
	Cache *Cache

	// CacheTTL is how long cached pages stay fresh (default: 60s).
	CacheTTL time.Duration
}

// Listing fetches pages of T from a reddit-style listing endpoint. It
// implements loader.Source[string, T] with the server's opaque after/before
// tokens as continuation keys.
type Listing[T any] struct {
	config Config
	client *http.Client
	logger zerolog.Logger
}

// listingEnvelope is the wire format of a listing page.
type listingEnvelope[T any] struct {
	Data struct {
		Children []struct {
			Data T `json:"data"`
		} `json:"children"`
		After  *string `json:"after"`
		Before *string `json:"before"`
	} `json:"data"`
}

// New creates a listing source bound to one feed.
func New[T any](cfg Config) (*Listing[T], error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.Feed == "" {
		return nil, fmt.Errorf("feed is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}

	logger := log.With().
		Str("component", "listing-source").
		Str("feed", cfg.Feed).
		Logger()

	return &Listing[T]{
		config: cfg,
		client: client,
		logger: logger,
	}, nil
}

// FetchInitial fetches the first page of the feed.
func (s *Listing[T]) FetchInitial(ctx context.Context, size int) (loader.Page[string, T], error) {
	return s.fetch(ctx, "", size)
}

// FetchAfter fetches the page following the given continuation token.
func (s *Listing[T]) FetchAfter(ctx context.Context, key string, size int) (loader.Page[string, T], error) {
	return s.fetch(ctx, key, size)
}

// fetch performs one listing request, consulting the cache first when one
// is configured.
func (s *Listing[T]) fetch(ctx context.Context, after string, size int) (loader.Page[string, T], error) {
	feed := s.config.Feed

	startTime := time.Now()
	defer func() {
		listingRequestDuration.WithLabelValues(feed).Observe(time.Since(startTime).Seconds())
	}()

	cacheKey := listingKey(feed, after, size)

	// Step 1: Check cache
	if s.config.Cache != nil {
		data, err := s.config.Cache.Get(ctx, cacheKey)
		if err == nil {
			s.logger.Debug().Str("key", cacheKey).Msg("Listing cache hit")
			listingRequestsTotal.WithLabelValues(feed, "cache_hit").Inc()
			return s.decodePage(data)
		}
		if err != ErrCacheMiss {
			s.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache get error")
		}
	}

	// Step 2: Build request
	req, err := http.NewRequestWithContext(ctx, "GET", s.pageURL(after, size), nil)
	if err != nil {
		return loader.Page[string, T]{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	s.logger.Debug().
		Str("after", after).
		Int("size", size).
		Msg("Executing listing request")

	// Step 3: Execute
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Msg("Listing request failed")
		listingRequestsTotal.WithLabelValues(feed, "network_error").Inc()
		return loader.Page[string, T]{}, fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	listingRequestsTotal.WithLabelValues(feed, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 4: Handle protocol errors
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn().
			Int("status", resp.StatusCode).
			Str("after", after).
			Msg("Listing request error")
		return loader.Page[string, T]{}, &loader.ProtocolError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return loader.Page[string, T]{}, fmt.Errorf("read listing body: %w", err)
	}

	// Step 5: Update cache on success
	if s.config.Cache != nil {
		if err := s.config.Cache.Set(ctx, cacheKey, body, s.config.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to cache listing page")
		} else {
			s.logger.Debug().
				Str("key", cacheKey).
				Dur("ttl", s.config.CacheTTL).
				Msg("Cached listing page")
		}
	}

	return s.decodePage(body)
}

// pageURL builds the request URL for one page of the feed.
func (s *Listing[T]) pageURL(after string, size int) string {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(size))
	if after != "" {
		query.Set("after", after)
	}
	return fmt.Sprintf("%s/r/%s.json?%s", s.config.BaseURL, s.config.Feed, query.Encode())
}

// decodePage unmarshals a listing envelope into a page.
func (s *Listing[T]) decodePage(data []byte) (loader.Page[string, T], error) {
	var envelope listingEnvelope[T]
	if err := json.Unmarshal(data, &envelope); err != nil {
		return loader.Page[string, T]{}, fmt.Errorf("decode listing: %w", err)
	}

	items := make([]T, 0, len(envelope.Data.Children))
	for _, child := range envelope.Data.Children {
		items = append(items, child.Data)
	}

	return loader.Page[string, T]{
		Items:  items,
		After:  normalizeToken(envelope.Data.After),
		Before: normalizeToken(envelope.Data.Before),
	}, nil
}

// normalizeToken treats an empty token the same as a missing one. Listing
// servers report the end of the stream either way.
func normalizeToken(token *string) *string {
	if token == nil || *token == "" {
		return nil
	}
	return token
}
