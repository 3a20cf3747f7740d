package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates the requested key was not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// Prometheus metrics for cache operations.
var (
	listingCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listing_cache_hits_total",
		Help: "Total number of listing cache hits",
	})

	listingCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listing_cache_misses_total",
		Help: "Total number of listing cache misses",
	})

	listingCacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_cache_errors_total",
		Help: "Total number of listing cache operation errors",
	}, []string{"operation"}) // "get", "set", "delete"
)

// Cache stores raw listing page bodies in Redis with a TTL.
type Cache struct {
	redis *redis.Client
}

// NewCache creates a cache with a Redis backend.
func NewCache(redisClient *redis.Client) *Cache {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Cache{
		redis: redisClient,
	}
}

// Get retrieves a cached page body by key.
// Returns ErrCacheMiss if the key doesn't exist.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			listingCacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		listingCacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	listingCacheHits.Inc()
	return data, nil
}

// Set stores a page body under key for the given TTL. Entries with a
// non-positive TTL are not cached.
func (c *Cache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		listingCacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cached page body.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		listingCacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// listingKey generates a deterministic cache key for one page request.
// Format: feed:listing:<feed>:after=<token>:limit=<size>
func listingKey(feed, after string, size int) string {
	return fmt.Sprintf("feed:listing:%s:after=%s:limit=%d", feed, after, size)
}
