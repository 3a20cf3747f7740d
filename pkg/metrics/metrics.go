// Package metrics provides the centralized Prometheus metrics registry for
// the paged loader. All metrics are defined in their respective packages
// (loader, source) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the module.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Loader Metrics (pkg/loader):
//   - paging_fetch_attempts_total{operation, outcome} (Counter): Page fetch attempts by
//     operation (initial, after) and outcome (success, error)
//   - paging_fetch_duration_seconds{operation} (Histogram): Page fetch duration by operation
//   - paging_retries_total{operation} (Counter): Retry wakeups consumed by operation
//
// Listing Source Metrics (pkg/source):
//   - listing_requests_total{feed, status} (Counter): Listing requests by feed and HTTP
//     status (or cache_hit / network_error)
//   - listing_request_duration_seconds{feed} (Histogram): Request duration by feed
//
// Cache Metrics (pkg/source):
//   - listing_cache_hits_total (Counter): Cache hits
//   - listing_cache_misses_total (Counter): Cache misses
//   - listing_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Fetch Error Rate
//   sum(rate(paging_fetch_attempts_total{outcome="error"}[5m])) /
//   sum(rate(paging_fetch_attempts_total[5m]))
//
//   # Retry Pressure
//   rate(paging_retries_total[5m])
//
//   # Cache Hit Rate
//   rate(listing_cache_hits_total[5m]) /
//   (rate(listing_cache_hits_total[5m]) + rate(listing_cache_misses_total[5m]))
//
//   # P95 Page Fetch Latency
//   histogram_quantile(0.95, rate(paging_fetch_duration_seconds_bucket[5m]))
