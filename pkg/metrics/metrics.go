// Package metrics provides the centralized Prometheus metrics registry.
// All metrics are defined in their respective packages (wfs, pagination,
// cache) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the downloader.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/wfs):
//   - wfs_requests_total{operation, status} (Counter): Total requests by operation and HTTP status
//   - wfs_request_duration_seconds{operation} (Histogram): Request duration by operation
//   - wfs_errors_total{class} (Counter): Errors by class (client, server, network)
//   - wfs_features_fetched_total (Counter): Features fetched across all windows
//
// Retry Metrics (pkg/wfs):
//   - wfs_retries_total{error_class} (Counter): Retry attempts by error class
//   - wfs_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - wfs_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pagination Metrics (pkg/pagination):
//   - pagination_windows_total{outcome} (Counter): Fetched windows by outcome (ok, short, error)
//   - pagination_fetch_duration_seconds (Histogram): Per-window fetch duration
//
// Cache Metrics (pkg/cache):
//   - bcdata_cache_hits_total{backend} (Counter): Cache hits by backend (file, redis)
//   - bcdata_cache_misses_total (Counter): Cache misses
//   - bcdata_cache_refreshes_total (Counter): Entries refreshed from origin
//   - bcdata_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(bcdata_cache_hits_total[5m])) /
//   (sum(rate(bcdata_cache_hits_total[5m])) + sum(rate(bcdata_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(wfs_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(wfs_request_duration_seconds_bucket[5m]))
//
//   # Short Window Rate (reconciliation gaps)
//   rate(pagination_windows_total{outcome="short"}[5m])
