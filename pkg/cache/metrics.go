package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache operations.
var (
	// CacheHits counts cache hits by backend.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bcdata_cache_hits_total",
		Help: "Total cache hits by backend",
	}, []string{"backend"})

	// CacheMisses counts cache misses (absent or expired entries).
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bcdata_cache_misses_total",
		Help: "Total cache misses",
	})

	// CacheRefreshes counts refresh callbacks invoked by GetOrRefresh.
	CacheRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bcdata_cache_refreshes_total",
		Help: "Total cache refreshes triggered by misses or expiry",
	})

	// CacheErrors counts cache operation errors.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bcdata_cache_errors_total",
		Help: "Total cache operation errors",
	}, []string{"operation"})
)
