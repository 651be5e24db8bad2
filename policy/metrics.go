package policy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts requests served from the archival cache.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dataio_cache_hits_total",
			Help: "Total number of requests resolved from cached responses",
		},
	)

	// CacheMisses counts requests with no fresh cached response.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dataio_cache_misses_total",
			Help: "Total number of cache lookups that found no fresh response",
		},
	)

	// CacheErrors counts failed cache operations by operation.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataio_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"},
	)
)
