package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded in cacheRequests.
const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultShared = "shared"
	resultError  = "error"
)

var (
	cacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erdview_cache_requests_total",
			Help: "Result cache lookups by operation and outcome (hit, miss, shared, error)",
		},
		[]string{"operation", "result"},
	)

	computeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "erdview_compute_duration_seconds",
			Help:    "Time spent computing a diagram on a cache miss",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"operation"},
	)

	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erdview_cache_store_errors_total",
			Help: "Cache store failures by call (get, set); requests fall back to computing",
		},
		[]string{"call"},
	)

	artifactBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "erdview_artifact_bytes",
			Help:    "Size of computed artifacts",
			Buckets: prometheus.ExponentialBuckets(512, 4, 10),
		},
		[]string{"operation"},
	)
)
