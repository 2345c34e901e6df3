package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RankRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_requests_total",
			Help: "Total number of rank requests by outcome",
		},
		[]string{"outcome"},
	)

	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "rank_duration_seconds",
			Help: "Duration of rank pipeline execution in seconds",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_cache_hits_total",
			Help: "Total number of ranking cache hits by tier",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rank_cache_misses_total",
			Help: "Total number of ranking cache misses",
		},
	)

	CacheBackendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_cache_backend_errors_total",
			Help: "Total number of cache backend failures by tier",
		},
		[]string{"tier"},
	)

	MetrosExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_metros_excluded_total",
			Help: "Total number of metros dropped from result sets by reason",
		},
		[]string{"reason"},
	)

	MetrosScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rank_metros_scored_total",
			Help: "Total number of metros scored by the pipeline",
		},
	)
)
