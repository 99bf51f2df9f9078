package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_extend_failures_total",
		Help: "Per-user derived-cache writes that failed during event fan-out",
	})

	extendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_extend_duration_seconds",
		Help:    "Time to fan one event out to all users' derived caches",
		Buckets: prometheus.DefBuckets,
	})

	sweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_sweep_runs_total",
		Help: "Completed expired-event sweep passes",
	})

	sweepUsersTouched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_sweep_users_touched_total",
		Help: "User cache records shrunk by the expired-event sweep",
	})
)
