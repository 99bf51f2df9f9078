package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_requests_total",
		Help: "Ranked match list requests served from scratch (cache misses)",
	})

	matchCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_cache_hits_total",
		Help: "Ranked match list requests served from the Redis cache",
	})

	matchScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_scores",
		Help:    "Model scores of candidates that made it into a match list",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	candidatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_candidates_dropped_total",
		Help: "Candidate events dropped from a match list due to scoring failures",
	})

	modelSource = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "match_model_trained",
		Help: "1 when trained weights are loaded, 0 on the random fallback",
	})
)
