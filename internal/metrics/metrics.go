package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truthcheck_verifications_total",
			Help: "Total number of completed verifications by verdict label",
		},
		[]string{"label"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "truthcheck_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truthcheck_source_failures_total",
			Help: "Total number of evidence source failures",
		},
		[]string{"source"},
	)

	ModelFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truthcheck_model_failures_total",
			Help: "Total number of model invocation failures by model ref",
		},
		[]string{"model"},
	)

	EvidenceRetrieved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "truthcheck_evidence_items",
			Help:    "Number of evidence items surviving filtering per verification",
			Buckets: prometheus.LinearBuckets(0, 1, 8),
		},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truthcheck_cache_requests_total",
			Help: "Verdict cache lookups by outcome (hit, miss)",
		},
		[]string{"outcome"},
	)
)
