// Package metrics provides Prometheus metrics for induction and extraction.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reginduce"

var (
	// PatternTimeouts counts pattern evaluations abandoned at the deadline.
	// Labels: engine
	PatternTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "pattern_timeouts_total",
			Help:      "Total number of pattern evaluations that exceeded the extraction deadline",
		},
		[]string{"engine"},
	)

	// CompileErrors counts patterns rejected by an engine.
	// Labels: engine
	CompileErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "compile_errors_total",
			Help:      "Total number of patterns that failed to compile",
		},
		[]string{"engine"},
	)

	// CacheLookups counts compiled-pattern cache lookups.
	// Labels: result (hit, miss)
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cache_lookups_total",
			Help:      "Total number of compiled-pattern cache lookups",
		},
		[]string{"result"},
	)

	// CandidateDecisions counts generalization candidates by phase and outcome.
	// Labels: phase, result (accepted, rejected)
	CandidateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "induce",
			Name:      "candidate_decisions_total",
			Help:      "Total number of generalization candidates evaluated",
		},
		[]string{"phase", "result"},
	)

	// InductionDuration tracks how long a full induction run takes.
	InductionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "induce",
			Name:      "duration_seconds",
			Help:      "Duration of induction runs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	// ExtractionDuration tracks extraction calls.
	// Labels: tier
	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "duration_seconds",
			Help:      "Duration of tier evaluation in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tier"},
	)

	// ModelCacheLookups counts model cache lookups.
	// Labels: result (hit, miss)
	ModelCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "model_lookups_total",
			Help:      "Total number of trained-model cache lookups",
		},
		[]string{"result"},
	)
)

// Decision records one accepted or rejected candidate
func Decision(phase string, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	CandidateDecisions.WithLabelValues(phase, result).Inc()
}
