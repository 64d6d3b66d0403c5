// Package observability holds the service's Prometheus metrics.
// Exposed on /metrics when enabled in the API config.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Wizard Metrics ─────────────────────────────────────────────────────────

// StepTransitions tracks wizard transitions by direction.
var StepTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "referral",
	Subsystem: "wizard",
	Name:      "step_transitions_total",
	Help:      "Total wizard step transitions by direction (next, back, reset).",
}, []string{"direction"})

// StepValidationFailures tracks validation rejections per step.
var StepValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "referral",
	Subsystem: "wizard",
	Name:      "validation_failures_total",
	Help:      "Total step validation rejections by step.",
}, []string{"step"})

// ActiveSessions tracks wizard sessions currently held in memory.
var ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "referral",
	Subsystem: "wizard",
	Name:      "active_sessions",
	Help:      "Number of wizard sessions currently in memory.",
})

// ─── Submission Metrics ─────────────────────────────────────────────────────

// SubmissionAttempts counts individual HTTP attempts against the external store.
var SubmissionAttempts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "referral",
	Subsystem: "submission",
	Name:      "attempts_total",
	Help:      "Total HTTP attempts against the external store, including retries.",
})

// SubmissionsTotal counts submission outcomes by error kind ("ok" on success).
var SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "referral",
	Subsystem: "submission",
	Name:      "outcomes_total",
	Help:      "Total submissions by outcome kind.",
}, []string{"outcome"})

// SubmissionDuration tracks end-to-end submission latency, retries included.
var SubmissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "referral",
	Subsystem: "submission",
	Name:      "duration_seconds",
	Help:      "End-to-end submission latency in seconds, retries included.",
	Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
})

// DraftsSaved counts draft snapshot writes.
var DraftsSaved = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "referral",
	Subsystem: "draft",
	Name:      "saves_total",
	Help:      "Total draft snapshot writes.",
})
