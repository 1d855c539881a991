// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeCompleted          = "completed"
	OutcomePendingTimeout     = "pending_timeout"
	OutcomeStoreUnavailable   = "store_unavailable"
	OutcomeChannelUnavailable = "channel_unavailable"
	OutcomeCancelled          = "cancelled"
)

// Response outcomes.
const (
	ResponseApplied   = "applied"
	ResponseLate      = "late"
	ResponseMalformed = "malformed"
	ResponseUnknownID = "unknown_id"
	ResponseStoreFail = "store_error"
	ResponsePanic     = "panic"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_submissions_total",
			Help: "Total number of analysis submissions by outcome",
		},
		[]string{"outcome"},
	)

	ResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_responses_total",
			Help: "Total number of response frames consumed by outcome",
		},
		[]string{"outcome"},
	)

	WaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_wait_duration_seconds",
			Help:    "Time a submission spent waiting for its response",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)

	WaitersInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analysis_waiters_in_flight",
			Help: "Number of submissions currently waiting for a response",
		},
	)

	RecordsReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_records_reconciled_total",
			Help: "Total number of stale pending records marked timed out",
		},
	)
)
