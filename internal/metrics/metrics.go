package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Completion outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
	OutcomeRejected  = "rejected"
)

var (
	CompletionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "home_assistant_completion_requests_total",
			Help: "Chat completion submissions by outcome",
		},
		[]string{"outcome"},
	)

	CompletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "home_assistant_completion_duration_seconds",
			Help:    "Time from dispatch to end of stream",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 30, 60},
		},
	)

	StreamFragments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "home_assistant_stream_fragments_total",
			Help: "Content fragments decoded from completion streams",
		},
	)

	StreamDecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "home_assistant_stream_decode_errors_total",
			Help: "Malformed event lines skipped",
		},
	)

	VoiceCaptures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "home_assistant_voice_captures_total",
			Help: "Voice capture attempts by result",
		},
		[]string{"result"}, // "transcript", "empty" or "error"
	)
)
