package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "sessions",
		Name:      "started_total",
		Help:      "Number of work sessions started.",
	})
	sessionsEnded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "sessions",
		Name:      "ended_total",
		Help:      "Number of work sessions ended with a submission.",
	})
	sessionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orgio",
		Subsystem: "sessions",
		Name:      "duration_minutes",
		Help:      "Length of completed work sessions in minutes.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 240, 480},
	})
	submissionsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "submissions",
		Name:      "created_total",
		Help:      "Number of submissions created, by origin.",
	}, []string{"origin"})
	reviews = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "submissions",
		Name:      "reviews_total",
		Help:      "Number of submission reviews, by resulting status.",
	}, []string{"status"})
	llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "Language model calls by component and outcome (ok, fallback).",
	}, []string{"component", "outcome"})
	notifyFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "notify",
		Name:      "failures_total",
		Help:      "Realtime notifications that could not be handed off, by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(sessionsStarted, sessionsEnded, sessionDuration, submissionsCreated, reviews, llmCalls, notifyFailures)
}

// RecordSessionStarted counts a started session.
func RecordSessionStarted() {
	sessionsStarted.Inc()
}

// RecordSessionEnded counts an ended session and observes its length.
func RecordSessionEnded(durationMinutes int) {
	sessionsEnded.Inc()
	sessionDuration.Observe(float64(durationMinutes))
}

// RecordSubmissionCreated counts a persisted submission. origin is "session" or "direct".
func RecordSubmissionCreated(origin string) {
	submissionsCreated.WithLabelValues(origin).Inc()
}

// RecordReview counts a review decision.
func RecordReview(status string) {
	reviews.WithLabelValues(status).Inc()
}

// RecordLLMCall counts a language model call outcome for a component.
func RecordLLMCall(component, outcome string) {
	llmCalls.WithLabelValues(component, outcome).Inc()
}

// RecordNotifyFailure counts a notification the notifier rejected.
func RecordNotifyFailure(eventType string) {
	notifyFailures.WithLabelValues(eventType).Inc()
}
