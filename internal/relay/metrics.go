package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	publishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "relay",
		Name:      "published_total",
		Help:      "Envelopes written to the relay topic, by event type and outcome.",
	}, []string{"event_type", "outcome"})

	relayedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "relay",
		Name:      "received_total",
		Help:      "Envelopes received from the relay topic, by event type.",
	}, []string{"event_type"})

	fanoutHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orgio",
		Subsystem: "relay",
		Name:      "fanout_listeners",
		Help:      "Local listeners reached per relayed envelope.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	skippedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "relay",
		Name:      "skipped_total",
		Help:      "Relayed envelopes not broadcast, by reason.",
	}, []string{"event_type", "reason"})
)

func init() {
	prometheus.MustRegister(publishCounter, relayedCounter, fanoutHistogram, skippedCounter)
}

func recordPublish(eventType, outcome string) {
	publishCounter.WithLabelValues(eventType, outcome).Inc()
}

func recordRelayed(eventType string, delivered int) {
	relayedCounter.WithLabelValues(eventType).Inc()
	fanoutHistogram.Observe(float64(delivered))
}

func recordStale(eventType string) {
	skippedCounter.WithLabelValues(eventType, "stale").Inc()
}

func recordDiscarded(eventType string) {
	skippedCounter.WithLabelValues(eventType, "malformed").Inc()
}
