package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	listenerGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "orgio",
		Subsystem: "realtime",
		Name:      "listeners",
		Help:      "Number of live realtime listeners.",
	})
	deliveredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "realtime",
		Name:      "delivered_total",
		Help:      "Envelopes handed to listeners, by event type.",
	}, []string{"event_type"})
	droppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgio",
		Subsystem: "realtime",
		Name:      "dropped_total",
		Help:      "Envelopes that failed delivery and removed their listener, by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(listenerGauge, deliveredCounter, droppedCounter)
}

func recordDelivered(eventType string) {
	deliveredCounter.WithLabelValues(eventType).Inc()
}

func recordDropped(eventType string) {
	droppedCounter.WithLabelValues(eventType).Inc()
}
