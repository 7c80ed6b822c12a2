package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	notificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liveactivity_relay",
		Subsystem: "dispatch",
		Name:      "notifications_sent_total",
		Help:      "Live-activity notifications accepted by the push provider.",
	}, []string{"event", "environment"})

	notificationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liveactivity_relay",
		Subsystem: "dispatch",
		Name:      "notification_failures_total",
		Help:      "Live-activity notifications the push provider failed to deliver.",
	}, []string{"event", "environment"})

	validationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liveactivity_relay",
		Subsystem: "http",
		Name:      "validation_failures_total",
		Help:      "Relay requests rejected before reaching the push provider.",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(notificationsSent, notificationFailures, validationFailures)
}

// RecordNotificationSent increments the delivered counter for the event.
func RecordNotificationSent(event, environment string) {
	notificationsSent.WithLabelValues(event, environment).Inc()
}

// RecordNotificationFailure increments the provider-failure counter.
func RecordNotificationFailure(event, environment string) {
	notificationFailures.WithLabelValues(event, environment).Inc()
}

// RecordValidationFailure increments the rejected-request counter.
func RecordValidationFailure(endpoint string) {
	validationFailures.WithLabelValues(endpoint).Inc()
}
