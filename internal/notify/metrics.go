package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrtrack_notifications_total",
		Help: "Notification dispatch outcomes by channel.",
	}, []string{"channel", "outcome"})

	effectsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrtrack_notification_effects_dropped_total",
		Help: "Notification effects dropped because the async queue was full.",
	})
)

func recordOutcome(attempt Attempt) {
	notificationsTotal.WithLabelValues(string(attempt.Channel), string(attempt.Outcome)).Inc()
}
