package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for session lifecycle metrics
	transitionLabels = []string{"from_status", "to_status"}

	// SessionsActive tracks the number of live session handles in the registry.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_manager_sessions_active",
		Help: "Current number of sessions with a live connection handle.",
	})

	// SessionTransitionsTotal counts lifecycle state transitions.
	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_manager_session_transitions_total",
			Help: "Total number of session lifecycle transitions.",
		},
		transitionLabels,
	)

	// SessionReconnectsTotal counts automatic reconnect attempts after an
	// unexpected link drop.
	SessionReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_manager_session_reconnects_total",
		Help: "Total number of automatic reconnect attempts.",
	})
)

// Labels and metrics for inbound/outbound message flow
var (
	messageLabels = []string{"message_type"}
	discardLabels = []string{"reason"}

	MessagesInboundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_manager_messages_inbound_total",
			Help: "Total number of inbound messages persisted, labeled by classified type.",
		},
		messageLabels,
	)
	MessagesInboundDiscardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_manager_messages_inbound_discarded_total",
			Help: "Total number of inbound events discarded before persistence.",
		},
		discardLabels,
	)
	MessagesOutboundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_manager_messages_outbound_total",
			Help: "Total number of outbound messages accepted for delivery.",
		},
		messageLabels,
	)

	MessageSendDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "session_manager_message_send_duration_seconds",
			Help:    "Histogram of outbound send durations, gateway round-trip included.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"message_type", "status"},
	)
)

// Labels and metrics for database operations
var (
	dbOperationLabels = []string{"operation", "entity", "status"}

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "session_manager_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// Metrics for the notification publisher
var (
	notifyLabels = []string{"event_type", "status"}

	NotificationsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_manager_notifications_published_total",
			Help: "Total number of notification events handed to the broker, labeled by outcome.",
		},
		notifyLabels,
	)
	NotificationQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_manager_notification_queue_length",
		Help: "Approximate number of tasks waiting in the notification worker pool queue.",
	})
)

// InitMetrics configures metric collection. Metrics are auto-registered via
// promauto; disabling only mutes the helper functions.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// SetSessionsActive sets the live session handle gauge.
func SetSessionsActive(count int) {
	if !metricsEnabled {
		return
	}
	SessionsActive.Set(float64(count))
}

// IncSessionTransition increments the transition counter for one edge.
func IncSessionTransition(fromStatus, toStatus string) {
	if !metricsEnabled {
		return
	}
	SessionTransitionsTotal.WithLabelValues(fromStatus, toStatus).Inc()
}

// IncSessionReconnect increments the reconnect attempt counter.
func IncSessionReconnect() {
	if !metricsEnabled {
		return
	}
	SessionReconnectsTotal.Inc()
}

// IncMessagesInbound increments the inbound message counter.
func IncMessagesInbound(messageType string) {
	if !metricsEnabled {
		return
	}
	MessagesInboundTotal.WithLabelValues(messageType).Inc()
}

// IncMessagesInboundDiscarded increments the discard counter with a coarse reason.
func IncMessagesInboundDiscarded(reason string) {
	if !metricsEnabled {
		return
	}
	MessagesInboundDiscardedTotal.WithLabelValues(reason).Inc()
}

// IncMessagesOutbound increments the outbound message counter.
func IncMessagesOutbound(messageType string) {
	if !metricsEnabled {
		return
	}
	MessagesOutboundTotal.WithLabelValues(messageType).Inc()
}

// ObserveSendDuration records the duration of one outbound send.
func ObserveSendDuration(messageType string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	MessageSendDurationSeconds.WithLabelValues(messageType, status).Observe(duration.Seconds())
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// IncNotificationPublished increments the publish counter with the outcome.
func IncNotificationPublished(eventType string, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// SetNotificationQueueLength sets the notification pool queue gauge.
func SetNotificationQueueLength(length int) {
	if !metricsEnabled {
		return
	}
	NotificationQueueLength.Set(float64(length))
}
