// Package metrics exposes Prometheus instruments for the notification pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tick results.
const (
	TickCompleted        = "completed"
	TickStoreUnavailable = "store_unavailable"
	TickQueryFailed      = "query_failed"
)

// Notification results.
const (
	NotificationSent               = "sent"
	NotificationFailed             = "failed"
	NotificationSkipped            = "skipped"
	NotificationOwnershipViolation = "ownership_violation"
)

var (
	// SchedulerTicks counts scheduler ticks.
	// Labels: result (completed, store_unavailable, query_failed)
	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dayplan",
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of notification scheduler ticks",
		},
		[]string{"result"},
	)

	// TickDuration tracks how long a scheduler tick takes.
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dayplan",
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Duration of notification scheduler ticks in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// Notifications counts per-user digest outcomes.
	// Labels: result (sent, failed, skipped, ownership_violation)
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dayplan",
			Subsystem: "scheduler",
			Name:      "notifications_total",
			Help:      "Total number of daily digest notifications by outcome",
		},
		[]string{"result"},
	)

	// MailSends counts individual SMTP send tries.
	// Labels: endpoint, result (success, error)
	MailSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dayplan",
			Subsystem: "mail",
			Name:      "sends_total",
			Help:      "Total number of SMTP send tries by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)
)
