package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "roadwatch"

var (
	// Escalation metrics

	// EscalationCycles counts monitor evaluation cycles by outcome.
	EscalationCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "cycles_total",
			Help:      "Escalation evaluation cycles",
		},
		[]string{"result"}, // result: ok, source_error
	)

	// EscalationAlerts counts escalation alerts by priority and dispatch outcome.
	EscalationAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "alerts_total",
			Help:      "Escalation alerts produced by the evaluator",
		},
		[]string{"priority", "result"}, // result: dispatched, deduplicated
	)

	// EscalationSkipped counts records skipped for missing or invalid detection time.
	EscalationSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "skipped_records_total",
			Help:      "Issue records skipped because detected_at is missing or invalid",
		},
	)

	// EscalationCycleDuration tracks time spent per evaluation cycle.
	EscalationCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "cycle_duration_seconds",
			Help:      "Escalation evaluation cycle duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// OverdueIssues tracks overdue non-completed issues seen in the last cycle.
	OverdueIssues = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "overdue_issues",
			Help:      "Overdue issues in the latest evaluation cycle",
		},
	)

	// Notification store metrics

	// NotificationsStored tracks notifications held by the store.
	NotificationsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "stored",
			Help:      "Notifications currently held by the store",
		},
	)

	// NotificationsUnread tracks unread notifications.
	NotificationsUnread = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "unread",
			Help:      "Unread notifications",
		},
	)

	// NotificationsCreated counts notifications by type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications added to the store",
		},
		[]string{"type"},
	)

	// PersistOperations counts snapshot persistence attempts by result.
	PersistOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "persist_total",
			Help:      "Notification snapshot persistence operations",
		},
		[]string{"operation", "result"}, // operation: load, save
	)

	// Delivery metrics

	// DeliveryAttempts counts outbound deliveries by channel and result.
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "messages_total",
			Help:      "Outbound message deliveries",
		},
		[]string{"channel", "result"}, // result: success, failed, dropped, breaker_open
	)

	// DeliveryDuration tracks delivery latency per channel including retries.
	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "duration_seconds",
			Help:      "Outbound delivery duration including retries",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	// OutboxDepth tracks messages waiting in the in-process outbox.
	OutboxDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "outbox_depth",
			Help:      "Messages waiting in the in-process outbox",
		},
	)

	// BreakerState tracks circuit breaker state per channel (0=closed, 1=half-open, 2=open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per channel (0=closed, 1=half-open, 2=open)",
		},
		[]string{"channel"},
	)

	// Ingest metrics

	// IssuesIngested counts issue records accepted by transport.
	IssuesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "issues_total",
			Help:      "Issue records received by transport",
		},
		[]string{"transport", "result"}, // transport: http, nats, poll
	)

	// IssuesTracked tracks issue collection size.
	IssuesTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "issues_tracked",
			Help:      "Issue records in the collection",
		},
	)
)
