package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level
// observability across checkout, payment reconciliation and production.
type BusinessMetrics struct {
	// Checkout funnel
	CheckoutStarted   *prometheus.CounterVec
	CheckoutCompleted *prometheus.CounterVec
	BillValue         *prometheus.HistogramVec

	// Bill lifecycle
	BillTransitions *prometheus.CounterVec
	BillsFrozen     prometheus.Counter

	// Gateway notifications
	NotificationsReceived  *prometheus.CounterVec
	NotificationsDuplicate *prometheus.CounterVec
	NotificationsRejected  *prometheus.CounterVec
	NotificationLatency    *prometheus.HistogramVec

	// Production
	ProductionRuns     *prometheus.CounterVec
	ProductionFailures *prometheus.CounterVec
	ProductsCreated    *prometheus.CounterVec
	ProductionDuration *prometheus.HistogramVec

	// Sweep worker
	SweepRuns     prometheus.Counter
	SweepRedriven prometheus.Counter
}

// NewBusinessMetrics creates and registers all business metrics
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "merchant"
	}

	subsystem := "business"

	m := &BusinessMetrics{
		// =======================================================================
		// Checkout Funnel
		// =======================================================================
		CheckoutStarted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_started_total",
				Help:      "Total carts that entered checkout",
			},
			[]string{"gateway"},
		),
		CheckoutCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_completed_total",
				Help:      "Total bills placed",
			},
			[]string{"gateway"},
		),
		BillValue: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bill_value",
				Help:      "Taxed bill total distribution in currency units",
				Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
			},
			[]string{"currency"},
		),

		// =======================================================================
		// Bill Lifecycle
		// =======================================================================
		BillTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bill_transitions_total",
				Help:      "Total bill status transitions",
			},
			[]string{"from", "to"},
		),
		BillsFrozen: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bills_frozen_total",
				Help:      "Total bills assigned an accounting number",
			},
		),

		// =======================================================================
		// Gateway Notifications
		// =======================================================================
		NotificationsReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_received_total",
				Help:      "Total payment notifications received",
			},
			[]string{"gateway"},
		),
		NotificationsDuplicate: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_duplicate_total",
				Help:      "Total redelivered notifications acknowledged as no-ops",
			},
			[]string{"gateway"},
		),
		NotificationsRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_rejected_total",
				Help:      "Total notifications that failed verification",
			},
			[]string{"gateway", "reason"},
		),
		NotificationLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notification_processing_seconds",
				Help:      "Notification processing duration including production",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"gateway"},
		),

		// =======================================================================
		// Production
		// =======================================================================
		ProductionRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "production_runs_total",
				Help:      "Total production pipeline runs per outcome",
			},
			[]string{"outcome"}, // outcome: complete, partial, failed
		),
		ProductionFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "production_failures_total",
				Help:      "Total bill line production failures per handler",
			},
			[]string{"handler"},
		),
		ProductsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "products_created_total",
				Help:      "Total product instances created",
			},
			[]string{"handler"},
		),
		ProductionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "production_duration_seconds",
				Help:      "Production handler execution duration",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"handler"},
		),

		// =======================================================================
		// Sweep Worker
		// =======================================================================
		SweepRuns: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sweep_runs_total",
				Help:      "Total sweep worker polls",
			},
		),
		SweepRedriven: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sweep_redriven_total",
				Help:      "Total stuck bills re-driven through production",
			},
		),
	}

	return m
}

// Global instance for easy access from handlers
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}
