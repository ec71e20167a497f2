package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	// HTTP request metrics
	httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Queue metrics
	queueSize = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "dca_queue_size",
			Help: "Current number of pending orders",
		},
	)

	ordersEnqueuedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "dca_orders_enqueued_total",
			Help: "Total number of orders accepted into the queue",
		},
	)

	ordersInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "dca_orders_in_flight",
			Help: "Orders currently being submitted to the ledger (0 or 1)",
		},
	)

	// Drain metrics
	ordersProcessedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dca_orders_processed_total",
			Help: "Total number of orders settled by the drain worker",
		},
		[]string{"outcome", "failure_kind"},
	)

	orderProcessingDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dca_order_processing_duration_seconds",
			Help:    "Time from dequeue to terminal state",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 15, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	// Ledger metrics
	ledgerRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dca_ledger_requests_total",
			Help: "Total number of ledger calls",
		},
		[]string{"operation", "status"},
	)

	ledgerRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dca_ledger_request_duration_seconds",
			Help:    "Ledger call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	systemErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "system_errors_total",
			Help: "Total number of system errors",
		},
		[]string{"error_type", "component"},
	)
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// HTTP Metrics
func RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, statusCode).Observe(duration)
}

// Queue Metrics
func SetQueueSize(size float64) {
	queueSize.Set(size)
}

func RecordEnqueue() {
	ordersEnqueuedTotal.Inc()
}

func SetInFlight(n float64) {
	ordersInFlight.Set(n)
}

// RecordOrderProcessed records a terminal outcome. failureKind is empty for commits.
func RecordOrderProcessed(outcome, failureKind string, duration float64) {
	ordersProcessedTotal.WithLabelValues(outcome, failureKind).Inc()
	orderProcessingDuration.WithLabelValues(outcome).Observe(duration)
}

// Ledger Metrics
func RecordLedgerRequest(operation, status string, duration float64) {
	ledgerRequestsTotal.WithLabelValues(operation, status).Inc()
	ledgerRequestDuration.WithLabelValues(operation).Observe(duration)
}

func RecordSystemError(errorType, component string) {
	systemErrorsTotal.WithLabelValues(errorType, component).Inc()
}
