package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline throughput
	transactionsReceived  *prometheus.CounterVec
	transactionsProcessed prometheus.Counter
	transactionsFraud     prometheus.Counter
	transactionsDuplicate prometheus.Counter
	transactionsMalformed prometheus.Counter
	transactionsDropped   *prometheus.CounterVec
	riskLevels            *prometheus.CounterVec
	combinedProbability   prometheus.Histogram
	processingLatency     prometheus.Histogram
	classifierLatency     prometheus.Histogram
	storeLatency          *prometheus.HistogramVec
	workerPanics          *prometheus.CounterVec
	reputationRequests    *prometheus.CounterVec
	reputationLatency     *prometheus.HistogramVec
	alertsCreated         prometheus.Counter
	alertNotifications    *prometheus.CounterVec
	reconcileRuns         *prometheus.CounterVec
	reconcileInjected     prometheus.Counter
	queueDepth            *prometheus.GaugeVec
	workerCount           *prometheus.GaugeVec
	uptimeSeconds         prometheus.Gauge
	fraudRate             prometheus.Gauge
	httpRequests          *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	httpErrors            *prometheus.CounterVec
	systemMemoryUsage     prometheus.Gauge
	systemGoroutineCount  prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fraudscope",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.transactionsReceived = auto.NewCounterVec(
		m.counterOpts("transactions_received_total", "Transactions accepted onto the ingestion queue by origin"),
		[]string{"origin"},
	)
	m.transactionsProcessed = auto.NewCounter(
		m.counterOpts("transactions_processed_total", "Transactions scored and persisted"))
	m.transactionsFraud = auto.NewCounter(
		m.counterOpts("transactions_fraud_total", "Transactions whose combined verdict is fraud"))
	m.transactionsDuplicate = auto.NewCounter(
		m.counterOpts("transactions_duplicate_total", "Transactions already present in the store"))
	m.transactionsMalformed = auto.NewCounter(
		m.counterOpts("transactions_malformed_total", "Events rejected as malformed"))
	m.transactionsDropped = auto.NewCounterVec(
		m.counterOpts("transactions_dropped_total", "Transactions dropped after a stage failure"),
		[]string{"stage"},
	)
	m.riskLevels = auto.NewCounterVec(
		m.counterOpts("risk_level_total", "Assessments by risk level"),
		[]string{"level"},
	)
	m.combinedProbability = auto.NewHistogram(m.histogramOpts(
		"combined_probability", "Distribution of fused fraud probabilities",
		prometheus.LinearBuckets(0.1, 0.1, 10)))
	m.processingLatency = auto.NewHistogram(m.histogramOpts(
		"processing_latency_milliseconds", "End to end latency of a single transaction", m.histogramBuckets))
	m.classifierLatency = auto.NewHistogram(m.histogramOpts(
		"classifier_latency_milliseconds", "Internal classifier prediction latency", m.histogramBuckets))
	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Persistent store latency by operation", m.histogramBuckets),
		[]string{"operation"},
	)
	m.workerPanics = auto.NewCounterVec(
		m.counterOpts("worker_panics_total", "Panics recovered inside worker handlers"),
		[]string{"pool"},
	)
	m.reputationRequests = auto.NewCounterVec(
		m.counterOpts("reputation_requests_total", "Reputation source calls by outcome"),
		[]string{"source", "status"},
	)
	m.reputationLatency = auto.NewHistogramVec(
		m.histogramOpts("reputation_latency_milliseconds", "Reputation source latency", m.histogramBuckets),
		[]string{"source"},
	)
	m.alertsCreated = auto.NewCounter(
		m.counterOpts("alerts_created_total", "Alert records persisted"))
	m.alertNotifications = auto.NewCounterVec(
		m.counterOpts("alert_notifications_total", "Alert sink deliveries by outcome"),
		[]string{"sink", "status"},
	)
	m.reconcileRuns = auto.NewCounterVec(
		m.counterOpts("reconcile_runs_total", "Reconciliation cycles by outcome"),
		[]string{"status"},
	)
	m.reconcileInjected = auto.NewCounter(
		m.counterOpts("reconcile_injected_total", "Transactions re-injected by reconciliation"))
	m.queueDepth = auto.NewGaugeVec(
		m.gaugeOpts("queue_depth", "Current queue depth"),
		[]string{"queue"},
	)
	m.workerCount = auto.NewGaugeVec(
		m.gaugeOpts("worker_count", "Configured workers per pool"),
		[]string{"pool"},
	)
	m.uptimeSeconds = auto.NewGauge(m.gaugeOpts("uptime_seconds", "Seconds since the pipeline started"))
	m.fraudRate = auto.NewGauge(m.gaugeOpts("fraud_rate", "Fraud detected over processed since start"))
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpErrors = auto.NewCounterVec(
		m.counterOpts("http_errors_total", "HTTP error responses by endpoint, type and severity"),
		[]string{"endpoint", "method", "type", "severity"},
	)
	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordTransactionReceived counts a transaction accepted from origin (submit, reconcile).
func RecordTransactionReceived(origin string) {
	globalManager.transactionsReceived.WithLabelValues(origin).Inc()
}

// RecordTransactionProcessed counts a persisted assessment.
func RecordTransactionProcessed(fraud bool, level string, probability float64) {
	globalManager.transactionsProcessed.Inc()
	if fraud {
		globalManager.transactionsFraud.Inc()
	}
	globalManager.riskLevels.WithLabelValues(level).Inc()
	globalManager.combinedProbability.Observe(probability)
}

func RecordTransactionDuplicate() { globalManager.transactionsDuplicate.Inc() }

func RecordTransactionMalformed() { globalManager.transactionsMalformed.Inc() }

// RecordTransactionDropped counts a transaction abandoned at stage.
func RecordTransactionDropped(stage string) {
	globalManager.transactionsDropped.WithLabelValues(stage).Inc()
}

func RecordProcessingLatency(latencyMs float64) { globalManager.processingLatency.Observe(latencyMs) }

func RecordClassifierLatency(latencyMs float64) { globalManager.classifierLatency.Observe(latencyMs) }

// RecordStoreLatency observes a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordWorkerPanic counts a recovered panic in pool.
func RecordWorkerPanic(pool string) {
	globalManager.workerPanics.WithLabelValues(pool).Inc()
}

// RecordReputationRequest records a reputation source call.
func RecordReputationRequest(source, status string, latencyMs float64) {
	globalManager.reputationRequests.WithLabelValues(source, status).Inc()
	globalManager.reputationLatency.WithLabelValues(source).Observe(latencyMs)
}

func RecordAlertCreated() { globalManager.alertsCreated.Inc() }

// RecordAlertNotification records a sink delivery outcome.
func RecordAlertNotification(sink, status string) {
	globalManager.alertNotifications.WithLabelValues(sink, status).Inc()
}

// RecordReconcileRun records a reconciliation cycle and how many items it injected.
func RecordReconcileRun(status string, injected int) {
	globalManager.reconcileRuns.WithLabelValues(status).Inc()
	globalManager.reconcileInjected.Add(float64(injected))
}

// UpdateQueueDepth sets the depth gauge of the named queue.
func UpdateQueueDepth(queue string, depth int) {
	globalManager.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// UpdateWorkerCount sets the worker gauge of the named pool.
func UpdateWorkerCount(pool string, count int) {
	globalManager.workerCount.WithLabelValues(pool).Set(float64(count))
}

func UpdateUptime(seconds float64) { globalManager.uptimeSeconds.Set(seconds) }

func UpdateFraudRate(rate float64) { globalManager.fraudRate.Set(rate) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
