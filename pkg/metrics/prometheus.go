// Package metrics provides Prometheus metrics for the followup analytics service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the followup service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion
	eventsIngested prometheus.Counter
	eventsSkipped  *prometheus.CounterVec

	// Analytics
	computationLatency *prometheus.HistogramVec
	evaluations        *prometheus.CounterVec
	interventions      *prometheus.CounterVec
	lifecycleDecisions *prometheus.CounterVec

	// Store
	storeEvents        prometheus.Gauge
	storeAppendLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueTotal      prometheus.Counter
	queueDequeueTotal      prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "followup",
		subsystem:        "analytics",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.eventsIngested = m.counter("events_ingested_total", "Total number of events appended to the event log")
	m.eventsSkipped = m.counterVec("events_skipped_total", "Events ignored during aggregation or ingestion", "reason")

	m.computationLatency = m.histogramVec("computation_latency_milliseconds", "Analytics computation latency in milliseconds", "operation")
	m.evaluations = m.counterVec("evaluations_total", "Before/after evaluations by outcome", "status")
	m.interventions = m.counterVec("interventions_total", "Habit interventions selected by type", "type")
	m.lifecycleDecisions = m.counterVec("lifecycle_decisions_total", "Lifecycle decisions by outcome", "decision", "outcome")

	m.storeEvents = m.gauge("store_events", "Number of events held by the event store")
	m.storeAppendLatency = m.histogram("store_append_latency_milliseconds", "Event store append latency in milliseconds", m.histogramBuckets)
	m.storeQueryLatency = m.histogram("store_query_latency_milliseconds", "Event store query latency in milliseconds", m.histogramBuckets)

	m.queueSize = m.gauge("queue_size", "Current size of the ingestion queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the ingestion queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (0-1)")
	m.queueEnqueueTotal = m.counter("queue_enqueue_total", "Total number of events enqueued")
	m.queueDequeueTotal = m.counter("queue_dequeue_total", "Total number of events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected enqueues")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time events spend in the queue in milliseconds", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Configured number of ingestion workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing an event")
	m.workerIdleCount = m.gauge("worker_idle_count", "Workers waiting for an event")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker processing errors")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordEventsIngested adds n to the ingested events counter.
func RecordEventsIngested(n int) {
	globalManager.eventsIngested.Add(float64(n))
}

// RecordEventSkipped counts an event ignored for reason.
func RecordEventSkipped(reason string, n int) {
	if n > 0 {
		globalManager.eventsSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordComputationLatency records how long an analytics operation took.
func RecordComputationLatency(operation string, latencyMs float64) {
	globalManager.computationLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordEvaluation counts an evaluation outcome.
func RecordEvaluation(status string) {
	globalManager.evaluations.WithLabelValues(status).Inc()
}

// RecordIntervention counts a selected intervention.
func RecordIntervention(kind string) {
	if kind == "" {
		kind = "none"
	}
	globalManager.interventions.WithLabelValues(kind).Inc()
}

// RecordLifecycleDecision counts a lifecycle decision as applied or skipped.
func RecordLifecycleDecision(decision, outcome string) {
	globalManager.lifecycleDecisions.WithLabelValues(decision, outcome).Inc()
}

// UpdateStoreEvents sets the number of stored events.
func UpdateStoreEvents(count int) {
	globalManager.storeEvents.Set(float64(count))
}

// RecordStoreAppendLatency records event store append latency.
func RecordStoreAppendLatency(latencyMs float64) {
	globalManager.storeAppendLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records event store query latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records time spent in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
