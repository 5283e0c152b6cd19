// Package metrics provides Prometheus metrics for the traffic robot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Tick pipeline
	ticks           *prometheus.CounterVec
	tickDuration    *prometheus.HistogramVec
	classifications *prometheus.CounterVec

	// Data source
	sourceFetches      *prometheus.CounterVec
	sourceFetchLatency *prometheus.HistogramVec

	// Delivery (primary return_url and secondary status channel)
	deliveries      *prometheus.CounterVec
	deliveryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// Status queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Status workers
	workerActiveCount prometheus.Gauge
	workerErrors      prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "traffic",
		subsystem:        "robot",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	m.ticks = m.counterVec("ticks_total", "Total number of ticks by terminal outcome", "outcome")
	m.tickDuration = m.histogramVec("tick_duration_milliseconds", "End-to-end tick duration in milliseconds", "outcome")
	m.classifications = m.counterVec("classifications_total", "Route classifications produced by the evaluator", "classification")

	m.sourceFetches = m.counterVec("source_fetches_total", "Data source fetches by source kind and result", "source", "result")
	m.sourceFetchLatency = m.histogramVec("source_fetch_latency_milliseconds", "Data source fetch latency in milliseconds", "source")

	m.deliveries = m.counterVec("deliveries_total", "Notification deliveries by channel and result", "channel", "result")
	m.deliveryLatency = m.histogramVec("delivery_latency_milliseconds", "Notification delivery latency in milliseconds", "channel")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint",
		"endpoint", "method", "error_type")

	m.queueSize = m.gauge("status_queue_size", "Current number of pending status notifications")
	m.queueCapacity = m.gauge("status_queue_capacity", "Maximum number of pending status notifications")
	m.queueEnqueued = m.counter("status_queue_enqueue_total", "Status notifications accepted by the queue")
	m.queueDequeued = m.counter("status_queue_dequeue_total", "Status notifications handed to workers")
	m.queueEnqueueErrors = m.counterVec("status_queue_enqueue_errors_total", "Status notifications dropped on enqueue", "reason")

	m.workerActiveCount = m.gauge("status_worker_active_count", "Number of running status workers")
	m.workerErrors = m.counter("status_worker_errors_total", "Status notifications that failed to send")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// Tick pipeline.

// RecordTick counts a tick that reached the given terminal outcome and
// observes its duration.
func RecordTick(outcome string, durationMs float64) {
	globalManager.ticks.WithLabelValues(outcome).Inc()
	globalManager.tickDuration.WithLabelValues(outcome).Observe(durationMs)
}

// RecordClassification counts an evaluator result.
func RecordClassification(classification string) {
	globalManager.classifications.WithLabelValues(classification).Inc()
}

// RecordSourceFetch records a data source call. result is "ok" or an error kind.
func RecordSourceFetch(source, result string, latencyMs float64) {
	globalManager.sourceFetches.WithLabelValues(source, result).Inc()
	globalManager.sourceFetchLatency.WithLabelValues(source).Observe(latencyMs)
}

// RecordDelivery records a notification attempt on channel ("primary" or "status").
func RecordDelivery(channel, result string, latencyMs float64) {
	globalManager.deliveries.WithLabelValues(channel, result).Inc()
	globalManager.deliveryLatency.WithLabelValues(channel).Observe(latencyMs)
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// Status queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a dropped status notification.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// Status workers.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
