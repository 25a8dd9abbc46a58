// Package metrics provides Prometheus metrics for the neurolens assessment pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace = "neurolens"
	defaultSubsystem = "assessment"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Telemetry link
	telemetrySent     *prometheus.CounterVec
	telemetryDropped  *prometheus.CounterVec
	feedbackReceived  *prometheus.CounterVec
	feedbackInvalid   *prometheus.CounterVec
	linkConnects      *prometheus.CounterVec
	captureErrors     *prometheus.CounterVec
	moduleCompletions *prometheus.CounterVec
	moduleScores      *prometheus.CounterVec
	moduleDuration    *prometheus.HistogramVec

	// Session lifecycle
	sessionOutcomes *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	batchLatency    prometheus.Histogram
	batchErrors     prometheus.Counter

	// Queues
	queueSize  *prometheus.GaugeVec
	queueDrops *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // custom registry keeps Go runtime metrics out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Collectors are registered on the
// configured registry, prometheus.DefaultRegisterer unless overridden.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.telemetrySent = m.counterVec("telemetry_sent_total", "Messages written to the analysis service socket", "task")
	m.telemetryDropped = m.counterVec("telemetry_dropped_total", "Messages dropped because the link was not ready or its buffer was full", "task")
	m.feedbackReceived = m.counterVec("feedback_received_total", "Feedback messages accepted from the analysis service", "task")
	m.feedbackInvalid = m.counterVec("feedback_invalid_total", "Feedback messages rejected at the link boundary", "task")
	m.linkConnects = m.counterVec("link_connects_total", "Telemetry link connection attempts by result", "task", "result")
	m.captureErrors = m.counterVec("capture_errors_total", "Capture device errors by task and stage", "task", "stage")
	m.moduleCompletions = m.counterVec("module_completions_total", "Finished modules by task and finish reason", "task", "reason")
	m.moduleScores = m.counterVec("module_scores_total", "Module scores by task and score value", "task", "score")
	m.sessionOutcomes = m.counterVec("session_outcomes_total", "Completed sessions by risk band", "band")
	m.queueDrops = m.counterVec("queue_drops_total", "Items rejected by a bounded queue", "queue", "reason")
	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")

	m.moduleDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "module_duration_seconds",
		Help:      "Recording duration of each module",
		Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 90},
	}, []string{"task"})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Sessions currently running modules or submitting",
	})

	m.batchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_analysis_latency_milliseconds",
		Help:      "Latency of the end-of-session batch analysis call",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	m.batchErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_analysis_errors_total",
		Help:      "Batch analysis calls that failed in transport or decoding",
	})

	m.queueSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of buffered items per queue",
	}, []string{"queue"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordTelemetrySent counts a message written to the socket for task.
func RecordTelemetrySent(task string) {
	globalManager.telemetrySent.WithLabelValues(task).Inc()
}

// RecordTelemetryDropped counts a message that never reached the socket.
func RecordTelemetryDropped(task string) {
	globalManager.telemetryDropped.WithLabelValues(task).Inc()
}

// RecordFeedbackReceived counts an accepted feedback message.
func RecordFeedbackReceived(task string) {
	globalManager.feedbackReceived.WithLabelValues(task).Inc()
}

// RecordFeedbackInvalid counts a feedback message that failed validation.
func RecordFeedbackInvalid(task string) {
	globalManager.feedbackInvalid.WithLabelValues(task).Inc()
}

// RecordLinkConnect counts a connect attempt; result is "ok" or "error".
func RecordLinkConnect(task, result string) {
	globalManager.linkConnects.WithLabelValues(task, result).Inc()
}

// RecordCaptureError counts a device failure at stage ("acquire", "read", "encode").
func RecordCaptureError(task, stage string) {
	globalManager.captureErrors.WithLabelValues(task, stage).Inc()
}

// RecordModuleCompleted counts a finished module; reason is "timeout", "early" or "skipped".
func RecordModuleCompleted(task, reason string) {
	globalManager.moduleCompletions.WithLabelValues(task, reason).Inc()
}

// RecordModuleScore counts the score a module produced.
func RecordModuleScore(task, score string) {
	globalManager.moduleScores.WithLabelValues(task, score).Inc()
}

// ObserveModuleDuration records how long a module was recording.
func ObserveModuleDuration(task string, d time.Duration) {
	globalManager.moduleDuration.WithLabelValues(task).Observe(d.Seconds())
}

// RecordSessionOutcome counts a completed session by risk band.
func RecordSessionOutcome(band string) {
	globalManager.sessionOutcomes.WithLabelValues(band).Inc()
}

// UpdateActiveSessions sets the number of live sessions.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordBatchLatency records the batch analysis latency in milliseconds.
func RecordBatchLatency(latencyMs float64) {
	globalManager.batchLatency.Observe(latencyMs)
}

// RecordBatchError counts a failed batch analysis call.
func RecordBatchError() {
	globalManager.batchErrors.Inc()
}

// UpdateQueueSize sets the current length of the named queue.
func UpdateQueueSize(queue string, size int) {
	globalManager.queueSize.WithLabelValues(queue).Set(float64(size))
}

// RecordQueueDrop counts an item the named queue refused.
func RecordQueueDrop(queue, reason string) {
	globalManager.queueDrops.WithLabelValues(queue, reason).Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by this package.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
