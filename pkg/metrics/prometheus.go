// Package metrics provides Prometheus metrics for the Marquee catalog service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metadata fetch outcomes used as the result label.
const (
	FetchOK       = "ok"
	FetchNotFound = "not_found"
	FetchError    = "error"
	FetchRejected = "breaker_open"
	FetchLimited  = "rate_limited"
)

// Manager manages all Prometheus metrics for the Marquee service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Catalog metrics
	moviesCreated   prometheus.Counter
	moviesDeleted   prometheus.Counter
	commentsCreated prometheus.Counter
	totalMovies     prometheus.Gauge
	totalComments   prometheus.Gauge

	// Leaderboard metrics
	leaderboardQueries *prometheus.CounterVec
	leaderboardLatency prometheus.Histogram
	leaderboardSize    prometheus.Gauge

	// Metadata provider metrics
	metadataFetches      *prometheus.CounterVec
	metadataLatency      prometheus.Histogram
	metadataBreakerState prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository metrics
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics
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
		namespace:        "marquee",
		subsystem:        "catalog",
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
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

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
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

// initializeMetrics creates all the Prometheus metrics on the configured registry.
func (m *Manager) initializeMetrics() {
	m.moviesCreated = m.counter("movies_created_total", "Total number of movies created")
	m.moviesDeleted = m.counter("movies_deleted_total", "Total number of movies deleted")
	m.commentsCreated = m.counter("comments_created_total", "Total number of comments created")
	m.totalMovies = m.gauge("movies", "Current number of movies in the catalog")
	m.totalComments = m.gauge("comments", "Current number of comments in the catalog")

	m.leaderboardQueries = m.counterVec("leaderboard_queries_total",
		"Total number of leaderboard queries by window kind", "window")
	m.leaderboardLatency = m.histogram("leaderboard_latency_milliseconds",
		"Leaderboard computation latency in milliseconds", m.histogramBuckets)
	m.leaderboardSize = m.gauge("leaderboard_size",
		"Number of entries in the most recently computed leaderboard")

	m.metadataFetches = m.counterVec("metadata_fetches_total",
		"Total number of metadata provider lookups by result", "result")
	m.metadataLatency = m.histogram("metadata_latency_milliseconds",
		"Metadata provider lookup latency in milliseconds", m.histogramBuckets)
	m.metadataBreakerState = m.gauge("metadata_breaker_state",
		"Metadata circuit breaker state (0 closed, 1 half-open, 2 open)")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds",
		"Repository update operation latency in milliseconds", m.histogramBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds",
		"Repository query operation latency in milliseconds", m.histogramBuckets)

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds",
		"Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordMovieCreated increments the movies created counter.
func RecordMovieCreated() {
	globalManager.moviesCreated.Inc()
}

// RecordMovieDeleted increments the movies deleted counter.
func RecordMovieDeleted() {
	globalManager.moviesDeleted.Inc()
}

// RecordCommentCreated increments the comments created counter.
func RecordCommentCreated() {
	globalManager.commentsCreated.Inc()
}

// UpdateTotalMovies sets the movie count gauge.
func UpdateTotalMovies(count int) {
	globalManager.totalMovies.Set(float64(count))
}

// UpdateTotalComments sets the comment count gauge.
func UpdateTotalComments(count int) {
	globalManager.totalComments.Set(float64(count))
}

// RecordLeaderboardQuery counts a leaderboard query, labelled by whether a
// date window was given.
func RecordLeaderboardQuery(windowed bool) {
	window := "all_time"
	if windowed {
		window = "range"
	}
	globalManager.leaderboardQueries.WithLabelValues(window).Inc()
}

// RecordLeaderboardLatency records leaderboard computation latency.
func RecordLeaderboardLatency(latencyMs float64) {
	globalManager.leaderboardLatency.Observe(latencyMs)
}

// UpdateLeaderboardSize sets the size of the last leaderboard.
func UpdateLeaderboardSize(size int) {
	globalManager.leaderboardSize.Set(float64(size))
}

// RecordMetadataFetch counts a metadata lookup by result.
func RecordMetadataFetch(result string) {
	globalManager.metadataFetches.WithLabelValues(result).Inc()
}

// RecordMetadataLatency records metadata lookup latency.
func RecordMetadataLatency(latencyMs float64) {
	globalManager.metadataLatency.Observe(latencyMs)
}

// UpdateMetadataBreakerState sets the breaker state gauge.
func UpdateMetadataBreakerState(state int) {
	globalManager.metadataBreakerState.Set(float64(state))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryUpdateLatency records repository update operation latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query operation latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

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
