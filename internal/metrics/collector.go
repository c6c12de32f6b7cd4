package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector owns every Prometheus series the service exports.
type Collector struct {
	// HTTP surface
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Pipeline stages (asr, llm, tts)
	stageRequestsTotal *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec

	// Streaming surface
	wsConnectionsActive prometheus.Gauge
	wsEventsTotal       *prometheus.CounterVec
	replyCyclesTotal    *prometheus.CounterVec

	// Session store
	sessionEvictionsTotal prometheus.Counter

	logger *zap.Logger
}

// NewCollector registers all series under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.stageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_requests_total",
			Help:      "Total number of pipeline stage invocations",
		},
		[]string{"stage", "status"},
	)

	c.stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	c.wsConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections_active",
			Help:      "Number of open streaming connections",
		},
	)

	c.wsEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_events_total",
			Help:      "Total number of outbound streaming events by type",
		},
		[]string{"type"},
	)

	c.replyCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_cycles_total",
			Help:      "Total number of reply cycles by outcome",
		},
		[]string{"status"},
	)

	c.sessionEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_evictions_total",
			Help:      "Total number of sessions evicted from the store",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStage records one pipeline stage invocation.
func (c *Collector) RecordStage(stage, status string, duration time.Duration) {
	c.stageRequestsTotal.WithLabelValues(stage, status).Inc()
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ConnectionOpened marks a streaming connection as active.
func (c *Collector) ConnectionOpened() {
	c.wsConnectionsActive.Inc()
}

// ConnectionClosed marks a streaming connection as released.
func (c *Collector) ConnectionClosed() {
	c.wsConnectionsActive.Dec()
}

// RecordEvent counts an outbound streaming event (ack, partial_text,
// final_text, audio, done, error).
func (c *Collector) RecordEvent(eventType string) {
	c.wsEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordReplyCycle counts one completed or aborted reply cycle.
func (c *Collector) RecordReplyCycle(status string) {
	c.replyCyclesTotal.WithLabelValues(status).Inc()
}

// RecordSessionEviction counts one capacity eviction from the session store.
func (c *Collector) RecordSessionEviction() {
	c.sessionEvictionsTotal.Inc()
}

// statusCode collapses HTTP status codes into class labels to keep
// cardinality bounded.
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
