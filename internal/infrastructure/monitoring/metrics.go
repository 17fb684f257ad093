package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shellbridge"

// Metrics holds all Prometheus metrics. Each instance owns its registry so
// several servers (or tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Tool metrics
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	ToolDenied   *prometheus.CounterVec

	// Session metrics
	SessionsActive  *prometheus.GaugeVec
	SessionsCreated *prometheus.CounterVec
	SessionExits    *prometheus.CounterVec
	SessionsRemoved *prometheus.CounterVec

	// Viewer / WebSocket metrics
	ViewersActive  prometheus.Gauge
	ViewersDropped prometheus.Counter
	WSMessages     *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the JSON stats endpoint
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for the JSON API.
type MetricsSnapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	ToolCalls      int64   `json:"tool_calls"`
	ActiveSessions int64   `json:"active_sessions"`
	ActiveViewers  int64   `json:"active_viewers"`
	TotalDuration  float64 `json:"-"`
	RequestCount   int64   `json:"-"`
}

// NewMetrics creates a collector with its own registry, including the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls",
			},
			[]string{"tool", "status"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Tool call duration in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30, 60},
			},
			[]string{"tool"},
		),
		ToolDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_denied_total",
				Help:      "Commands rejected by the security policy",
			},
			[]string{"risk"},
		),

		SessionsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of running terminal sessions",
			},
			[]string{"kind"},
		),
		SessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_created_total",
				Help:      "Total number of terminal sessions created",
			},
			[]string{"kind"},
		),
		SessionExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_exits_total",
				Help:      "Terminal session process exits by final status",
			},
			[]string{"kind", "status"},
		),
		SessionsRemoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_removed_total",
				Help:      "Terminal sessions removed by reason (requested, idle, shutdown)",
			},
			[]string{"kind", "reason"},
		),

		ViewersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "viewers_active",
				Help:      "Number of attached terminal viewers",
			},
		),
		ViewersDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "viewers_dropped_total",
				Help:      "Viewers disconnected for falling behind",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry backing this collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordToolCall records a tool execution
func (m *Metrics) RecordToolCall(tool, status string, duration time.Duration) {
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.ToolCalls++
	m.mu.Unlock()
}

// RecordDenied records a command rejected by the validator
func (m *Metrics) RecordDenied(risk string) {
	m.ToolDenied.WithLabelValues(risk).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SessionStarted implements terminal.Observer.
func (m *Metrics) SessionStarted(kind string) {
	m.SessionsCreated.WithLabelValues(kind).Inc()
	m.SessionsActive.WithLabelValues(kind).Inc()
	m.addSessions(1)
}

// SessionExited implements terminal.Observer.
func (m *Metrics) SessionExited(kind, status string) {
	m.SessionExits.WithLabelValues(kind, status).Inc()
	m.SessionsActive.WithLabelValues(kind).Dec()
	m.addSessions(-1)
}

// SessionRemoved implements terminal.Observer.
func (m *Metrics) SessionRemoved(kind, reason string) {
	m.SessionsRemoved.WithLabelValues(kind, reason).Inc()
}

// ViewerAttached implements terminal.Observer.
func (m *Metrics) ViewerAttached() {
	m.ViewersActive.Inc()
	m.addViewers(1)
}

// ViewerDetached implements terminal.Observer.
func (m *Metrics) ViewerDetached(dropped bool) {
	m.ViewersActive.Dec()
	if dropped {
		m.ViewersDropped.Inc()
	}
	m.addViewers(-1)
}

func (m *Metrics) addSessions(delta int64) {
	m.mu.Lock()
	m.snapshot.ActiveSessions += delta
	m.mu.Unlock()
}

func (m *Metrics) addViewers(delta int64) {
	m.mu.Lock()
	m.snapshot.ActiveViewers += delta
	m.mu.Unlock()
}
