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

// Inference outcomes used as the status label
const (
	StatusOK                  = "ok"
	StatusUnknownURI          = "unknown_uri"
	StatusInsufficientBalance = "insufficient_balance"
	StatusError               = "error"
)

// Metrics holds all Prometheus metrics of one bridge server. Each instance
// owns its registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Store metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec

	// Inference metrics
	Inferences  *prometheus.CounterVec
	TokensSpent prometheus.Counter
	Refunds     prometheus.Counter

	// Registry metrics
	RegistryModels prometheus.Gauge

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON status endpoint
type Snapshot struct {
	TotalRequests   int64   `json:"total_requests"`
	TotalErrors     int64   `json:"total_errors"`
	TotalInferences int64   `json:"total_inferences"`
	TokensSpent     int64   `json:"tokens_spent"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	UptimeSeconds   float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a new metrics collector with its own registry
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

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai4_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai4_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai4_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai4_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Store metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai4_store_calls_total",
				Help: "Total number of registry and ledger operations",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai4_store_duration_seconds",
				Help:    "Registry and ledger operation duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"service", "method"},
		),

		// Inference metrics
		Inferences: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai4_inferences_total",
				Help: "Total number of metered inference requests by outcome",
			},
			[]string{"status"},
		),
		TokensSpent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ai4_mat_spent_total",
				Help: "Total MAT burned to pay for inference",
			},
		),
		Refunds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ai4_mat_refunded_total",
				Help: "Total MAT minted back after failed inference",
			},
		),

		// Registry metrics
		RegistryModels: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ai4_registry_models",
				Help: "Number of models in the registry",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ai4_uptime_seconds",
			Help: "Bridge server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format for this collector
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
	m.snapshot.totalDuration += duration.Seconds()
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a store operation
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordInference records the outcome of a metered inference and the MAT it cost
func (m *Metrics) RecordInference(status string, spent int64) {
	m.Inferences.WithLabelValues(status).Inc()
	if spent > 0 {
		m.TokensSpent.Add(float64(spent))
	}

	m.mu.Lock()
	m.snapshot.TotalInferences++
	m.snapshot.TokensSpent += spent
	m.mu.Unlock()
}

// RecordRefund records MAT returned to a payer
func (m *Metrics) RecordRefund(amount int64) {
	if amount > 0 {
		m.Refunds.Add(float64(amount))
	}
}

// SetRegistryModels sets the number of models in the registry
func (m *Metrics) SetRegistryModels(count int) {
	m.RegistryModels.Set(float64(count))
}

// Snapshot returns the current values for the JSON status endpoint
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgLatencyMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
