package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stubd"

// Metrics holds the server's collectors and the registry they belong to.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	outcomesTotal      *prometheus.CounterVec
	hitsTotal          *prometheus.CounterVec
	recordingsTotal    *prometheus.CounterVec
	proxyRequestsTotal *prometheus.CounterVec
	adminRequestsTotal *prometheus.CounterVec
	stubsConfigured    prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total requests served by the stubs portal.",
			},
			[]string{"method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of stubs portal requests in seconds, including latency injection.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "match_outcomes_total",
				Help:      "Resolved request outcomes.",
			},
			[]string{"outcome"},
		),
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stub_hits_total",
				Help:      "Matches per stub resource id.",
			},
			[]string{"resource_id"},
		),
		recordingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recordings_total",
				Help:      "Attempts to record an upstream response.",
			},
			[]string{"result"},
		),
		proxyRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "proxy_requests_total",
				Help:      "Unmatched requests forwarded to a proxy config.",
			},
			[]string{"proxy", "result"},
		),
		adminRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_requests_total",
				Help:      "Total requests served by the admin portal.",
			},
			[]string{"method", "status"},
		),
		stubsConfigured: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stubs_configured",
				Help:      "Number of stubs currently loaded.",
			},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.outcomesTotal,
		m.hitsTotal,
		m.recordingsTotal,
		m.proxyRequestsTotal,
		m.adminRequestsTotal,
		m.stubsConfigured,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records a stubs portal request.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Outcome counts a resolved outcome by name.
func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(outcome).Inc()
}

// Hit counts a match on the stub at resourceID.
func (m *Metrics) Hit(resourceID int) {
	if m == nil {
		return
	}
	m.hitsTotal.WithLabelValues(strconv.Itoa(resourceID)).Inc()
}

// Recording counts a recording attempt. result is "ok" or "error".
func (m *Metrics) Recording(result string) {
	if m == nil {
		return
	}
	m.recordingsTotal.WithLabelValues(result).Inc()
}

// Proxy counts a proxied request.
func (m *Metrics) Proxy(uuid, result string) {
	if m == nil {
		return
	}
	m.proxyRequestsTotal.WithLabelValues(uuid, result).Inc()
}

// AdminRequest counts an admin portal request.
func (m *Metrics) AdminRequest(method string, status int) {
	if m == nil {
		return
	}
	m.adminRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// SetStubs sets the number of loaded stubs.
func (m *Metrics) SetStubs(n int) {
	if m == nil {
		return
	}
	m.stubsConfigured.Set(float64(n))
}
