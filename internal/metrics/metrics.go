package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight  prometheus.Gauge
	reqTotal  *prometheus.CounterVec
	reqDur    *prometheus.HistogramVec
	buildInfo *prometheus.GaugeVec

	readyFailTotal *prometheus.CounterVec
	panicTotal     prometheus.Counter
}

// New returns a fresh registry + standard collectors + HTTP metrics.
// Safe labels only (method, route, code) to avoid path cardinality explosions.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_information",
			Help: "Build information (label carries identity, value is always 1)",
		}, []string{"version", "hash"}),
		readyFailTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readiness_check_failures_total",
			Help: "Total failed readiness evaluations by check name",
		}, []string{"name"}),
		panicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered HTTP handler panics",
		}),
	}

	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.buildInfo,
		m.readyFailTotal,
		m.panicTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler { return m.handler }

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// SetBuildInfo records the version and build hash the binary was built from.
func (m *Metrics) SetBuildInfo(version, hash string) {
	m.buildInfo.Reset()
	m.buildInfo.WithLabelValues(version, hash).Set(1)
}

func (m *Metrics) ObserveReadinessFailure(name string) {
	m.readyFailTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) ObservePanic() { m.panicTotal.Inc() }
