package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "r2bridge"

// Metrics provides a self-contained Prometheus registry with outbound (R2) and
// inbound (gateway) request collectors.
type Metrics struct {
	reg *prometheus.Registry

	outInflight prometheus.Gauge
	outRequests *prometheus.CounterVec
	outLatency  *prometheus.HistogramVec

	inRequests *prometheus.CounterVec
	inLatency  *prometheus.HistogramVec
}

// New creates a Metrics instance with a fresh registry and registers collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		outInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight requests to R2.",
		}),
		outRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Requests sent to R2, partitioned by status code and method.",
		}, []string{"code", "method"}),
		outLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of requests sent to R2.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
		inRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Gateway requests, partitioned by status code, method and route.",
		}, []string{"code", "method", "route"}),
		inLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of gateway requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method", "route"}),
	}

	reg.MustRegister(m.outInflight, m.outRequests, m.outLatency, m.inRequests, m.inLatency)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// InstrumentTransport wraps next so every outbound call is counted and timed.
func (m *Metrics) InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(m.outInflight,
		promhttp.InstrumentRoundTripperCounter(m.outRequests,
			promhttp.InstrumentRoundTripperDuration(m.outLatency, next),
		),
	)
}

// Gin records inbound gateway requests by matched route.
func (m *Metrics) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(c.Writer.Status())
		m.inRequests.WithLabelValues(code, c.Request.Method, route).Inc()
		m.inLatency.WithLabelValues(code, c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
