// Package observability exposes Prometheus metrics for the dashboard service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the service Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	recordsTotal    *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	supersededTotal *prometheus.CounterVec
}

// NewMetrics initialises the registry and collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opsdash_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opsdash_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opsdash_report_records_total",
		Help: "Raw report records seen by the normalizer, by outcome.",
	}, []string{"kind", "outcome"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opsdash_upstream_cache_total",
		Help: "Upstream payload cache lookups by result.",
	}, []string{"result"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opsdash_upstream_requests_total",
		Help: "Upstream fetches by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opsdash_upstream_request_duration_seconds",
		Help:    "Upstream fetch duration per endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	superseded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opsdash_superseded_responses_total",
		Help: "Responses discarded because a newer request for the screen started.",
	}, []string{"kind"})
	registry.MustRegister(requests, duration, records, cache, upstream, latency, superseded)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		recordsTotal:    records,
		cacheTotal:      cache,
		upstreamTotal:   upstream,
		upstreamLatency: latency,
		supersededTotal: superseded,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// RecordNormalized counts kept and dropped records for a normalization pass.
func (m *Metrics) RecordNormalized(kind string, kept, dropped int) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(kind, "kept").Add(float64(kept))
	m.recordsTotal.WithLabelValues(kind, "dropped").Add(float64(dropped))
}

// RecordCache counts a payload cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}

// RecordUpstream observes one upstream fetch.
func (m *Metrics) RecordUpstream(endpoint string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.upstreamTotal.WithLabelValues(endpoint, outcome).Inc()
	m.upstreamLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordSuperseded counts a discarded stale response.
func (m *Metrics) RecordSuperseded(kind string) {
	if m == nil {
		return
	}
	m.supersededTotal.WithLabelValues(kind).Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
