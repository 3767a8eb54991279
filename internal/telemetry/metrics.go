package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "podsearch"

// Metrics holds the service's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver so callers can leave metrics off.
type Metrics struct {
	registry *prometheus.Registry

	searchRequests  *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	searchFallbacks *prometheus.CounterVec
	itemsSkipped    *prometheus.CounterVec
	rankingsServed  *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	circuitState    *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors, including the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests by target, executed mode and envelope status.",
		}, []string{"target", "mode", "status"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search latency by target and executed mode.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"target", "mode"}),
		searchFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_fallback_total",
			Help:      "Vector or hybrid requests served lexically because embeddings were unavailable.",
		}, []string{"requested"}),
		itemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_items_skipped_total",
			Help:      "Index hits dropped because they could not be parsed.",
		}, []string{"target"}),
		rankingsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rankings_served_total",
			Help:      "Rankings responses by source: cache, fetch, stale or empty.",
		}, []string{"source"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Failed calls to upstream services.",
		}, []string{"upstream"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"name"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.searchRequests,
		m.searchDuration,
		m.searchFallbacks,
		m.itemsSkipped,
		m.rankingsServed,
		m.upstreamErrors,
		m.circuitState,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveSearch(target, mode, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.searchRequests.WithLabelValues(target, mode, status).Inc()
	m.searchDuration.WithLabelValues(target, mode).Observe(d.Seconds())
}

func (m *Metrics) SearchFallback(requested string) {
	if m == nil {
		return
	}
	m.searchFallbacks.WithLabelValues(requested).Inc()
}

func (m *Metrics) ItemsSkipped(target string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsSkipped.WithLabelValues(target).Add(float64(n))
}

func (m *Metrics) RankingsServed(source string) {
	if m == nil {
		return
	}
	m.rankingsServed.WithLabelValues(source).Inc()
}

func (m *Metrics) UpstreamError(upstream string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(upstream).Inc()
}

// CircuitState records a breaker transition. state follows the numbering
// in the metric help text.
func (m *Metrics) CircuitState(name string, state int) {
	if m == nil {
		return
	}
	m.circuitState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
