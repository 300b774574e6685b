package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// otherViewSource is the label for view sources outside the known set
const otherViewSource = "other"

// DefaultViewSources are the view sources counted under their own label
var DefaultViewSources = []string{"website", "public-site"}

// Metrics holds the application's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	views         *prometheus.CounterVec
	keySetFetches *prometheus.CounterVec

	viewSources map[string]struct{}
}

// NewMetrics creates and registers the application collectors under namespace
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry:    prometheus.NewRegistry(),
		viewSources: make(map[string]struct{}, len(DefaultViewSources)),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		views: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_views_total",
			Help:      "Page views reported by the website, by source and publish result.",
		}, []string{"source", "result"}),
		keySetFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyset_fetch_total",
			Help:      "JWKS fetches, by result.",
		}, []string{"result"}),
	}

	for _, source := range DefaultViewSources {
		m.viewSources[source] = struct{}{}
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.views,
		m.keySetFetches,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one handled HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordView counts one page view and whether it reached the metrics backend.
// Sources outside DefaultViewSources share the "other" label.
func (m *Metrics) RecordView(source string, published bool) {
	result := "published"
	if !published {
		result = "dropped"
	}
	if _, ok := m.viewSources[source]; !ok {
		source = otherViewSource
	}
	m.views.WithLabelValues(source, result).Inc()
}

// RecordKeySetFetch counts one JWKS fetch. Its signature matches cognito.KeySetCacheConfig.OnFetch.
func (m *Metrics) RecordKeySetFetch(issuer string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.keySetFetches.WithLabelValues(result).Inc()
}
