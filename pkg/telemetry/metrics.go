// Package telemetry provides logging and metrics for shopctl.
package telemetry

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopsphere/shopctl/pkg/api"
)

// idSegmentRE matches path segments that are entity ids, so request paths
// collapse into a bounded set of label values.
var idSegmentRE = regexp.MustCompile(`/[0-9]+/|/[0-9a-fA-F-]{32,36}/`)

// Metrics collects client-side counters for the adapter, the resource stores
// and the mutation facade.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loads           *prometheus.CounterVec
	mutations       *prometheus.CounterVec
}

// NewMetrics creates a collector registered on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopctl",
			Name:      "api_requests_total",
			Help:      "Backend requests by method, path and status.",
		}, []string{"method", "path", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopctl",
			Name:      "api_request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "path"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopctl",
			Name:      "store_loads_total",
			Help:      "Resource store loads by resource and outcome.",
		}, []string{"resource", "outcome"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopctl",
			Name:      "mutations_total",
			Help:      "Admin actions by entity, action and outcome.",
		}, []string{"entity", "action", "outcome"}),
	}
	m.registry.MustRegister(m.requests, m.requestDuration, m.loads, m.mutations)
	return m
}

var _ api.Observer = (*Metrics)(nil)

// ObserveRequest implements api.Observer.
func (m *Metrics) ObserveRequest(method, path string, status int, kind api.ErrorKind, elapsed time.Duration) {
	code := strconv.Itoa(status)
	if status == 0 {
		code = string(kind)
	}
	p := NormalizePath(path)
	m.requests.WithLabelValues(method, p, code).Inc()
	m.requestDuration.WithLabelValues(method, p).Observe(elapsed.Seconds())
}

// ObserveLoad counts one resource store load. outcome is "ok", "error" or
// "superseded".
func (m *Metrics) ObserveLoad(resource, outcome string) {
	m.loads.WithLabelValues(resource, outcome).Inc()
}

// ObserveMutation counts one executed admin action.
func (m *Metrics) ObserveMutation(entity, action, outcome string) {
	m.mutations.WithLabelValues(entity, action, outcome).Inc()
}

// Handler serves the metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// NormalizePath replaces id segments with ":id".
func NormalizePath(path string) string {
	// Apply twice: adjacent id segments share a slash.
	p := idSegmentRE.ReplaceAllString(path, "/:id/")
	return idSegmentRE.ReplaceAllString(p, "/:id/")
}
