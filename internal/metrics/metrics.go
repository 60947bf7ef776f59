// Package metrics exposes Prometheus instruments for provider calls and
// inbound search requests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	providerRequests *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	searchRequests   *prometheus.CounterVec
}

// New registers the instruments on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metasearch_provider_requests_total",
				Help: "Provider invocations by outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metasearch_provider_duration_seconds",
				Help:    "Time spent waiting on each provider",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),
		searchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metasearch_search_requests_total",
				Help: "Inbound search requests by HTTP status",
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(
		m.providerRequests,
		m.providerDuration,
		m.searchRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveProvider records one provider call. outcome is "ok" or an error kind.
func (m *Metrics) ObserveProvider(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
	m.providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveSearch records one inbound search request.
func (m *Metrics) ObserveSearch(status string) {
	if m == nil {
		return
	}
	m.searchRequests.WithLabelValues(status).Inc()
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
