// Package metrics exposes Prometheus counters for the pricing server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "listprice"

// Metrics holds every collector of the server on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PriceResolutions *prometheus.CounterVec
	QuickEstimates   prometheus.Counter
	SetupOperations  *prometheus.CounterVec
	StorageSupport   *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	m.PriceResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_resolutions_total",
			Help:      "Listing price resolutions by outcome",
		},
		[]string{"status"},
	)

	m.QuickEstimates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quick_estimates_total",
			Help:      "Quick return estimates computed",
		},
	)

	m.SetupOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "setup_operations_total",
			Help:      "Saved setup operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	m.StorageSupport = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_support",
			Help:      "1 for the current setup storage state, 0 otherwise",
		},
		[]string{"state"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PriceResolutions,
		m.QuickEstimates,
		m.SetupOperations,
		m.StorageSupport,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPriceResolution counts a price computation by its status.
func (m *Metrics) RecordPriceResolution(status string) {
	m.PriceResolutions.WithLabelValues(status).Inc()
}

// RecordQuickEstimate counts a quick estimate.
func (m *Metrics) RecordQuickEstimate() {
	m.QuickEstimates.Inc()
}

// RecordSetupOperation counts a save, load, append, list or delete.
func (m *Metrics) RecordSetupOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.SetupOperations.WithLabelValues(operation, outcome).Inc()
}

// SetStorageSupport marks state as the current storage state.
func (m *Metrics) SetStorageSupport(state string, all ...string) {
	for _, s := range all {
		m.StorageSupport.WithLabelValues(s).Set(0)
	}
	m.StorageSupport.WithLabelValues(state).Set(1)
}
