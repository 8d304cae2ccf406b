// Package metrics holds the Prometheus metrics of the endpoint pipeline:
// unit loading, route registration and request latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons recorded by EndpointsSkipped.
const (
	ReasonDuplicate   = "duplicate"
	ReasonNoName      = "no_name"
	ReasonNoHandle    = "no_handle"
	ReasonNotCallable = "not_callable"
	ReasonRejected    = "rejected"
	ReasonScope       = "scope"
)

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	UnitsLoaded         *prometheus.CounterVec
	UnitLoadFailures    *prometheus.CounterVec
	EndpointsRegistered prometheus.Gauge
	EndpointsSkipped    *prometheus.CounterVec
	EndpointLatency     *prometheus.HistogramVec
	EndpointErrors      *prometheus.CounterVec
	AuthFailures        prometheus.Counter
}

// New registers the metrics on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UnitsLoaded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nebula_units_loaded_total",
			Help: "Endpoint-bearing units loaded, by location",
		}, []string{"location"}),
		UnitLoadFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nebula_unit_load_failures_total",
			Help: "Units that failed to load, by location",
		}, []string{"location"}),
		EndpointsRegistered: f.NewGauge(prometheus.GaugeOpts{
			Name: "nebula_endpoints_registered",
			Help: "Number of API endpoints installed on the router",
		}),
		EndpointsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nebula_endpoints_skipped_total",
			Help: "Discovered endpoints that were not installed, by reason",
		}, []string{"reason"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nebula_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		EndpointErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nebula_endpoint_errors_total",
			Help: "Endpoint invocations that returned an error, by endpoint and error code",
		}, []string{"endpoint", "code"}),
		AuthFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "nebula_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
	}
}

// IncUnitLoaded counts a unit loaded from location.
func (m *Metrics) IncUnitLoaded(location string) {
	if m == nil {
		return
	}
	m.UnitsLoaded.WithLabelValues(location).Inc()
}

// IncUnitLoadFailure counts a unit that failed to load from location.
func (m *Metrics) IncUnitLoadFailure(location string) {
	if m == nil {
		return
	}
	m.UnitLoadFailures.WithLabelValues(location).Inc()
}

// SetEndpointsRegistered sets the number of installed endpoints.
func (m *Metrics) SetEndpointsRegistered(n int) {
	if m == nil {
		return
	}
	m.EndpointsRegistered.Set(float64(n))
}

// IncEndpointSkipped counts a descriptor the registrar skipped.
func (m *Metrics) IncEndpointSkipped(reason string) {
	if m == nil {
		return
	}
	m.EndpointsSkipped.WithLabelValues(reason).Inc()
}

// ObserveEndpointLatency records how long an endpoint call took.
func (m *Metrics) ObserveEndpointLatency(endpoint string, d time.Duration) {
	if m == nil {
		return
	}
	m.EndpointLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncEndpointError counts a failed endpoint call by error code.
func (m *Metrics) IncEndpointError(endpoint, code string) {
	if m == nil {
		return
	}
	m.EndpointErrors.WithLabelValues(endpoint, code).Inc()
}

// IncAuthFailure counts a rejected bearer token.
func (m *Metrics) IncAuthFailure() {
	if m == nil {
		return
	}
	m.AuthFailures.Inc()
}
