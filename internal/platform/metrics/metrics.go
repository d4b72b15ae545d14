// Package metrics exposes Prometheus collectors for the HTTP edge and the
// session lifecycle.
package metrics

import (
	"strconv"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors registered by this service.
type Metrics struct {
	authOutcomes *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "therapy",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Session operations by operation and outcome reason.",
		}, []string{"operation", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "therapy",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "therapy",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.authOutcomes, m.httpRequests, m.httpLatency)
	return m
}

// ObserveAuth counts one session operation. A nil err is recorded as "ok".
func (m *Metrics) ObserveAuth(operation string, err error) {
	if m == nil {
		return
	}
	m.authOutcomes.WithLabelValues(operation, apperrors.Reason(err)).Inc()
}

// ObserveRequest records a finished HTTP request. route is the matched gin
// pattern, never the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(seconds)
}
