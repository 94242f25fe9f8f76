package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the API client.
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	RefreshAttempts      *prometheus.CounterVec
	RefreshWaiters       prometheus.Counter
	SessionInvalidations prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "medistore",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of API requests sent",
			},
			[]string{"method", "outcome"}, // outcome=2xx/4xx/5xx/network
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "medistore",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Time from issuing a request to receiving its response",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RefreshAttempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "medistore",
				Subsystem: "api",
				Name:      "refresh_attempts_total",
				Help:      "Credential refresh attempts started after a 401",
			},
			[]string{"result"}, // result=success/failure
		),
		RefreshWaiters: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "medistore",
				Subsystem: "api",
				Name:      "refresh_waiters_total",
				Help:      "Requests that waited on another request's refresh attempt",
			},
		),
		SessionInvalidations: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "medistore",
				Subsystem: "api",
				Name:      "session_invalidations_total",
				Help:      "Sessions cleared because a 401 could not be recovered",
			},
		),
	}
}

func (m *Metrics) observeRequest(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) observeRefresh(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.RefreshAttempts.WithLabelValues(result).Inc()
	if !ok {
		m.SessionInvalidations.Inc()
	}
}

func (m *Metrics) observeWaiter() {
	if m == nil {
		return
	}
	m.RefreshWaiters.Inc()
}
