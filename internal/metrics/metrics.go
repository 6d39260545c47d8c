package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exported by the API.
type Metrics struct {
	Registry      *prometheus.Registry
	Registrations *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	Requests      *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "greentea_registrations_total",
			Help: "Account registration attempts by result.",
		}, []string{"result"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "greentea_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		Requests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "greentea_api_request_duration_seconds",
			Help:    "API request latency by action and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action", "code"}),
	}
}

// ObserveRegistration counts a registration outcome; result is "success" or an error kind.
func (m *Metrics) ObserveRegistration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

// ObserveLogin counts a login outcome.
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}
