package authgate

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors. The registry is
// owned here so the metrics endpoint only exposes gateway series plus the
// standard process/go collectors.
type Metrics struct {
	registry *prometheus.Registry

	LoginAttempts    *prometheus.CounterVec
	TokenValidations *prometheus.CounterVec
}

// NewMetrics builds and registers the gateway collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		TokenValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate",
			Name:      "token_validations_total",
			Help:      "Bearer token validations by result.",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.LoginAttempts,
		m.TokenValidations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
