// Package telemetry holds the Prometheus collectors and tracing helpers
// shared by the service.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "idgate"

// Registry is the collector registry exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// LoginsTotal counts login attempts by mode (local, delegated) and outcome.
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Login attempts by mode and outcome.",
	}, []string{"mode", "outcome"})

	// TokenValidationFailures counts rejected bearer tokens by reason (expired, invalid).
	TokenValidationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validation_failures_total",
		Help:      "Rejected bearer tokens by reason.",
	}, []string{"reason"})

	// AuthorizationDenials counts requests rejected by a route policy.
	AuthorizationDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denials_total",
		Help:      "Requests rejected by a route policy.",
	}, []string{"policy", "status"})

	// RetriesTotal counts retries performed per retry policy.
	RetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retries_total",
		Help:      "Retries performed per retry policy.",
	}, []string{"policy"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LoginsTotal,
		TokenValidationFailures,
		AuthorizationDenials,
		RetriesTotal,
	)
}

// Handler serves the metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
