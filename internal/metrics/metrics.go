// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Discovery outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeSignup        = "signup_required"
	OutcomeTokenError    = "token_exchange_error"
	OutcomeIdentityError = "identity_error"
	OutcomeError         = "error"
)

var (
	// HTTPRequests counts handled requests by method, route and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_connector_http_requests_total",
		Help: "HTTP requests handled, by method, route and status.",
	}, []string{"method", "route", "code"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "graph_connector_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// DiscoveryRuns counts discovery runs by outcome.
	DiscoveryRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_connector_discovery_runs_total",
		Help: "Discovery runs by outcome.",
	}, []string{"outcome"})

	// PageUpserts counts per-page persistence attempts by result (ok / failed).
	PageUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_connector_page_upserts_total",
		Help: "Page upserts during discovery, by result.",
	}, []string{"result"})
)
