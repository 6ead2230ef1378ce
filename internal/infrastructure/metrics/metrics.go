package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Inbound HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Inbound HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siigo_upstream_requests_total",
		Help: "Requests sent to the Siigo API by method, collection and status",
	}, []string{"method", "collection", "status"})

	UpstreamRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siigo_upstream_retries_total",
		Help: "Siigo API requests reissued by the retry policy",
	}, []string{"reason"})

	TokenAcquisitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siigo_token_acquisitions_total",
		Help: "Calls to the Siigo auth endpoint by result",
	}, []string{"result"})
)

// Retry reasons.
const (
	RetryUnauthorized = "unauthorized"
	RetryRateLimited  = "rate_limited"
	RetryAuthPause    = "auth_rate_limited"
)

// Token acquisition results.
const (
	TokenSuccess     = "success"
	TokenRateLimited = "rate_limited"
	TokenFailure     = "failure"
)

// Register adds every collector to reg (the default registerer when nil).
// Collectors already registered are skipped.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRetriesTotal,
		TokenAcquisitionsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

// Handler serves the metrics gathered by g (the default gatherer when nil).
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
