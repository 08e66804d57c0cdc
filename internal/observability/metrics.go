package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	reviewsTotal        *prometheus.CounterVec
	reviewStepsDegraded *prometheus.CounterVec
	reviewDuration      prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asset_review_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asset_review_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asset_review_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		reviewsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asset_review_reviews_total",
			Help: "Completed reviews by asset type and outcome.",
		}, []string{"asset_type", "result", "ghost_mode"})

		reviewStepsDegraded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asset_review_review_steps_degraded_total",
			Help: "Best-effort review steps that failed without aborting the review.",
		}, []string{"step"})

		reviewDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "asset_review_review_duration_seconds",
			Help:    "End-to-end duration of the review pipeline.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			reviewsTotal,
			reviewStepsDegraded,
			reviewDuration,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// Reviews exposes the completed review counter.
func Reviews() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewsTotal
}

// ReviewStepsDegraded exposes the degraded step counter.
func ReviewStepsDegraded() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewStepsDegraded
}

// ReviewDuration exposes the pipeline duration histogram.
func ReviewDuration() prometheus.Histogram {
	RegisterMetrics()
	return reviewDuration
}
