// Package metrics provides Prometheus metrics for the review service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrreviewer_reviews_total",
			Help: "Total number of review pipeline runs by outcome",
		},
		[]string{"provider", "status"},
	)
	ReviewDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mrreviewer_review_duration_seconds",
			Help:    "Review pipeline duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"provider"},
	)
	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrreviewer_tokens_used_total",
			Help: "Total tokens consumed by review prompts and completions",
		},
		[]string{"provider", "kind"},
	)
	WebhookRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrreviewer_webhook_requests_total",
			Help: "Total webhook deliveries by handling result",
		},
		[]string{"result"},
	)
	ReviewsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mrreviewer_reviews_in_flight",
			Help: "Number of review pipelines currently running",
		},
	)
)

// ObserveReview records the outcome counters for one pipeline run.
func ObserveReview(provider, status string, elapsed time.Duration) {
	ReviewsTotal.WithLabelValues(provider, status).Inc()
	ReviewDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveTokens records token consumption for one pipeline run.
func ObserveTokens(provider string, promptTokens, completionTokens int) {
	TokensUsed.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	TokensUsed.WithLabelValues(provider, "completion").Add(float64(completionTokens))
}
