// Package metrics はPrometheusメトリクスを定義します。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timenest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timenest_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// OAuthLoginsTotal はログインフローの結果ごとの件数です。
	OAuthLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timenest_oauth_logins_total",
			Help: "Total number of Google OAuth callback outcomes",
		},
		[]string{"outcome"}, // success, invalid_state, provider_error, missing_email, ...
	)

	OAuthProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timenest_oauth_provider_duration_seconds",
			Help:    "Duration of calls to the OAuth provider in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"call", "result"},
	)

	// OAuthBreakerState は0=closed, 1=half-open, 2=open です。
	OAuthBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timenest_oauth_breaker_state",
			Help: "State of the OAuth provider circuit breaker",
		},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timenest_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

// RecordHTTPRequest はHTTPリクエストのメトリクスを記録します。
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordProviderCall はOAuthプロバイダ呼び出しの所要時間を記録します。
func RecordProviderCall(call string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OAuthProviderDuration.WithLabelValues(call, result).Observe(duration.Seconds())
}

// RecordLogin はログインフローの結果を記録します。
func RecordLogin(outcome string) {
	OAuthLoginsTotal.WithLabelValues(outcome).Inc()
}
