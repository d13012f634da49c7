package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderCallsTotal counts provider-group calls by outcome.
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyroute_provider_calls_total",
			Help: "Total number of upstream provider calls",
		},
		[]string{"group", "status"},
	)

	// ProviderCallDuration tracks upstream call latency per group.
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyroute_provider_call_duration_seconds",
			Help:    "Duration of upstream provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"group"},
	)

	// ForecastQueriesTotal counts forecast queries by outcome.
	ForecastQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyroute_forecast_queries_total",
			Help: "Total number of forecast queries processed",
		},
		[]string{"status"},
	)

	// ForecastQueryDuration tracks end-to-end query latency.
	ForecastQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skyroute_forecast_query_duration_seconds",
			Help:    "End-to-end duration of forecast queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordProviderCall records one upstream call.
func RecordProviderCall(group string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	ProviderCallsTotal.WithLabelValues(group, status).Inc()
	ProviderCallDuration.WithLabelValues(group).Observe(duration.Seconds())
}

// RecordQuery records one completed (or failed) forecast query.
func RecordQuery(duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	ForecastQueriesTotal.WithLabelValues(status).Inc()
	ForecastQueryDuration.Observe(duration.Seconds())
}
