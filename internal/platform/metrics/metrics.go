// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthline_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthline_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "healthline_http_in_flight_requests",
			Help: "Number of HTTP requests being served",
		},
	)

	ActionResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthline_action_results_total",
			Help: "Dispatcher results by tool, action and status",
		},
		[]string{"tool", "action", "status"},
	)

	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthline_llm_calls_total",
			Help: "Calls to the language model provider by outcome",
		},
		[]string{"model", "outcome"}, // "ok", "error"
	)

	LLMRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthline_llm_retries_total",
			Help: "Retried language model calls by HTTP status",
		},
		[]string{"model", "status"},
	)
)

func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func RecordActionResult(tool, action, status string) {
	ActionResultsTotal.WithLabelValues(tool, action, status).Inc()
}

func RecordLLMCall(model string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	LLMCallsTotal.WithLabelValues(model, outcome).Inc()
}

func RecordLLMRetry(model string, statusCode int) {
	LLMRetriesTotal.WithLabelValues(model, strconv.Itoa(statusCode)).Inc()
}
