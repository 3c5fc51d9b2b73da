// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"route"},
	)

	// Response cache
	ResponseCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total number of GET responses served from Redis",
		},
	)

	ResponseCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total number of GET responses that had to be rendered",
		},
	)

	ResponseCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_evictions_total",
			Help: "Total number of cached responses dropped after a conference sync",
		},
	)

	// Import
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conference_imports_total",
			Help: "Total number of conference imports by outcome",
		},
		[]string{"outcome"}, // "success", "invalid", "error"
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conference_import_duration_seconds",
			Help:    "Duration of a conference import transaction in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ImportedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conference_imported_events_total",
			Help: "Total number of events written by imports",
		},
	)

	FeedFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetch_errors_total",
			Help: "Total number of failed feed downloads",
		},
		[]string{"reason"}, // "http", "status", "too_large", "rejected"
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Messaging
	SyncMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_messages_consumed_total",
			Help: "Total number of conference.synced messages handled",
		},
		[]string{"result"}, // "ok", "malformed"
	)
)

// RecordAPIRequest records the outcome and latency of one request.
func RecordAPIRequest(method, route string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordImport records an import outcome.
func RecordImport(outcome string, d time.Duration, events int) {
	ImportsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		ImportDuration.Observe(d.Seconds())
		ImportedEvents.Add(float64(events))
	}
}
