// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - store query performance (DuckDB)
// - API endpoint latency and throughput
// - sync runs, activity source requests and attribution
// - circuit breaker state
// - websocket connections and event delivery

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "store"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "store"},
	)

	// Reference Catalog Metrics
	ReferenceRegions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reference_regions",
			Help: "Number of regions in the reference catalog",
		},
		[]string{"classification"},
	)

	ReferenceLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reference_load_duration_seconds",
			Help:    "Duration of reference dataset loads",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Sync Metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"mode"},
	)

	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync runs by mode and result",
		},
		[]string{"mode", "result"},
	)

	SyncActivitiesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_activities_fetched_total",
			Help: "Total number of activity summaries fetched from the activity source",
		},
	)

	SyncTracksFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_tracks_fetched_total",
			Help: "Total number of track fetches by outcome",
		},
		[]string{"outcome"}, // "track", "no_track", "failed"
	)

	SyncItemFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_item_failures_total",
			Help: "Total number of per-item sync failures",
		},
		[]string{"stage"},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync",
		},
	)

	// Attribution Metrics
	AttributionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attribution_duration_seconds",
			Help:    "Duration of one attribution pass",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	AttributionLinks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attribution_links_total",
			Help: "Total number of activity to region links written",
		},
		[]string{"classification"},
	)

	AttributionUnmapped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attribution_unmapped_local_units_total",
			Help: "Local units intersected by a track but missing from the hierarchy mapping",
		},
	)

	// Activity Source Metrics
	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_source_requests_total",
			Help: "Total number of activity source API requests",
		},
		[]string{"endpoint", "status_code"},
	)

	SourceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "activity_source_request_duration_seconds",
			Help:    "Duration of activity source API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	SourceTokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_source_token_refreshes_total",
			Help: "Total number of OAuth token refreshes",
		},
		[]string{"result"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of internal events published",
		},
		[]string{"topic"},
	)

	MapExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_exports_total",
			Help: "Total number of GeoJSON map exports by result",
		},
		[]string{"result"},
	)

	MapCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_cache_lookups_total",
			Help: "Live map cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a store query metric.
func RecordDBQuery(operation, store string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, store).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, store).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSyncOperation records one finished sync run.
func RecordSyncOperation(mode string, duration time.Duration, err error) {
	SyncDuration.WithLabelValues(mode).Observe(duration.Seconds())
	SyncRuns.WithLabelValues(mode, syncResult(err)).Inc()
	if err == nil {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

func syncResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// RecordTrackFetch records the outcome of one track request.
func RecordTrackFetch(outcome string) {
	SyncTracksFetched.WithLabelValues(outcome).Inc()
}

// RecordItemFailure records a per-item failure at stage.
func RecordItemFailure(stage string) {
	SyncItemFailures.WithLabelValues(stage).Inc()
}

// RecordAttribution records one attribution pass and its link counts keyed
// by classification.
func RecordAttribution(duration time.Duration, links map[string]int, unmapped int) {
	AttributionDuration.Observe(duration.Seconds())
	for class, n := range links {
		AttributionLinks.WithLabelValues(class).Add(float64(n))
	}
	if unmapped > 0 {
		AttributionUnmapped.Add(float64(unmapped))
	}
}

// RecordSourceRequest records one activity source API request.
func RecordSourceRequest(endpoint string, statusCode int, duration time.Duration) {
	SourceRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	SourceRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordTokenRefresh records an OAuth refresh attempt.
func RecordTokenRefresh(success bool) {
	if success {
		SourceTokenRefreshes.WithLabelValues("success").Inc()
		return
	}
	SourceTokenRefreshes.WithLabelValues("failure").Inc()
}

// SetReferenceRegions updates the catalog size gauges.
func SetReferenceRegions(counts map[string]int) {
	for class, n := range counts {
		ReferenceRegions.WithLabelValues(class).Set(float64(n))
	}
}
