// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed at /metrics by the API router:

	curl http://localhost:8080/metrics

# Available Metrics

Store Metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation, store (catalog, ledger)
  - duckdb_query_errors_total: Failed queries (counter)
  - reference_regions: Catalog size per classification (gauge)
  - reference_load_duration_seconds: Reference dataset load time (histogram)

API Metrics:
  - api_requests_total: Requests (counter). Labels: method, endpoint, status_code
  - api_request_duration_seconds: Latency (histogram). Labels: method, endpoint
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Rejected by rate limiting (counter)

Sync Metrics:
  - sync_duration_seconds: Run duration (histogram). Labels: mode (incremental, full, derived)
  - sync_runs_total: Runs (counter). Labels: mode, result (success, error, canceled)
  - sync_activities_fetched_total: Activity summaries fetched (counter)
  - sync_tracks_fetched_total: Track fetches (counter). Labels: outcome (track, no_track, failed)
  - sync_item_failures_total: Per-item failures (counter). Labels: stage
  - sync_last_success_timestamp: Unix time of the last successful run (gauge)

Attribution Metrics:
  - attribution_duration_seconds: Pass duration (histogram)
  - attribution_links_total: Links written (counter). Labels: classification
  - attribution_unmapped_local_units_total: Local units without hierarchy rows (counter)

Activity Source Metrics:
  - activity_source_requests_total: Requests (counter). Labels: endpoint, status_code
  - activity_source_request_duration_seconds: Latency (histogram). Labels: endpoint
  - activity_source_token_refreshes_total: OAuth refreshes (counter). Labels: result

Circuit Breaker Metrics:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge). Labels: name
  - circuit_breaker_requests_total: Labels: name, result (success, failure, rejected)
  - circuit_breaker_consecutive_failures: Labels: name
  - circuit_breaker_state_transitions_total: Labels: name, from_state, to_state

WebSocket and Event Metrics:
  - websocket_connections_active, websocket_messages_sent_total, websocket_errors_total
  - events_published_total: Labels: topic
  - map_exports_total: Labels: result

# Thread Safety

All collectors are safe for concurrent use.
*/
package metrics
