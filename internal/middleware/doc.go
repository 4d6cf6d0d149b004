// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package middleware provides HTTP middleware shared by the API router.

Key Components:

  - PrometheusMetrics: request counters, latency and in-flight gauge,
    labelled by the chi route pattern rather than the raw path so that
    region codes and map levels do not explode label cardinality
  - Compression: gzip for JSON and GeoJSON bodies, skipped for
    websocket upgrades and clients without Accept-Encoding: gzip

Both are written as func(http.HandlerFunc) http.HandlerFunc and adapted
to chi by the api package.

Thread Safety:

Compression draws gzip writers from a sync.Pool. Metrics use the
Prometheus client's atomic collectors.

See Also:

  - internal/api: router wiring
  - internal/metrics: metric definitions
*/
package middleware
