// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package api serves the Trailatlas HTTP API on a chi router.

Routes:

	GET  /api/status            sync status, activity stats, catalog readiness
	POST /api/update            incremental sync
	POST /api/reset             reset all user data, then full sync
	POST /api/reset-activities  reset activities, then full sync
	POST /api/reset-derived     clear links, then re-attribute stored tracks
	GET  /api/regions           visited regions (?level=lau|0..3&country=XX)
	GET  /api/countries         visited NUTS0 countries
	GET  /api/totals            visited and total counts per classification
	GET  /api/map/{level}       GeoJSON of visited regions
	GET  /api/ws                websocket status and sync events
	GET  /oauth/authorize       redirect to Strava authorization
	GET  /oauth/callback        token exchange
	GET  /health/live, /health/ready
	GET  /metrics

Sync and reset endpoints start work in the background and answer 202;
a run already in progress yields 409 with code CONFLICT. JSON endpoints
use the APIResponse envelope. Map endpoints return bare GeoJSON.
*/
package api
