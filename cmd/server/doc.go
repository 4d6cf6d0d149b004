// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package main is the entry point for the Trailatlas server.

Trailatlas imports Strava activities, attributes their GPS tracks to the
European local administrative units and NUTS regions they cross, and serves
the visited regions, per-country totals and GeoJSON maps over HTTP.

# Application Architecture

	RootSupervisor ("trailatlas")
	├── EventsSupervisor ("events-layer")
	│   └── Event bus (watermill router, map export handler)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket Hub
	│   └── Event bridge (bus topics to websocket clients)
	├── SyncSupervisor ("sync-layer")
	│   └── Sync scheduler
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml, .env and environment
 2. Logging: zerolog with JSON/console output modes
 3. Stores: reference catalog and user ledger (DuckDB)
 4. Region catalog: parsed from the GISCO datasets on first start
 5. Credentials and the Strava client
 6. Event bus, sync orchestrator and scheduler
 7. WebSocket hub and HTTP server

A reference dataset that is missing or lacks required columns stops the
server before it starts listening.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor tree stops the
HTTP server (10s drain), the scheduler and the bus; running sync jobs are
awaited before the stores close.

# Example Usage

	export STRAVA_CLIENT_ID=12345
	export STRAVA_CLIENT_SECRET=secret
	export STRAVA_REDIRECT_URL=http://localhost:5000/oauth/callback
	./trailatlas-server

Then open http://localhost:5000/oauth/authorize once and trigger a sync with
POST /api/update.
*/
package main
