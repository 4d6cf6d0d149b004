// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package websocket pushes sync status and lifecycle events to browser clients.

It uses gorilla/websocket with a hub-and-spoke layout:

	┌──────────┐
	│   Hub    │ ← Broadcasts to all clients
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	└──────────┴─────────┴─────────┘

Each client has two goroutines: readPump answers ping messages and tracks
pong deadlines, writePump drains the client's buffered send channel and
emits keepalive pings.

EventBridge subscribes to every event bus topic and rebroadcasts each
payload unchanged under a websocket message type:

	sync.started   → sync_started
	sync.progress  → sync_progress
	sync.completed → sync_completed
	sync.failed    → sync_failed
	data.reset     → data_reset

New connections receive a status message with the current sync snapshot
before any broadcast.

Slow clients whose buffer fills are disconnected rather than blocking the
hub. Hub and EventBridge both implement suture.Service.
*/
package websocket
