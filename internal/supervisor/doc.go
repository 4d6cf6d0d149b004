// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package supervisor runs the long-lived Trailatlas services under a suture v4
supervisor tree.

# Overview

	root ("trailatlas")
	├── events-layer
	│   └── event-bus                 watermill router (map export handler)
	├── messaging-layer
	│   ├── websocket-hub
	│   └── websocket-event-bridge    bus topics to websocket clients
	├── sync-layer
	│   └── sync-scheduler            periodic incremental sync
	└── api-layer
	    └── http-server

A crash in one layer is restarted with backoff without touching the
others, so a failing scheduler never takes the HTTP API down.

Supervisor events (start, stop, failure, backoff) are logged through
sutureslog on top of logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddEventService(bus)
	tree.AddMessagingService(hub)
	tree.AddMessagingService(bridge)
	tree.AddSyncService(services.NewSchedulerService(scheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
