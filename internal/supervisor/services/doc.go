// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package services adapts Trailatlas components to suture.Service.

  - HTTPServerService runs an *http.Server and shuts it down gracefully
    when the supervisor context ends.
  - SchedulerService drives the periodic sync scheduler's Start/Stop
    lifecycle from Serve.

The websocket hub, the websocket event bridge and the event bus
implement Serve(ctx) themselves and are added to the tree directly.

Usage:

	server := &http.Server{Addr: ":8080", Handler: router.SetupChi()}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddSyncService(services.NewSchedulerService(scheduler))
*/
package services
