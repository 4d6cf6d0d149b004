// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package events carries sync lifecycle events between components.

It is an in-process Watermill bus built on the gochannel Pub/Sub. The sync
orchestrator publishes, the websocket hub streams every topic to browsers and
the map exporter handles sync.completed through a Watermill router with panic
recovery and retry middleware.

Topics:
  - sync.started, sync.progress, sync.completed, sync.failed: SyncEvent
  - data.reset: ResetEvent

Delivery is at-most-once per subscriber: messages published while nobody is
subscribed are dropped, and nothing survives a restart.
*/
package events
