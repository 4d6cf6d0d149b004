// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package sync fetches activities and their GPS tracks from the activity
source, stores them in the user ledger and attributes them to regions.

A run has three stages:

 1. List activities newer than the latest stored start date (or all of them
    for a full sync) and store each page as it arrives. A failed page ends
    listing; stored pages are kept.
 2. Download the track of every activity whose track status is
    not_fetched. A confirmed absence of GPS data is recorded as
    fetched_no_track and never requested again; transient failures leave
    the activity not_fetched for the next run.
 3. Attribute stored tracks in batches, write links per activity and
    recompute first visited dates.

In pipeline mode stages 1 and 2 overlap: pages feed a bounded queue drained
by a single track downloader, and a single writer goroutine applies every
store write. The final ledger state is the same as in sequential mode.

Only one run executes at a time. Sync and Reset block; TriggerSync and
TriggerReset start a background run and return ErrSyncInProgress when the
orchestrator is busy. Progress is exposed through Status and published as
events on the event bus.

Scheduler wraps the orchestrator in a Start/Stop loop for periodic
incremental syncs under supervision.
*/
package sync
