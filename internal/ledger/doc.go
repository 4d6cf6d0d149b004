// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package ledger is the user data store: activities and their tracks, the
// five activity-to-region link tables, the derived first-visited dates,
// settings, and sync metadata.
//
// # Stores
//
// The ledger owns its own DuckDB file. Region names, countries and catalog
// sizes come from the reference catalog through the RegionDirectory
// interface; the join happens in Go at the query boundary instead of through
// an attached database.
//
// # Invariants
//
//   - Link inserts are idempotent.
//   - ApplyLinks writes every classification of one activity in a single
//     transaction, so an activity is either fully linked or not at all.
//   - A region with no links has no first_visited row and never appears in
//     VisitedRegions.
//   - track_status moves from not_fetched to fetched_with_track or
//     fetched_no_track exactly once; only ResetAll and ResetActivities undo it.
//   - No reset touches the reference catalog.
package ledger
