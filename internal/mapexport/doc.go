// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package mapexport renders visited regions as GeoJSON FeatureCollections,
// one file per classification, after every completed sync. The export runs
// detached from the sync on the event bus; a failed export is logged and
// counted but never touches ledger state.
package mapexport
