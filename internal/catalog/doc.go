// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package catalog owns the region reference store: local administrative
// units, the four NUTS levels, and the LAU to NUTS hierarchy mapping.
//
// The catalog lives in its own DuckDB file, separate from the user ledger.
// It is written once by Load (or ForceReload) from a Source and is read-only
// afterwards. Warm rebuilds the in-memory views (regions by id, mapping, and
// the LocalUnit spatial index) from the persisted rows so later startups skip
// the multi-minute download and parse.
//
// Any missing or malformed dataset is reported as ErrReferenceData; the
// server refuses to start in that case.
package catalog
