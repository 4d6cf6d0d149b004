// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package testinfra provides shared test infrastructure: a small synthetic
// region catalog, temporary DuckDB stores, and a fake Strava API server.
//
// # Region Fixture
//
// The fixture is a handful of one-degree squares in central Europe:
//
//	M1  lon 10..11, lat 50..51  parents X  X1 X12 X123
//	M2  lon 11..12, lat 50..51  parents X  X1 X12 X124
//	M3  lon 20..21, lat 50..51  parents Y  Y1 Y11 Y111
//	M4  lon 12..13, lat 50..51  no mapping row
//
// TrackM1 crosses only M1; TrackM1M2 crosses M1 and M2.
//
// # Fake Strava
//
//	srv := testinfra.NewStravaServer(t)
//	srv.AddActivity(testinfra.StravaActivity{ID: 1, StartDate: start}, track)
//	client := strava.New(srv.Config(), creds)
//
// The server issues access-N/refresh-N token pairs, can expire tokens or fail
// individual pages and stream requests, and records every request for later
// assertions.
package testinfra
