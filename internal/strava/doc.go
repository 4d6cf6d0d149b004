// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package strava is the activity source client.

It pages athlete activities, downloads GPS streams and runs the OAuth
authorization code flow. Tokens live in a credentials.Store; the client reads
the access token for every request and refreshes it once when the API answers
401.

Resilience:
  - every API request passes through a sony/gobreaker circuit breaker; 401 and
    404 answers are expected outcomes and do not count as breaker failures
  - page and stream requests are spaced by x/time/rate limiters built from
    strava.page_delay and strava.track_delay

Usage:

	client := strava.New(cfg.Strava, creds)
	n, err := client.ListActivities(ctx, since, func(page []models.Activity) error {
	    return ledger.SaveActivities(ctx, page)
	})

	track, err := client.GetTrack(ctx, id) // nil, nil when there is no GPS data
*/
package strava
