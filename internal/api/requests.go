// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package api

// RegionsRequest holds the query parameters of /api/regions and /api/totals.
// Level accepts lau, 0..3 or nuts0..nuts3; it is parsed separately so an
// unknown level answers BAD_REQUEST rather than VALIDATION_FAILED.
type RegionsRequest struct {
	Level   string
	Country string `validate:"omitempty,countrycode"`
}
