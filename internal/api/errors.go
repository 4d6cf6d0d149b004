// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package api

import "errors"

var (
	// ErrOAuthNotConfigured indicates the Strava client id or secret is missing.
	ErrOAuthNotConfigured = errors.New("strava oauth is not configured")

	// ErrInvalidState indicates the OAuth callback state did not match the cookie.
	ErrInvalidState = errors.New("oauth state mismatch")
)
