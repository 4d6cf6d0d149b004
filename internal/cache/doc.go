// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package cache provides a bounded LRU cache with per-entry expiry.
//
// The API layer keeps encoded live map responses here, keyed by level and
// country, and clears the cache whenever a sync completes or user data is
// reset:
//
//	maps := cache.NewLRU[[]byte](128, 10*time.Minute)
//	if data, ok := maps.Get(key); ok {
//	    return data
//	}
//
// Get and Set are O(1) and safe for concurrent use.
package cache
