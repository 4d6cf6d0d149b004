// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package models defines the domain types shared across Trailatlas:
// regions and their classifications, the LAU to NUTS hierarchy, activities
// with their tri-state track status, and the query results served to the
// presentation layer.
//
// Tracks are held as orb points in (lon, lat) order. The activity source and
// the persisted JSON form use [lat, lon] pairs; TrackFromLatLng and
// Track.LatLng convert between the two.
package models
