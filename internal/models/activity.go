// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
)

// TrackStatus records whether a track fetch has been attempted and its outcome.
type TrackStatus int

const (
	// NotFetched means no track request has completed for the activity.
	NotFetched TrackStatus = iota
	// FetchedWithTrack means the source returned GPS data.
	FetchedWithTrack
	// FetchedNoTrack means the source confirmed that no GPS data exists.
	FetchedNoTrack
)

// ParseTrackStatus is the inverse of TrackStatus.String.
func ParseTrackStatus(s string) (TrackStatus, error) {
	switch s {
	case "not_fetched":
		return NotFetched, nil
	case "fetched_with_track":
		return FetchedWithTrack, nil
	case "fetched_no_track":
		return FetchedNoTrack, nil
	}
	return NotFetched, fmt.Errorf("unknown track status %q", s)
}

func (s TrackStatus) String() string {
	switch s {
	case NotFetched:
		return "not_fetched"
	case FetchedWithTrack:
		return "fetched_with_track"
	case FetchedNoTrack:
		return "fetched_no_track"
	}
	return fmt.Sprintf("track_status(%d)", int(s))
}

// Activity is one recorded exercise session.
type Activity struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	StartDate   time.Time   `json:"start_date"`
	Distance    float64     `json:"distance"`
	TrackStatus TrackStatus `json:"-"`
	Track       Track       `json:"-"`
}

// Track is an ordered GPS sequence in (lon, lat) order.
type Track []orb.Point

// ErrInvalidCoordinate is returned for points outside the WGS84 range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// TrackFromLatLng converts [lat, lon] pairs as delivered by the activity source.
func TrackFromLatLng(pairs [][2]float64) Track {
	if len(pairs) == 0 {
		return nil
	}
	t := make(Track, len(pairs))
	for i, p := range pairs {
		t[i] = orb.Point{p[1], p[0]}
	}
	return t
}

// LatLng converts back to [lat, lon] pairs.
func (t Track) LatLng() [][2]float64 {
	pairs := make([][2]float64, len(t))
	for i, p := range t {
		pairs[i] = [2]float64{p.Lat(), p.Lon()}
	}
	return pairs
}

// LineString returns the track as a line string.
func (t Track) LineString() orb.LineString {
	return orb.LineString(t)
}

// Validate rejects NaN, infinite, or out-of-range coordinates.
func (t Track) Validate() error {
	for i, p := range t {
		lon, lat := p.Lon(), p.Lat()
		if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
			return fmt.Errorf("%w: point %d is not finite", ErrInvalidCoordinate, i)
		}
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return fmt.Errorf("%w: point %d (%f, %f) out of range", ErrInvalidCoordinate, i, lat, lon)
		}
	}
	return nil
}

// MarshalTrack encodes the track as a JSON array of [lat, lon] pairs.
func MarshalTrack(t Track) ([]byte, error) {
	return json.Marshal(t.LatLng())
}

// UnmarshalTrack decodes the form written by MarshalTrack.
func UnmarshalTrack(data []byte) (Track, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var pairs [][2]float64
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("decode track: %w", err)
	}
	return TrackFromLatLng(pairs), nil
}

// ActivityStats summarizes the activity store.
type ActivityStats struct {
	Total      int `json:"total"`
	WithTrack  int `json:"with_track"`
	NoTrack    int `json:"no_track"`
	NotFetched int `json:"not_fetched"`
	Attributed int `json:"attributed"`
}
