// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package strava

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
)

// summary is the subset of a SummaryActivity the ledger keeps.
type summary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	SportType string    `json:"sport_type"`
	StartDate time.Time `json:"start_date"`
	Distance  float64   `json:"distance"`
}

func (s summary) toModel() models.Activity {
	a := models.Activity{
		ID:          s.ID,
		Name:        s.Name,
		Type:        s.Type,
		StartDate:   s.StartDate.UTC(),
		Distance:    s.Distance,
		TrackStatus: models.NotFetched,
	}
	if a.Name == "" {
		a.Name = "Untitled"
	}
	if a.Type == "" {
		a.Type = s.SportType
	}
	if a.Type == "" {
		a.Type = "Unknown"
	}
	return a
}

// PageFunc receives each page of activities as it arrives. Returning an
// error stops paging.
type PageFunc func(page []models.Activity) error

// ListActivities pages the athlete's activities starting after the given
// time (zero means all) and hands each page to fn. It returns how many
// activities were delivered. Pages delivered before an error stay delivered.
func (c *Client) ListActivities(ctx context.Context, after time.Time, fn PageFunc) (int, error) {
	total := 0
	for page := 1; ; page++ {
		if err := c.pageLimiter.Wait(ctx); err != nil {
			return total, err
		}

		q := url.Values{}
		q.Set("per_page", strconv.Itoa(c.cfg.PageSize))
		q.Set("page", strconv.Itoa(page))
		if !after.IsZero() {
			q.Set("after", strconv.FormatInt(after.Unix(), 10))
		}

		body, err := c.get(ctx, "activities", "/athlete/activities", q)
		if err != nil {
			return total, fmt.Errorf("list activities page %d: %w", page, err)
		}
		var raw []summary
		if err := json.Unmarshal(body, &raw); err != nil {
			return total, fmt.Errorf("decode activities page %d: %w", page, err)
		}
		if len(raw) == 0 {
			break
		}

		activities := make([]models.Activity, 0, len(raw))
		for _, s := range raw {
			activities = append(activities, s.toModel())
		}
		if err := fn(activities); err != nil {
			return total, fmt.Errorf("store activities page %d: %w", page, err)
		}
		total += len(activities)
		logging.Debug().Int("page", page).Int("count", len(raw)).Int("total", total).Msg("Fetched activity page")

		if len(raw) < c.cfg.PageSize {
			break
		}
	}
	return total, nil
}

type streamSet struct {
	LatLng *struct {
		Data [][2]float64 `json:"data"`
	} `json:"latlng"`
}

// GetTrack downloads the latlng stream of one activity. A 404 or a response
// without latlng data yields a nil track and a nil error.
func (c *Client) GetTrack(ctx context.Context, activityID int64) (models.Track, error) {
	if err := c.trackLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("keys", "latlng,time")
	q.Set("key_by_type", "true")

	body, err := c.get(ctx, "streams", fmt.Sprintf("/activities/%d/streams", activityID), q)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("streams for %d: %w", activityID, err)
	}

	var streams streamSet
	if err := json.Unmarshal(body, &streams); err != nil {
		return nil, fmt.Errorf("decode streams for %d: %w", activityID, err)
	}
	if streams.LatLng == nil || len(streams.LatLng.Data) == 0 {
		return nil, nil
	}
	return models.TrackFromLatLng(streams.LatLng.Data), nil
}
