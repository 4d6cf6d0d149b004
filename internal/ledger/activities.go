// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/trailatlas/internal/database"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
)

const upsertActivity = `INSERT INTO activities (id, name, type, start_date, distance)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		type = excluded.type,
		start_date = excluded.start_date,
		distance = excluded.distance`

// SaveActivity inserts or updates activity metadata. An existing track and
// track status are preserved.
func (s *Store) SaveActivity(ctx context.Context, a models.Activity) error {
	_, err := s.db.Conn().ExecContext(ctx, upsertActivity,
		a.ID, a.Name, a.Type, a.StartDate.UTC(), a.Distance)
	if err != nil {
		return fmt.Errorf("save activity %d: %w", a.ID, err)
	}
	return nil
}

// SaveActivities upserts one page of activities in a single transaction.
func (s *Store) SaveActivities(ctx context.Context, activities []models.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	return s.db.WithTx(ctx, func(tx database.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertActivity)
		if err != nil {
			return fmt.Errorf("prepare activity upsert: %w", err)
		}
		defer database.CloseWithLog(stmt, "activity upsert statement")

		for _, a := range activities {
			if _, err := stmt.ExecContext(ctx, a.ID, a.Name, a.Type, a.StartDate.UTC(), a.Distance); err != nil {
				return fmt.Errorf("save activity %d: %w", a.ID, err)
			}
		}
		return nil
	})
}

// SetTrack stores a fetched track and marks the activity fetched_with_track.
func (s *Store) SetTrack(ctx context.Context, activityID int64, track models.Track) error {
	data, err := models.MarshalTrack(track)
	if err != nil {
		return fmt.Errorf("encode track of %d: %w", activityID, err)
	}
	return s.recordTrackOutcome(ctx, activityID, models.FetchedWithTrack, string(data))
}

// MarkNoTrack records that the source confirmed the activity has no GPS data.
func (s *Store) MarkNoTrack(ctx context.Context, activityID int64) error {
	return s.recordTrackOutcome(ctx, activityID, models.FetchedNoTrack, nil)
}

func (s *Store) recordTrackOutcome(ctx context.Context, activityID int64, status models.TrackStatus, track any) error {
	res, err := s.db.Conn().ExecContext(ctx,
		`UPDATE activities SET track_status = ?, track = ?
		 WHERE id = ? AND track_status = 'not_fetched'`,
		status.String(), track, activityID)
	if err != nil {
		return fmt.Errorf("record track outcome for %d: %w", activityID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record track outcome for %d: %w", activityID, err)
	}
	if n == 1 {
		return nil
	}

	current, err := s.trackStatus(ctx, activityID)
	if err != nil {
		return err
	}
	return fmt.Errorf("activity %d is %s: %w", activityID, current, ErrTrackAlreadyFetched)
}

func (s *Store) trackStatus(ctx context.Context, activityID int64) (models.TrackStatus, error) {
	var raw string
	err := s.db.Conn().QueryRowContext(ctx, `SELECT track_status FROM activities WHERE id = ?`, activityID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotFetched, fmt.Errorf("activity %d: %w", activityID, ErrNotFound)
	}
	if err != nil {
		return models.NotFetched, fmt.Errorf("read track status of %d: %w", activityID, err)
	}
	return models.ParseTrackStatus(raw)
}

// Activity returns one activity including its track.
func (s *Store) Activity(ctx context.Context, id int64) (models.Activity, error) {
	list, err := s.queryActivities(ctx, `WHERE id = ?`, id)
	if err != nil {
		return models.Activity{}, err
	}
	if len(list) == 0 {
		return models.Activity{}, fmt.Errorf("activity %d: %w", id, ErrNotFound)
	}
	return list[0], nil
}

// ActivitiesNeedingTrack returns not_fetched activities, oldest first.
func (s *Store) ActivitiesNeedingTrack(ctx context.Context) ([]models.Activity, error) {
	return s.queryActivities(ctx, `WHERE track_status = 'not_fetched' ORDER BY start_date, id`)
}

// ActivitiesWithTrack returns fetched_with_track activities with decoded
// tracks. With onlyUnattributed, activities already attributed are skipped.
func (s *Store) ActivitiesWithTrack(ctx context.Context, onlyUnattributed bool) ([]models.Activity, error) {
	where := `WHERE track_status = 'fetched_with_track'`
	if onlyUnattributed {
		where += ` AND attributed_at IS NULL`
	}
	return s.queryActivities(ctx, where+` ORDER BY start_date, id`)
}

func (s *Store) queryActivities(ctx context.Context, clause string, args ...any) ([]models.Activity, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, name, type, start_date, distance, track_status, track FROM activities `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var (
			a      models.Activity
			status string
			track  sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.StartDate, &a.Distance, &status, &track); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.TrackStatus, err = models.ParseTrackStatus(status); err != nil {
			return nil, err
		}
		if track.Valid {
			a.Track, err = models.UnmarshalTrack([]byte(track.String))
			if err != nil {
				logging.Warn().Err(err).Int64("activity_id", a.ID).Msg("Stored track is unreadable")
				a.Track = nil
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestStartDate returns the newest stored start date.
func (s *Store) LatestStartDate(ctx context.Context) (time.Time, bool, error) {
	var t sql.NullTime
	if err := s.db.Conn().QueryRowContext(ctx, `SELECT MAX(start_date) FROM activities`).Scan(&t); err != nil {
		return time.Time{}, false, fmt.Errorf("latest start date: %w", err)
	}
	if !t.Valid {
		return time.Time{}, false, nil
	}
	return t.Time.UTC(), true, nil
}

// Stats counts activities by track status.
func (s *Store) Stats(ctx context.Context) (models.ActivityStats, error) {
	var st models.ActivityStats
	err := s.db.Conn().QueryRowContext(ctx, `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE track_status = 'fetched_with_track'),
			COUNT(*) FILTER (WHERE track_status = 'fetched_no_track'),
			COUNT(*) FILTER (WHERE track_status = 'not_fetched'),
			COUNT(*) FILTER (WHERE attributed_at IS NOT NULL)
		FROM activities`).Scan(&st.Total, &st.WithTrack, &st.NoTrack, &st.NotFetched, &st.Attributed)
	if err != nil {
		return st, fmt.Errorf("activity stats: %w", err)
	}
	return st, nil
}
