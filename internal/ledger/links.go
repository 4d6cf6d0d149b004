// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/trailatlas/internal/attribution"
	"github.com/tomtom215/trailatlas/internal/database"
	"github.com/tomtom215/trailatlas/internal/models"
)

func insertLinkSQL(class models.Classification) string {
	return `INSERT INTO ` + class.LinkTable() + ` (activity_id, region_id) VALUES (?, ?) ON CONFLICT DO NOTHING`
}

// Link records that activityID touched regionID at class. Repeating the
// call is a no-op.
func (s *Store) Link(ctx context.Context, activityID int64, regionID string, class models.Classification) error {
	if !class.Valid() {
		return fmt.Errorf("link %d/%s: %w", activityID, regionID, models.ErrUnknownClassification)
	}
	if _, err := s.db.Conn().ExecContext(ctx, insertLinkSQL(class), activityID, regionID); err != nil {
		return fmt.Errorf("link %d to %s %s: %w", activityID, class, regionID, err)
	}
	return nil
}

// ApplyLinks writes every link of one activity and marks it attributed, all
// in one transaction.
func (s *Store) ApplyLinks(ctx context.Context, activityID int64, links attribution.LinkSet) error {
	return s.db.WithTx(ctx, func(tx database.Tx) error {
		for _, class := range models.Classifications {
			ids := links.ByClass(class)
			if len(ids) == 0 {
				continue
			}
			stmt, err := tx.PrepareContext(ctx, insertLinkSQL(class))
			if err != nil {
				return fmt.Errorf("prepare %s insert: %w", class.LinkTable(), err)
			}
			for _, id := range ids {
				if _, err := stmt.ExecContext(ctx, activityID, id); err != nil {
					database.CloseWithLog(stmt, "link insert statement")
					return fmt.Errorf("link %d to %s %s: %w", activityID, class, id, err)
				}
			}
			database.CloseWithLog(stmt, "link insert statement")
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE activities SET attributed_at = ? WHERE id = ?`,
			time.Now().UTC(), activityID); err != nil {
			return fmt.Errorf("mark %d attributed: %w", activityID, err)
		}
		return nil
	})
}

// RecomputeFirstVisited rebuilds first_visited for class as the earliest
// start date over each region's linked activities. Regions without links end
// up with no row.
func (s *Store) RecomputeFirstVisited(ctx context.Context, class models.Classification) error {
	if !class.Valid() {
		return models.ErrUnknownClassification
	}
	return s.db.WithTx(ctx, func(tx database.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM first_visited WHERE classification = ?`, class.Key()); err != nil {
			return fmt.Errorf("clear first_visited %s: %w", class, err)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO first_visited (classification, region_id, first_visited)
			SELECT ?, l.region_id, MIN(a.start_date)
			FROM `+class.LinkTable()+` l
			JOIN activities a ON a.id = l.activity_id
			GROUP BY l.region_id`, class.Key())
		if err != nil {
			return fmt.Errorf("recompute first_visited %s: %w", class, err)
		}
		return nil
	})
}

// RecomputeAllFirstVisited runs RecomputeFirstVisited for every classification.
func (s *Store) RecomputeAllFirstVisited(ctx context.Context) error {
	for _, class := range models.Classifications {
		if err := s.RecomputeFirstVisited(ctx, class); err != nil {
			return err
		}
	}
	return nil
}

// LinkCount returns the number of link rows at class.
func (s *Store) LinkCount(ctx context.Context, class models.Classification) (int, error) {
	if !class.Valid() {
		return 0, models.ErrUnknownClassification
	}
	var n int
	if err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM `+class.LinkTable()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", class.LinkTable(), err)
	}
	return n, nil
}

// ActivityLinks returns the region ids linked to one activity at class.
func (s *Store) ActivityLinks(ctx context.Context, activityID int64, class models.Classification) ([]string, error) {
	if !class.Valid() {
		return nil, models.ErrUnknownClassification
	}
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT region_id FROM `+class.LinkTable()+` WHERE activity_id = ? ORDER BY region_id`, activityID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", class.LinkTable(), err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
