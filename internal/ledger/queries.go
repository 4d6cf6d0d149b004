// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
)

type visitRow struct {
	regionID      string
	activityCount int
	firstVisited  time.Time
}

// visitRows aggregates one link table. first_visited comes from the derived
// table; before the first recompute it falls back to the live minimum.
func (s *Store) visitRows(ctx context.Context, class models.Classification) ([]visitRow, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT
			l.region_id,
			COUNT(DISTINCT l.activity_id),
			COALESCE(MIN(f.first_visited), MIN(a.start_date))
		FROM `+class.LinkTable()+` l
		JOIN activities a ON a.id = l.activity_id
		LEFT JOIN first_visited f ON f.classification = ? AND f.region_id = l.region_id
		GROUP BY l.region_id`, class.Key())
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", class.LinkTable(), err)
	}
	defer rows.Close()

	var out []visitRow
	for rows.Next() {
		var r visitRow
		if err := rows.Scan(&r.regionID, &r.activityCount, &r.firstVisited); err != nil {
			return nil, fmt.Errorf("scan %s aggregate: %w", class.LinkTable(), err)
		}
		r.firstVisited = r.firstVisited.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// VisitedRegions lists linked regions at class, optionally within country,
// most recently discovered first. Linked ids missing from the catalog are
// dropped.
func (s *Store) VisitedRegions(ctx context.Context, class models.Classification, country string) ([]models.VisitedRegion, error) {
	if !class.Valid() {
		return nil, models.ErrUnknownClassification
	}
	rows, err := s.visitRows(ctx, class)
	if err != nil {
		return nil, err
	}

	out := make([]models.VisitedRegion, 0, len(rows))
	orphans := 0
	for _, r := range rows {
		region, ok := s.dir.Lookup(class, r.regionID)
		if !ok {
			orphans++
			continue
		}
		if country != "" && region.CountryCode != country {
			continue
		}
		out = append(out, models.VisitedRegion{
			ID:            region.ID,
			Name:          region.Name,
			CountryCode:   region.CountryCode,
			Level:         class.Key(),
			FirstVisited:  r.firstVisited,
			ActivityCount: r.activityCount,
		})
	}
	if orphans > 0 {
		logging.Debug().Str("classification", class.Key()).Int("orphans", orphans).Msg("Linked regions missing from catalog")
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstVisited.Equal(out[j].FirstVisited) {
			return out[i].FirstVisited.After(out[j].FirstVisited)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Totals compares visited regions with the catalog size at class.
func (s *Store) Totals(ctx context.Context, class models.Classification, country string) (models.Totals, error) {
	visited, err := s.VisitedRegions(ctx, class, country)
	if err != nil {
		return models.Totals{}, err
	}
	return models.Totals{
		Visited: len(visited),
		Total:   s.dir.Count(class, country),
	}, nil
}

// AllTotals returns Totals keyed lau, nuts0..nuts3.
func (s *Store) AllTotals(ctx context.Context, country string) (map[string]models.Totals, error) {
	out := make(map[string]models.Totals, len(models.Classifications))
	for _, class := range models.Classifications {
		t, err := s.Totals(ctx, class, country)
		if err != nil {
			return nil, err
		}
		out[class.Key()] = t
	}
	return out, nil
}

// VisitedCountries returns the linked NUTS0 regions ordered by name.
func (s *Store) VisitedCountries(ctx context.Context) ([]models.Country, error) {
	visited, err := s.VisitedRegions(ctx, models.Statistical0, "")
	if err != nil {
		return nil, err
	}
	out := make([]models.Country, 0, len(visited))
	for _, v := range visited {
		out = append(out, models.Country{Code: v.ID, Name: v.Name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

// FirstVisited returns the derived first visit of one region.
func (s *Store) FirstVisited(ctx context.Context, class models.Classification, regionID string) (time.Time, bool, error) {
	var t time.Time
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT first_visited FROM first_visited WHERE classification = ? AND region_id = ?`,
		class.Key(), regionID).Scan(&t)
	if err != nil {
		if isNoRows(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("read first_visited %s/%s: %w", class, regionID, err)
	}
	return t.UTC(), true, nil
}
