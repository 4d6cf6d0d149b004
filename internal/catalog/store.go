// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/encoding/wkb"

	"github.com/tomtom215/trailatlas/internal/database"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
)

// persist replaces every reference row in one transaction.
func (c *Catalog) persist(ctx context.Context, regions []models.Region, mapping map[string]models.HierarchyParents) error {
	return c.db.WithTx(ctx, func(tx database.Tx) error {
		for _, stmt := range []string{`DELETE FROM regions`, `DELETE FROM hierarchy_mapping`} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear reference rows: %w", err)
			}
		}

		regionStmt, err := tx.PrepareContext(ctx, `INSERT INTO regions
			(id, classification, name, country_code, geometry, min_x, min_y, max_x, max_y)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare region insert: %w", err)
		}
		defer database.CloseWithLog(regionStmt, "region insert statement")

		skipped := 0
		for i := range regions {
			r := &regions[i]
			if r.Geometry == nil {
				skipped++
				continue
			}
			blob, err := wkb.Marshal(r.Geometry)
			if err != nil {
				logging.Warn().Err(err).Str("region_id", r.ID).Msg("Skipping region with unencodable geometry")
				skipped++
				continue
			}
			b := r.Bound()
			if _, err := regionStmt.ExecContext(ctx,
				r.ID, r.Classification.Key(), r.Name, r.CountryCode, blob,
				b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()); err != nil {
				return fmt.Errorf("insert region %s: %w", r.ID, err)
			}
		}
		if skipped > 0 {
			logging.Warn().Int("skipped", skipped).Msg("Regions without usable geometry were not stored")
		}

		mapStmt, err := tx.PrepareContext(ctx, `INSERT INTO hierarchy_mapping
			(lau_id, nuts0, nuts1, nuts2, nuts3) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare mapping insert: %w", err)
		}
		defer database.CloseWithLog(mapStmt, "mapping insert statement")

		for lau, p := range mapping {
			if _, err := mapStmt.ExecContext(ctx, lau, p[0], p[1], p[2], p[3]); err != nil {
				return fmt.Errorf("insert mapping %s: %w", lau, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO catalog_meta (key, value) VALUES ('loaded_at', ?)`,
			time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("record load time: %w", err)
		}
		return nil
	})
}

func (c *Catalog) readRegions(ctx context.Context) ([]*models.Region, error) {
	rows, err := c.db.Conn().QueryContext(ctx,
		`SELECT id, classification, name, country_code, geometry FROM regions`)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	var out []*models.Region
	for rows.Next() {
		var (
			r    models.Region
			key  string
			blob []byte
		)
		if err := rows.Scan(&r.ID, &key, &r.Name, &r.CountryCode, &blob); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		class, err := models.ParseClassification(key)
		if err != nil {
			return nil, fmt.Errorf("%w: region %s: %v", ErrReferenceData, r.ID, err)
		}
		r.Classification = class
		geom, err := wkb.Unmarshal(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: decode geometry of %s: %v", ErrReferenceData, r.ID, err)
		}
		r.Geometry = geom
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (c *Catalog) readMapping(ctx context.Context) (map[string]models.HierarchyParents, error) {
	rows, err := c.db.Conn().QueryContext(ctx,
		`SELECT lau_id, nuts0, nuts1, nuts2, nuts3 FROM hierarchy_mapping`)
	if err != nil {
		return nil, fmt.Errorf("query mapping: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]models.HierarchyParents)
	for rows.Next() {
		var lau string
		var p models.HierarchyParents
		if err := rows.Scan(&lau, &p[0], &p[1], &p[2], &p[3]); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mapping[lau] = p
	}
	return mapping, rows.Err()
}

// LoadedAt returns when the catalog was last persisted.
func (c *Catalog) LoadedAt(ctx context.Context) (time.Time, bool, error) {
	var v string
	err := c.db.Conn().QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = 'loaded_at'`).Scan(&v)
	if err != nil {
		if isNoRows(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("read catalog load time: %w", err)
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse catalog load time: %w", err)
	}
	return t, true, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
