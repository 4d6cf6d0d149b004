// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package ledger

import (
	"fmt"

	"github.com/tomtom215/trailatlas/internal/database"
	"github.com/tomtom215/trailatlas/internal/models"
)

func migrations() []database.Migration {
	m := []database.Migration{
		{
			Version: 1, Name: "create_settings",
			Description: "Key/value settings including credentials",
			SQL:         `CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
		},
		{
			Version: 2, Name: "create_metadata",
			Description: "Sync bookkeeping",
			SQL:         `CREATE TABLE IF NOT EXISTS metadata (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
		},
		{
			Version: 3, Name: "create_activities",
			Description: "Activities with tri-state track status",
			SQL: `CREATE TABLE IF NOT EXISTS activities (
				id BIGINT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				type TEXT NOT NULL DEFAULT '',
				start_date TIMESTAMP NOT NULL,
				distance DOUBLE NOT NULL DEFAULT 0,
				track_status TEXT NOT NULL DEFAULT 'not_fetched'
					CHECK (track_status IN ('not_fetched', 'fetched_with_track', 'fetched_no_track')),
				track TEXT,
				attributed_at TIMESTAMP
			)`,
		},
		{
			Version: 4, Name: "create_first_visited",
			Description: "Derived earliest visit per region",
			SQL: `CREATE TABLE IF NOT EXISTS first_visited (
				classification TEXT NOT NULL,
				region_id TEXT NOT NULL,
				first_visited TIMESTAMP NOT NULL,
				PRIMARY KEY (classification, region_id)
			)`,
		},
	}

	version := len(m)
	for _, class := range models.Classifications {
		version++
		m = append(m, database.Migration{
			Version:     version,
			Name:        "create_" + class.LinkTable(),
			Description: fmt.Sprintf("Activity links at %s", class),
			SQL: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				activity_id BIGINT NOT NULL,
				region_id TEXT NOT NULL,
				PRIMARY KEY (activity_id, region_id)
			)`, class.LinkTable()),
		})
	}
	return m
}
