// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package catalog

import "github.com/tomtom215/trailatlas/internal/database"

var migrations = []database.Migration{
	{
		Version:     1,
		Name:        "create_regions",
		Description: "Region polygons for every classification, geometry as WKB",
		SQL: `CREATE TABLE IF NOT EXISTS regions (
			id TEXT NOT NULL,
			classification TEXT NOT NULL,
			name TEXT NOT NULL,
			country_code TEXT NOT NULL,
			geometry BLOB NOT NULL,
			min_x DOUBLE NOT NULL,
			min_y DOUBLE NOT NULL,
			max_x DOUBLE NOT NULL,
			max_y DOUBLE NOT NULL,
			PRIMARY KEY (classification, id)
		)`,
	},
	{
		Version:     2,
		Name:        "create_hierarchy_mapping",
		Description: "LAU to NUTS0..NUTS3 parent chain",
		SQL: `CREATE TABLE IF NOT EXISTS hierarchy_mapping (
			lau_id TEXT PRIMARY KEY,
			nuts0 TEXT NOT NULL,
			nuts1 TEXT NOT NULL,
			nuts2 TEXT NOT NULL,
			nuts3 TEXT NOT NULL
		)`,
	},
	{
		Version:     3,
		Name:        "create_catalog_meta",
		Description: "Catalog load bookkeeping",
		SQL: `CREATE TABLE IF NOT EXISTS catalog_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	},
	{
		Version:     4,
		Name:        "index_regions_country",
		Description: "Country filter for totals",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_regions_country ON regions (classification, country_code)`,
	},
}
