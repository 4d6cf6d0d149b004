// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package config loads Trailatlas configuration with Koanf v2.
//
// Sources are layered, later ones winning:
//
//  1. Built-in defaults (defaultConfig)
//  2. A YAML file from CONFIG_PATH or one of DefaultConfigPaths
//  3. A .env file (DOTENV_PATH or ./.env), exported into the process environment
//  4. Environment variables, either the flat legacy names listed in
//     envMappings (STRAVA_CLIENT_ID, DUCKDB_PATH, ...) or TRAILATLAS_ names
//     with "__" separating sections (TRAILATLAS_SYNC__QUEUE_SIZE)
//
// The result is validated through internal/validation (go-playground/validator) before it is returned.
//
// Example config.yaml:
//
//	database:
//	  path: /data/user.duckdb
//	  reference_path: /data/regions.duckdb
//	strava:
//	  client_id: "12345"
//	  client_secret: "..."
//	sync:
//	  interval: 6h
//	  pipeline: true
//	reference:
//	  country_sheets: [DE, FR, IT]
package config
