// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package refdata fetches and parses the three reference datasets behind the
// region catalog:
//
//   - GISCO LAU polygons (GeoJSON, EPSG:4326)
//   - GISCO NUTS polygons for levels 0 to 3 (GeoJSON, EPSG:4326)
//   - the Eurostat LAU to NUTS correspondence workbook (xlsx)
//
// Remote datasets are downloaded once into the configured cache directory
// and reused afterwards. A location without an http or https scheme is read
// as a local file.
//
// Loader implements catalog.Source. Parse failures wrap
// catalog.ErrReferenceData.
package refdata
