// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package refdata

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tomtom215/trailatlas/internal/catalog"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
)

// goccyCodec lets orb's geojson package decode with goccy/go-json.
type goccyCodec struct{}

func (goccyCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (goccyCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func init() {
	geojson.CustomJSONMarshaler = goccyCodec{}
	geojson.CustomJSONUnmarshaler = goccyCodec{}
}

// LocalUnits implements catalog.Source.
func (l *Loader) LocalUnits(ctx context.Context) ([]models.Region, error) {
	file, err := l.fetch(ctx, l.cfg.LocalUnitsURL)
	if err != nil {
		return nil, err
	}
	fc, err := readFeatureCollection(file)
	if err != nil {
		return nil, err
	}
	return ParseLocalUnits(fc)
}

// StatisticalRegions implements catalog.Source.
func (l *Loader) StatisticalRegions(ctx context.Context) ([]models.Region, error) {
	file, err := l.fetch(ctx, l.cfg.StatisticalURL)
	if err != nil {
		return nil, err
	}
	fc, err := readFeatureCollection(file)
	if err != nil {
		return nil, err
	}
	return ParseStatisticalRegions(fc)
}

func readFeatureCollection(file string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson %s: %w", file, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse geojson %s: %v", catalog.ErrReferenceData, file, err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("%w: %s has no features", catalog.ErrReferenceData, file)
	}
	return fc, nil
}

// ParseLocalUnits converts GISCO LAU features. GISCO_ID (falling back to
// LAU_ID) is required on every feature.
func ParseLocalUnits(fc *geojson.FeatureCollection) ([]models.Region, error) {
	out := make([]models.Region, 0, len(fc.Features))
	skipped := 0
	for i, f := range fc.Features {
		id := propString(f.Properties, "GISCO_ID")
		if id == "" {
			id = propString(f.Properties, "LAU_ID")
		}
		if id == "" {
			return nil, fmt.Errorf("%w: local unit feature %d has neither GISCO_ID nor LAU_ID", catalog.ErrReferenceData, i)
		}

		geom, ok := areal(f.Geometry)
		if !ok {
			skipped++
			continue
		}

		country := propString(f.Properties, "CNTR_CODE")
		if country == "" {
			if prefix, _, found := strings.Cut(id, "_"); found {
				country = prefix
			}
		}
		name := propString(f.Properties, "LAU_NAME")
		if name == "" {
			name = id
		}

		out = append(out, models.Region{
			ID:             id,
			Name:           name,
			CountryCode:    country,
			Classification: models.LocalUnit,
			Geometry:       geom,
		})
	}
	logSkipped("local units", skipped)
	return out, nil
}

// ParseStatisticalRegions converts GISCO NUTS features of every level.
func ParseStatisticalRegions(fc *geojson.FeatureCollection) ([]models.Region, error) {
	out := make([]models.Region, 0, len(fc.Features))
	skipped := 0
	for i, f := range fc.Features {
		id := propString(f.Properties, "NUTS_ID")
		if id == "" {
			return nil, fmt.Errorf("%w: statistical feature %d has no NUTS_ID", catalog.ErrReferenceData, i)
		}

		level, ok := propInt(f.Properties, "LEVL_CODE")
		if !ok {
			level = len(id) - 2
		}
		class, err := models.StatisticalLevel(level)
		if err != nil {
			skipped++
			continue
		}

		geom, ok := areal(f.Geometry)
		if !ok {
			skipped++
			continue
		}

		country := propString(f.Properties, "CNTR_CODE")
		if country == "" && len(id) >= 2 {
			country = id[:2]
		}
		name := propString(f.Properties, "NUTS_NAME")
		if name == "" {
			name = propString(f.Properties, "NAME_LATN")
		}
		if name == "" {
			name = id
		}

		out = append(out, models.Region{
			ID:             id,
			Name:           name,
			CountryCode:    country,
			Classification: class,
			Geometry:       geom,
		})
	}
	logSkipped("statistical regions", skipped)
	return out, nil
}

// areal keeps polygons and multipolygons only.
func areal(g orb.Geometry) (orb.Geometry, bool) {
	switch geom := g.(type) {
	case orb.Polygon:
		return geom, len(geom) > 0
	case orb.MultiPolygon:
		return geom, len(geom) > 0
	}
	return nil, false
}

func logSkipped(dataset string, skipped int) {
	if skipped > 0 {
		logging.Warn().Str("dataset", dataset).Int("skipped", skipped).Msg("Skipped features without polygon geometry or a known level")
	}
}

func propString(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func propInt(p geojson.Properties, key string) (int, bool) {
	switch v := p[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}
