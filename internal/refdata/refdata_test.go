// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/trailatlas/internal/catalog"
	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/models"
)

const lauGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"GISCO_ID":"DE_09162000","LAU_NAME":"München","CNTR_CODE":"DE"},
  "geometry":{"type":"Polygon","coordinates":[[[11.3,48.0],[11.7,48.0],[11.7,48.3],[11.3,48.3],[11.3,48.0]]]}},
 {"type":"Feature","properties":{"LAU_ID":"AT_90001","LAU_NAME":"Wien"},
  "geometry":{"type":"MultiPolygon","coordinates":[[[[16.2,48.1],[16.5,48.1],[16.5,48.3],[16.2,48.3],[16.2,48.1]]]]}},
 {"type":"Feature","properties":{"GISCO_ID":"XX_1"},"geometry":{"type":"Point","coordinates":[1,1]}}
]}`

const nutsGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"NUTS_ID":"DE","LEVL_CODE":0,"CNTR_CODE":"DE","NAME_LATN":"Deutschland"},
  "geometry":{"type":"Polygon","coordinates":[[[5,47],[15,47],[15,55],[5,55],[5,47]]]}},
 {"type":"Feature","properties":{"NUTS_ID":"DE212","NUTS_NAME":"München, Kreisfreie Stadt"},
  "geometry":{"type":"Polygon","coordinates":[[[11.3,48.0],[11.7,48.0],[11.7,48.3],[11.3,48.3],[11.3,48.0]]]}}
]}`

func mustFC(t *testing.T, raw string) *geojson.FeatureCollection {
	t.Helper()
	fc, err := geojson.UnmarshalFeatureCollection([]byte(raw))
	require.NoError(t, err)
	return fc
}

func TestParseLocalUnits(t *testing.T) {
	t.Parallel()

	regions, err := ParseLocalUnits(mustFC(t, lauGeoJSON))
	require.NoError(t, err)
	require.Len(t, regions, 2, "point feature must be skipped")

	assert.Equal(t, "DE_09162000", regions[0].ID)
	assert.Equal(t, "München", regions[0].Name)
	assert.Equal(t, "DE", regions[0].CountryCode)
	assert.Equal(t, models.LocalUnit, regions[0].Classification)
	assert.IsType(t, orb.Polygon{}, regions[0].Geometry)

	assert.Equal(t, "AT_90001", regions[1].ID)
	assert.Equal(t, "AT", regions[1].CountryCode, "country falls back to id prefix")
	assert.IsType(t, orb.MultiPolygon{}, regions[1].Geometry)
}

func TestParseLocalUnits_MissingID(t *testing.T) {
	t.Parallel()

	fc := mustFC(t, `{"type":"FeatureCollection","features":[
	 {"type":"Feature","properties":{"LAU_NAME":"Nameless"},
	  "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`)
	_, err := ParseLocalUnits(fc)
	assert.ErrorIs(t, err, catalog.ErrReferenceData)
}

func TestParseStatisticalRegions(t *testing.T) {
	t.Parallel()

	regions, err := ParseStatisticalRegions(mustFC(t, nutsGeoJSON))
	require.NoError(t, err)
	require.Len(t, regions, 2)

	assert.Equal(t, models.Statistical0, regions[0].Classification)
	assert.Equal(t, "Deutschland", regions[0].Name, "NAME_LATN is the name fallback")

	assert.Equal(t, models.Statistical3, regions[1].Classification, "level derived from id length")
	assert.Equal(t, "DE", regions[1].CountryCode, "country derived from id")
}

func newWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	wb := excelize.NewFile()
	t.Cleanup(func() { _ = wb.Close() })

	addSheet := func(name string, rows [][]interface{}) {
		_, err := wb.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cellRef, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, wb.SetSheetRow(name, cellRef, &r))
		}
	}

	addSheet("DE", [][]interface{}{
		{"NUTS 3 CODE", "LAU CODE", "EU LAU CODE", "LAU NAME NATIONAL"},
		{"DE212", "09162000", "DE_09162000", "München"},
		{"DE300", "11000000", "DE_11000000", "Berlin"},
		{"", "00000000", "DE_00000000", "no nuts"},
		{"BAD", "1", "DE_1", "malformed"},
	})
	addSheet("AT", [][]interface{}{
		{"NUTS 3 CODE", "EU LAU CODE"},
		{"AT130", "AT_90001"},
	})
	addSheet("Notes", [][]interface{}{{"NUTS 3 CODE", "EU LAU CODE"}, {"ZZ999", "ZZ_1"}})
	addSheet("FR", [][]interface{}{{"unrelated", "columns"}, {"a", "b"}})
	return wb
}

func TestParseMapping_Heuristic(t *testing.T) {
	t.Parallel()

	mapping, err := ParseMapping(newWorkbook(t), nil)
	require.NoError(t, err)

	assert.Len(t, mapping, 3)
	assert.Equal(t, models.HierarchyParents{"DE", "DE2", "DE21", "DE212"}, mapping["DE_09162000"])
	assert.Equal(t, models.HierarchyParents{"AT", "AT1", "AT13", "AT130"}, mapping["AT_90001"])
	assert.NotContains(t, mapping, "ZZ_1", "non-country sheet must be ignored")
	assert.NotContains(t, mapping, "DE_00000000", "rows with empty cells are dropped")
}

func TestParseMapping_AllowList(t *testing.T) {
	t.Parallel()

	mapping, err := ParseMapping(newWorkbook(t), []string{"AT"})
	require.NoError(t, err)
	assert.Len(t, mapping, 1)

	_, err = ParseMapping(newWorkbook(t), []string{"AT", "PL"})
	assert.ErrorIs(t, err, catalog.ErrReferenceData)
}

func TestParseMapping_NoValidSheets(t *testing.T) {
	t.Parallel()

	_, err := ParseMapping(newWorkbook(t), []string{"FR"})
	assert.ErrorIs(t, err, catalog.ErrReferenceData)
}

func TestLoaderCachesDownloads(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(lauGeoJSON))
	}))
	t.Cleanup(srv.Close)

	cfg := config.ReferenceConfig{
		LocalUnitsURL: srv.URL + "/lau/LAU_RG_01M_2024_4326.geojson",
		CacheDir:      filepath.Join(t.TempDir(), "cache"),
	}
	l := NewLoader(cfg)

	for i := 0; i < 2; i++ {
		regions, err := l.LocalUnits(context.Background())
		require.NoError(t, err)
		assert.Len(t, regions, 2)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.FileExists(t, filepath.Join(cfg.CacheDir, "LAU_RG_01M_2024_4326.geojson"))
}

func TestLoaderDownloadFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	cacheDir := filepath.Join(t.TempDir(), "cache")
	l := NewLoader(config.ReferenceConfig{StatisticalURL: srv.URL + "/nuts.geojson", CacheDir: cacheDir})
	_, err := l.StatisticalRegions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 410")

	entries, _ := os.ReadDir(cacheDir)
	assert.Empty(t, entries, "failed download must not leave a cache file")
}

func TestLoaderReadsLocalWorkbook(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mapping.xlsx")
	require.NoError(t, newWorkbook(t).SaveAs(path))

	l := NewLoader(config.ReferenceConfig{MappingURL: path})
	mapping, err := l.HierarchyMapping(context.Background())
	require.NoError(t, err)
	assert.Len(t, mapping, 3)
}
