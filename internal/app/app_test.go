// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/trailatlas/internal/app"
	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/credentials"
	"github.com/tomtom215/trailatlas/internal/models"
	"github.com/tomtom215/trailatlas/internal/testinfra"
)

var ride = testinfra.StravaActivity{
	ID: 1, Name: "Ride", Type: "Ride", Distance: 1000,
	StartDate: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
}

func testConfig(t *testing.T, srv *testinfra.StravaServer) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{
			Path:          filepath.Join(dir, "trailatlas.duckdb"),
			ReferencePath: filepath.Join(dir, "regions.duckdb"),
			MaxMemory:     "256MB",
			Threads:       2,
		},
		Reference: config.ReferenceConfig{IndexCellSize: 0.5},
		Strava:    srv.Config(),
		Sync:      config.SyncConfig{QueueSize: 4, RetryAttempts: 1},
		Credentials: config.CredentialsConfig{
			Backend: credentials.BackendSettings,
		},
		Export: config.ExportConfig{Enabled: true, Dir: filepath.Join(dir, "maps")},
	}
}

func openApp(t *testing.T) (*app.App, *testinfra.StravaServer) {
	t.Helper()
	srv := testinfra.NewStravaServer(t)
	a, err := app.Open(testConfig(t, srv), app.WithReferenceSource(testinfra.NewStaticSource()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, srv
}

func TestOpen_LoadCatalog(t *testing.T) {
	a, _ := openApp(t)
	ctx := context.Background()

	assert.False(t, a.Catalog.Ready())
	require.NoError(t, a.LoadCatalog(ctx, false))
	assert.True(t, a.Catalog.Ready())

	counts, err := a.Catalog.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(testinfra.LocalUnits()), counts[models.LocalUnit.Key()])

	require.NoError(t, a.LoadCatalog(ctx, true))
	assert.True(t, a.Catalog.Ready())
}

func TestOpen_SyncThroughSettingsCredentials(t *testing.T) {
	a, srv := openApp(t)
	ctx := context.Background()
	require.NoError(t, a.LoadCatalog(ctx, false))

	access, refresh := srv.Tokens()
	require.NoError(t, a.Credentials.Set(ctx, credentials.KeyAccessToken, access))
	require.NoError(t, a.Credentials.Set(ctx, credentials.KeyRefreshToken, refresh))
	assert.True(t, a.Strava.Connected(ctx))

	// The settings backend writes into the user store.
	stored, err := a.Ledger.GetSetting(ctx, credentials.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, refresh, stored)

	srv.AddActivity(ride, testinfra.TrackM1)

	res, err := a.Orchestrator(ctx, nil).Sync(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ActivitiesFetched)
	assert.Equal(t, 1, res.Attributed)

	visited, err := a.Ledger.VisitedRegions(ctx, models.LocalUnit, "")
	require.NoError(t, err)
	require.Len(t, visited, 1)
	assert.Equal(t, "M1", visited[0].ID)

	paths, err := a.Maps.Export(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	_, err = os.Stat(paths[0])
	assert.NoError(t, err)
}

func TestClearCatalog_DropsDerivedVisits(t *testing.T) {
	a, srv := openApp(t)
	ctx := context.Background()
	require.NoError(t, a.LoadCatalog(ctx, false))

	access, refresh := srv.Tokens()
	require.NoError(t, a.Credentials.Set(ctx, credentials.KeyAccessToken, access))
	require.NoError(t, a.Credentials.Set(ctx, credentials.KeyRefreshToken, refresh))
	srv.AddActivity(ride, testinfra.TrackM1)
	_, err := a.Orchestrator(ctx, nil).Sync(ctx, true)
	require.NoError(t, err)

	require.NoError(t, a.ClearCatalog(ctx))
	assert.False(t, a.Catalog.Ready())

	ok, err := a.Catalog.IsInitialized(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := a.Ledger.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Zero(t, stats.Attributed)
}

func TestOpen_RejectsUnknownCredentialBackend(t *testing.T) {
	srv := testinfra.NewStravaServer(t)
	cfg := testConfig(t, srv)
	cfg.Credentials.Backend = "vault"

	_, err := app.Open(cfg, app.WithReferenceSource(testinfra.NewStaticSource()))
	assert.Error(t, err)
}
