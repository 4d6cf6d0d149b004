// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/trailatlas/internal/app"
	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/credentials"
	"github.com/tomtom215/trailatlas/internal/testinfra"
)

type harness struct {
	t   *testing.T
	cli *cli
	srv *testinfra.StravaServer
	cfg *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := testinfra.NewStravaServer(t)
	dir := t.TempDir()
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Path:          filepath.Join(dir, "trailatlas.duckdb"),
			ReferencePath: filepath.Join(dir, "regions.duckdb"),
			MaxMemory:     "256MB",
			Threads:       2,
		},
		Reference:   config.ReferenceConfig{IndexCellSize: 0.5},
		Strava:      srv.Config(),
		Sync:        config.SyncConfig{QueueSize: 4, RetryAttempts: 1},
		Credentials: config.CredentialsConfig{Backend: credentials.BackendSettings},
		Export:      config.ExportConfig{Enabled: true, Dir: filepath.Join(dir, "maps")},
		Logging:     config.LoggingConfig{Level: "error"},
	}
	c := &cli{
		loadConfig: func() (*config.Config, error) { return cfg, nil },
		appOptions: []app.Option{app.WithReferenceSource(testinfra.NewStaticSource())},
	}
	return &harness{t: t, cli: c, srv: srv, cfg: cfg}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(h.cli)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) connect() {
	h.t.Helper()
	a, err := app.Open(h.cfg)
	require.NoError(h.t, err)
	defer func() { _ = a.Close() }()

	ctx := context.Background()
	access, refresh := h.srv.Tokens()
	require.NoError(h.t, a.Credentials.Set(ctx, credentials.KeyAccessToken, access))
	require.NoError(h.t, a.Credentials.Set(ctx, credentials.KeyRefreshToken, refresh))
}

func TestStatus_EmptyInstallation(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Region catalog:   empty")
	assert.Contains(t, out, "Strava:           not connected")
	assert.Contains(t, out, "Last sync:        never")
	assert.NotContains(t, out, "Visited Regions")
}

func TestSync_RequiresCatalogAndConnection(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("sync")
	assert.ErrorIs(t, err, errCatalogEmpty)

	_, err = h.run("init-regions")
	require.NoError(t, err)

	_, err = h.run("sync")
	assert.ErrorIs(t, err, errNotConnected)
}

func TestInitRegions_ReportsCounts(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("init-regions")
	require.NoError(t, err)
	assert.Contains(t, out, "Region catalog ready")
	assert.Contains(t, out, fmt.Sprintf("  %-6s %8d", "lau", len(testinfra.LocalUnits())))

	out, err = h.run("init-regions", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Region catalog ready")
}

func TestSyncStatusAndReset(t *testing.T) {
	h := newHarness(t)
	h.srv.AddActivity(testinfra.StravaActivity{
		ID: 1, Name: "Ride", Type: "Ride", Distance: 1000,
		StartDate: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}, testinfra.TrackM1)

	_, err := h.run("init-regions")
	require.NoError(t, err)
	h.connect()

	out, err := h.run("sync", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "activities fetched  1")
	assert.Contains(t, out, "attributed          1")
	assert.Contains(t, out, "Wrote 5 map exports")

	out, err = h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Region catalog:   loaded")
	assert.Contains(t, out, "Strava:           connected")
	assert.Contains(t, out, "Activities:       1 (1 with track")
	assert.NotContains(t, out, "Last sync:        never")
	assert.Contains(t, out, fmt.Sprintf("  %-6s %6d / %d", "lau", 1, len(testinfra.LocalUnits())))

	out, err = h.run("reset", "derived")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset derived complete")
	assert.Contains(t, out, "attributed          1")

	out, err = h.run("reset", "regions")
	require.NoError(t, err)
	assert.Contains(t, out, "Region store cleared")

	out, err = h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Region catalog:   empty")
	assert.Contains(t, out, "0 attributed)")
}

func TestReset_WithoutConnectionSkipsSync(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("init-regions")
	require.NoError(t, err)

	out, err := h.run("reset", "activities")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset activities complete")
	assert.NotContains(t, out, "activities fetched")
}

func TestReset_RejectsUnknownScope(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("reset", "everything")
	assert.Error(t, err)

	_, err = h.run("reset")
	assert.Error(t, err)
}
