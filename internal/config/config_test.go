// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Strava.PageSize != 200 {
		t.Errorf("Strava.PageSize = %d, want 200", cfg.Strava.PageSize)
	}
	if cfg.Strava.PageDelay != 100*time.Millisecond {
		t.Errorf("Strava.PageDelay = %v, want 100ms", cfg.Strava.PageDelay)
	}
	if cfg.Strava.TrackDelay != 50*time.Millisecond {
		t.Errorf("Strava.TrackDelay = %v, want 50ms", cfg.Strava.TrackDelay)
	}
	if cfg.Credentials.Backend != "settings" {
		t.Errorf("Credentials.Backend = %q, want settings", cfg.Credentials.Backend)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "same database files",
			mutate:  func(c *Config) { c.Database.ReferencePath = c.Database.Path },
			wantErr: "ReferencePath",
		},
		{
			name:    "page size above api limit",
			mutate:  func(c *Config) { c.Strava.PageSize = 500 },
			wantErr: "PageSize",
		},
		{
			name:    "lowercase country sheet",
			mutate:  func(c *Config) { c.Reference.CountrySheets = []string{"de"} },
			wantErr: "CountrySheets",
		},
		{
			name:    "unknown credential backend",
			mutate:  func(c *Config) { c.Credentials.Backend = "vault" },
			wantErr: "Backend",
		},
		{
			name:    "short secret key",
			mutate:  func(c *Config) { c.Credentials.SecretKey = "c2hvcnQ=" },
			wantErr: "32 byte",
		},
		{
			name:    "client id without secret",
			mutate:  func(c *Config) { c.Strava.ClientID = "123" },
			wantErr: "must be set together",
		},
		{
			name: "valid with allow-list and key",
			mutate: func(c *Config) {
				c.Reference.CountrySheets = []string{"DE", "FR"}
				c.Credentials.SecretKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"STRAVA_CLIENT_ID":            "strava.client_id",
		"DUCKDB_PATH":                 "database.path",
		"TRAILATLAS_SYNC__QUEUE_SIZE": "sync.queue_size",
		"TRAILATLAS_SERVER__PORT":     "server.port",
		"HOME":                        "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

// Load reads process-wide environment variables; these tests use t.Setenv
// and therefore cannot run in parallel.

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := `
database:
  path: ` + filepath.Join(dir, "user.duckdb") + `
  reference_path: ` + filepath.Join(dir, "regions.duckdb") + `
sync:
  interval: 6h
  pipeline: true
reference:
  country_sheets: [DE, AT]
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, cfgPath)
	t.Setenv(DotEnvPathEnvVar, "")
	t.Setenv("SYNC_QUEUE_SIZE", "16")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Sync.Interval != 6*time.Hour {
		t.Errorf("Sync.Interval = %v, want 6h", cfg.Sync.Interval)
	}
	if !cfg.Sync.Pipeline {
		t.Error("Sync.Pipeline should be true from file")
	}
	if cfg.Sync.QueueSize != 16 {
		t.Errorf("Sync.QueueSize = %d, want 16 from env", cfg.Sync.QueueSize)
	}
	if len(cfg.Reference.CountrySheets) != 2 || cfg.Reference.CountrySheets[1] != "AT" {
		t.Errorf("Reference.CountrySheets = %v", cfg.Reference.CountrySheets)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.example" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("STRAVA_CLIENT_ID=4242\nSTRAVA_CLIENT_SECRET=shh\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	t.Setenv(DotEnvPathEnvVar, envPath)
	// Registered so t.Setenv restores the originals after godotenv exports them.
	t.Setenv("STRAVA_CLIENT_ID", "")
	t.Setenv("STRAVA_CLIENT_SECRET", "")
	os.Unsetenv("STRAVA_CLIENT_ID")
	os.Unsetenv("STRAVA_CLIENT_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Strava.ClientID != "4242" {
		t.Errorf("Strava.ClientID = %q, want 4242", cfg.Strava.ClientID)
	}
	if !cfg.StravaConfigured() {
		t.Error("StravaConfigured() should be true")
	}
}

func TestLoadMissingExplicitDotEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(DotEnvPathEnvVar, filepath.Join(t.TempDir(), "nope.env"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit .env file")
	}
}
