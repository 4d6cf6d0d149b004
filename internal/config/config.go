// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Database    DatabaseConfig    `koanf:"database"`
	Reference   ReferenceConfig   `koanf:"reference"`
	Strava      StravaConfig      `koanf:"strava"`
	Sync        SyncConfig        `koanf:"sync"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Export      ExportConfig      `koanf:"export"`
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// DatabaseConfig holds the two DuckDB stores. The user store holds
// activities, links and settings; the reference store holds the region
// catalog and is never written outside a catalog load.
type DatabaseConfig struct {
	Path                   string `koanf:"path" validate:"required"`
	ReferencePath          string `koanf:"reference_path" validate:"required,nefield=Path"`
	MaxMemory              string `koanf:"max_memory" validate:"required"`
	Threads                int    `koanf:"threads" validate:"gte=0,lte=256"`
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// ReferenceConfig locates the region reference datasets.
type ReferenceConfig struct {
	LocalUnitsURL   string        `koanf:"local_units_url" validate:"required"`
	StatisticalURL  string        `koanf:"statistical_url" validate:"required"`
	MappingURL      string        `koanf:"mapping_url" validate:"required"`
	CacheDir        string        `koanf:"cache_dir" validate:"required"`
	DownloadTimeout time.Duration `koanf:"download_timeout" validate:"gt=0"`

	// CountrySheets, when set, replaces the two-uppercase-letter sheet name
	// heuristic with an explicit allow-list.
	CountrySheets []string `koanf:"country_sheets" validate:"dive,len=2,alpha,uppercase"`

	// IndexCellSize is the spatial index grid cell edge in degrees.
	IndexCellSize float64 `koanf:"index_cell_size" validate:"gt=0,lte=10"`
}

// StravaConfig configures the activity source client and OAuth.
type StravaConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	RedirectURL  string        `koanf:"redirect_url"`
	APIBaseURL   string        `koanf:"api_base_url" validate:"required,url"`
	AuthURL      string        `koanf:"auth_url" validate:"required,url"`
	TokenURL     string        `koanf:"token_url" validate:"required,url"`
	PageSize     int           `koanf:"page_size" validate:"gte=1,lte=200"`
	PageDelay    time.Duration `koanf:"page_delay" validate:"gte=0"`
	TrackDelay   time.Duration `koanf:"track_delay" validate:"gte=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
}

// SyncConfig configures the sync orchestrator.
type SyncConfig struct {
	// Interval between scheduled incremental syncs. Zero disables scheduling.
	Interval      time.Duration `koanf:"interval" validate:"gte=0"`
	Pipeline      bool          `koanf:"pipeline"`
	QueueSize     int           `koanf:"queue_size" validate:"gte=1,lte=10000"`
	RetryAttempts int           `koanf:"retry_attempts" validate:"gte=1,lte=10"`
	RetryDelay    time.Duration `koanf:"retry_delay" validate:"gte=0"`
	SyncOnStartup bool          `koanf:"sync_on_startup"`
}

// CredentialsConfig selects the credential store backend.
type CredentialsConfig struct {
	Backend    string `koanf:"backend" validate:"oneof=settings badger"`
	BadgerPath string `koanf:"badger_path" validate:"required_if=Backend badger"`

	// SecretKey is a base64 encoded 32 byte key. When set, stored values are
	// sealed with NaCl secretbox.
	SecretKey string `koanf:"secret_key" validate:"omitempty,base64"`
}

// ExportConfig controls the post-sync GeoJSON map export.
type ExportConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir" validate:"required_if=Enabled true"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	PublicURL         string        `koanf:"public_url" validate:"omitempty,url"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// StravaConfigured reports whether OAuth client credentials are present.
func (c *Config) StravaConfigured() bool {
	return c.Strava.ClientID != "" && c.Strava.ClientSecret != ""
}
