// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trailatlas/config.yaml",
	"/etc/trailatlas/config.yml",
}

const (
	// ConfigPathEnvVar overrides the config file location.
	ConfigPathEnvVar = "CONFIG_PATH"

	// DotEnvPathEnvVar overrides the .env file location.
	DotEnvPathEnvVar = "DOTENV_PATH"

	envPrefix = "TRAILATLAS_"
)

// Reference dataset locations published by GISCO and Eurostat.
const (
	DefaultLocalUnitsURL  = "https://gisco-services.ec.europa.eu/distribution/v2/lau/geojson/LAU_RG_01M_2024_4326.geojson"
	DefaultStatisticalURL = "https://gisco-services.ec.europa.eu/distribution/v2/nuts/geojson/NUTS_RG_01M_2024_4326.geojson"
	DefaultMappingURL     = "https://ec.europa.eu/eurostat/documents/345175/501971/EU-27-LAU-2024-NUTS-2024.xlsx"
)

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/trailatlas.duckdb",
			ReferencePath:          "/data/regions.duckdb",
			MaxMemory:              "1GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Reference: ReferenceConfig{
			LocalUnitsURL:   DefaultLocalUnitsURL,
			StatisticalURL:  DefaultStatisticalURL,
			MappingURL:      DefaultMappingURL,
			CacheDir:        "/data/reference",
			DownloadTimeout: 10 * time.Minute,
			CountrySheets:   []string{},
			IndexCellSize:   0.25,
		},
		Strava: StravaConfig{
			APIBaseURL: "https://www.strava.com/api/v3",
			AuthURL:    "https://www.strava.com/oauth/authorize",
			TokenURL:   "https://www.strava.com/api/v3/oauth/token",
			PageSize:   200,
			PageDelay:  100 * time.Millisecond,
			TrackDelay: 50 * time.Millisecond,
			Timeout:    30 * time.Second,
		},
		Sync: SyncConfig{
			Interval:      0,
			Pipeline:      false,
			QueueSize:     64,
			RetryAttempts: 3,
			RetryDelay:    2 * time.Second,
		},
		Credentials: CredentialsConfig{
			Backend:    "settings",
			BadgerPath: "/data/credentials",
		},
		Export: ExportConfig{
			Enabled: true,
			Dir:     "/data/maps",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, file, .env and environment.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv exports a .env file into the environment without overriding
// variables that are already set. A missing default file is not an error.
func loadDotEnv() error {
	path := os.Getenv(DotEnvPathEnvVar)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths accept comma separated strings from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"reference.country_sheets",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings keeps the short variable names used by deployments.
var envMappings = map[string]string{
	"duckdb_path":           "database.path",
	"duckdb_reference_path": "database.reference_path",
	"duckdb_max_memory":     "database.max_memory",
	"duckdb_threads":        "database.threads",

	"lau_url":           "reference.local_units_url",
	"nuts_url":          "reference.statistical_url",
	"lau_nuts_mapping":  "reference.mapping_url",
	"reference_cache":   "reference.cache_dir",
	"country_sheets":    "reference.country_sheets",
	"spatial_cell_size": "reference.index_cell_size",
	"reference_timeout": "reference.download_timeout",

	"strava_client_id":     "strava.client_id",
	"strava_client_secret": "strava.client_secret",
	"strava_redirect_url":  "strava.redirect_url",
	"strava_api_url":       "strava.api_base_url",
	"strava_page_size":     "strava.page_size",
	"strava_page_delay":    "strava.page_delay",
	"strava_track_delay":   "strava.track_delay",

	"sync_interval":       "sync.interval",
	"sync_pipeline":       "sync.pipeline",
	"sync_queue_size":     "sync.queue_size",
	"sync_retry_attempts": "sync.retry_attempts",
	"sync_retry_delay":    "sync.retry_delay",
	"sync_on_startup":     "sync.sync_on_startup",

	"credentials_backend":     "credentials.backend",
	"credentials_badger_path": "credentials.badger_path",
	"credentials_secret_key":  "credentials.secret_key",

	"export_enabled": "export.enabled",
	"export_dir":     "export.dir",

	"http_port":           "server.port",
	"http_host":           "server.host",
	"http_timeout":        "server.timeout",
	"public_url":          "server.public_url",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Returning "" tells koanf to skip the variable.
func envTransformFunc(key string) string {
	if strings.HasPrefix(key, envPrefix) {
		path := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		return strings.ReplaceAll(path, "__", ".")
	}
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
