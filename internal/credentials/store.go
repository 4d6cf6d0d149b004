// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/trailatlas/internal/config"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("credential not found")

// Well-known keys.
const (
	KeyAccessToken  = "strava_access_token"
	KeyRefreshToken = "strava_refresh_token"
	KeyTokenExpiry  = "strava_token_expiry"
	KeyAthleteID    = "strava_athlete_id"
	KeyAthleteName  = "strava_athlete_name"
)

// Backend names accepted by Open.
const (
	BackendSettings = "settings"
	BackendBadger   = "badger"
)

// Store reads and writes credential values.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the store selected by cfg. settings is only used by the
// settings backend and may be nil otherwise.
func Open(cfg config.CredentialsConfig, settings SettingsTable) (Store, error) {
	var (
		backend Store
		err     error
	)
	switch cfg.Backend {
	case "", BackendSettings:
		if settings == nil {
			return nil, errors.New("settings backend requires a settings table")
		}
		backend = NewSettingsStore(settings)
	case BackendBadger:
		backend, err = OpenBadgerStore(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}

	if cfg.SecretKey == "" {
		return backend, nil
	}
	sealer, err := NewSealer(cfg.SecretKey)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return Sealed(backend, sealer), nil
}

// GetAll fetches several keys. Missing keys are left out of the result.
func GetAll(ctx context.Context, s Store, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := s.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
