// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/database"
	"github.com/tomtom215/trailatlas/internal/models"
)

// ErrNotFound is returned for missing activities, settings and metadata.
var ErrNotFound = errors.New("not found")

// ErrTrackAlreadyFetched is returned when a track outcome is recorded twice.
var ErrTrackAlreadyFetched = errors.New("track already fetched")

// Metadata keys.
const (
	MetaLastSync     = "last_sync"
	MetaLastSyncMode = "last_sync_mode"
)

// RegionDirectory resolves region metadata from the reference catalog.
// *catalog.Catalog satisfies it.
type RegionDirectory interface {
	Lookup(class models.Classification, id string) (*models.Region, bool)
	Count(class models.Classification, country string) int
}

// Store is the user ledger.
type Store struct {
	db     *database.DB
	dir    RegionDirectory
	ownsDB bool
}

// Open opens the user DuckDB file named in cfg.
func Open(cfg *config.Config, dir RegionDirectory) (*Store, error) {
	db, err := database.Open(database.Options{
		Path:                   cfg.Database.Path,
		Threads:                cfg.Database.Threads,
		MaxMemory:              cfg.Database.MaxMemory,
		PreserveInsertionOrder: cfg.Database.PreserveInsertionOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	s, err := New(db, dir)
	if err != nil {
		database.CloseWithLog(db, "user store")
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// New wraps an open database and migrates it. The caller keeps ownership.
func New(db *database.DB, dir RegionDirectory) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := db.Migrate(ctx, "ledger", migrations()); err != nil {
		return nil, fmt.Errorf("migrate user store: %w", err)
	}
	return &Store{db: db, dir: dir}, nil
}

// Close closes the database if Open created it.
func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Ping checks the user store connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetSetting returns a setting value or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	return s.getKV(ctx, "settings", key)
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return s.setKV(ctx, "settings", key, value)
}

// DeleteSetting removes a setting. Missing keys are not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.Conn().ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// GetMeta returns a metadata value or ErrNotFound.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	return s.getKV(ctx, "metadata", key)
}

// SetMeta upserts a metadata value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	return s.setKV(ctx, "metadata", key, value)
}

// table is always one of the two constant names above.
func (s *Store) getKV(ctx context.Context, table, key string) (string, error) {
	var v string
	err := s.db.Conn().QueryRowContext(ctx, `SELECT value FROM `+table+` WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s %q: %w", table, key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s %q: %w", table, key, err)
	}
	return v, nil
}

func (s *Store) setKV(ctx context.Context, table, key, value string) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO `+table+` (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write %s %q: %w", table, key, err)
	}
	return nil
}
