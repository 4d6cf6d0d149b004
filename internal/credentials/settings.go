// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package credentials

import (
	"context"
	"errors"

	"github.com/tomtom215/trailatlas/internal/ledger"
)

// SettingsTable is the slice of the user store the settings backend needs.
type SettingsTable interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// SettingsStore keeps credentials in the user store's settings table.
type SettingsStore struct {
	table SettingsTable
}

// NewSettingsStore wraps table.
func NewSettingsStore(table SettingsTable) *SettingsStore {
	return &SettingsStore{table: table}
}

// Get implements Store.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.table.GetSetting(ctx, key)
	if errors.Is(err, ledger.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

// Set implements Store.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	return s.table.SetSetting(ctx, key, value)
}

// Delete implements Store.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	return s.table.DeleteSetting(ctx, key)
}

// Close is a no-op; the user store owns the connection.
func (s *SettingsStore) Close() error { return nil }
