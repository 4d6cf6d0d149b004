// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package testinfra

import (
	"path/filepath"
	"testing"

	"github.com/tomtom215/trailatlas/internal/database"
)

// TempDB opens a DuckDB file under t.TempDir and closes it on cleanup.
func TempDB(t testing.TB, name string) *database.DB {
	t.Helper()
	db, err := database.Open(database.Options{
		Path:    filepath.Join(t.TempDir(), name+".duckdb"),
		Threads: 2,
	})
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
