// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package database

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{Path: filepath.Join(t.TempDir(), "nested", "test.duckdb"), Threads: 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var testMigrations = []Migration{
	{Version: 1, Name: "create_items", SQL: `CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`},
	{Version: 2, Name: "seed_items", SQL: `INSERT INTO items VALUES (1, 'first')`},
}

func TestConnString(t *testing.T) {
	t.Parallel()

	got := connString(Options{Path: "/data/x.duckdb", Threads: 2, MaxMemory: "1GB"})
	for _, want := range []string{
		"/data/x.duckdb?access_mode=read_write",
		"threads=2",
		"autoinstall_known_extensions=false",
		"max_memory=1GB",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("connString() = %q, missing %q", got, want)
		}
	}

	ro := connString(Options{Path: ":memory:", ReadOnly: true, Threads: 1})
	if !strings.HasPrefix(ro, "?access_mode=read_only") {
		t.Errorf("in-memory read-only DSN = %q", ro)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(Options{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := db.Migrate(ctx, "test", testMigrations); err != nil {
			t.Fatalf("Migrate run %d: %v", i, err)
		}
	}

	var n int
	if err := db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("items = %d, want 1 (seed migration ran twice?)", n)
	}

	v, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Errorf("SchemaVersion = %d, want 2", v)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.Migrate(ctx, "test", testMigrations[:1]); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items VALUES (7, 'seven')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}

	var n int
	if err := db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rolled back insert is visible: %d rows", n)
	}
}

func TestIsTransactionConflict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("TransactionContext Error: Transaction conflict: cannot update"), true},
		{errors.New("Constraint Error: duplicate key"), false},
	}
	for _, tt := range tests {
		if got := isTransactionConflict(tt.err); got != tt.want {
			t.Errorf("isTransactionConflict(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
