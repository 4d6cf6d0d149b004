// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/trailatlas/internal/logging"
)

// Options controls how a DuckDB file is opened.
type Options struct {
	// Path is the database file. ":memory:" opens an in-memory database.
	Path string
	// Threads is the DuckDB worker count; 0 means runtime.NumCPU().
	Threads int
	// MaxMemory is a DuckDB size string such as "1GB". Empty leaves the default.
	MaxMemory string
	// PreserveInsertionOrder trades memory for stable result order.
	PreserveInsertionOrder bool
	// ReadOnly opens the file with access_mode=read_only.
	ReadOnly bool
}

// DB wraps one DuckDB connection pool.
type DB struct {
	conn *sql.DB
	opts Options

	maxConflictRetries int
	conflictDelay      time.Duration
}

// Open opens (creating if needed) the DuckDB file described by opts.
func Open(opts Options) (*DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if opts.Path != ":memory:" {
		dbDir := filepath.Dir(opts.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", connString(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:               conn,
		opts:               opts,
		maxConflictRetries: 3,
		conflictDelay:      50 * time.Millisecond,
	}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database %s: %w", opts.Path, err)
	}

	logging.Debug().Str("path", opts.Path).Bool("read_only", opts.ReadOnly).Msg("Opened DuckDB database")
	return db, nil
}

// connString builds the DuckDB DSN. Extension auto-install and auto-load are
// disabled so startup never reaches out to the network.
func connString(opts Options) string {
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	access := "read_write"
	if opts.ReadOnly {
		access = "read_only"
	}
	preserveOrder := "false"
	if opts.PreserveInsertionOrder {
		preserveOrder = "true"
	}

	path := opts.Path
	if path == ":memory:" {
		path = ""
	}

	dsn := fmt.Sprintf("%s?access_mode=%s&threads=%d&preserve_insertion_order=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, access, threads, preserveOrder)
	if opts.MaxMemory != "" {
		dsn += "&max_memory=" + opts.MaxMemory
	}
	return dsn
}

// configureConnectionPool sets connection pool parameters
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Conn returns the underlying SQL connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.opts.Path
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Checkpoint forces a WAL checkpoint
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close checkpoints and closes the pool.
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	if !db.opts.ReadOnly {
		if err := db.Checkpoint(context.Background()); err != nil {
			logging.Warn().Err(err).Str("path", db.opts.Path).Msg("Checkpoint before close failed")
		}
	}
	return db.conn.Close()
}

// ensureContext creates a context with 30-second timeout if none provided
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}
