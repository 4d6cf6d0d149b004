// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package database provides the DuckDB plumbing shared by the two Trailatlas
// stores: the read-mostly reference catalog and the mutable user ledger.
//
// # Overview
//
// Each store owns its own DuckDB file and its own *DB handle. The package
// opens the file with tuned connection options, configures the pool, runs
// versioned migrations, and offers a transaction helper that retries on
// DuckDB write-write conflicts.
//
//   - database.go: lifecycle (Open, Close, Ping, Checkpoint)
//   - migrations.go: versioned schema migrations tracked in schema_migrations
//   - tx.go: WithTx with rollback and conflict retry
//   - errors.go: close helpers and DuckDB error classification
//
// # Usage
//
//	db, err := database.Open(database.Options{Path: cfg.Database.Path})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, "ledger", ledgerMigrations); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// *DB is safe for concurrent use. Writers that must be serialized (the sync
// orchestrator's single writer) enforce that ordering themselves.
package database
