// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package logging provides the zerolog-based structured logger used by every
// Trailatlas component.
//
// A single package-level logger is configured once from main via Init and is
// safe for concurrent use. Components log through the level helpers:
//
//	logging.Info().Int64("activity_id", id).Int("links", n).Msg("Activity attributed")
//	logging.Warn().Err(err).Int64("activity_id", id).Msg("Track fetch failed")
//
// Context helpers carry request, correlation, and sync run identifiers so
// that HTTP handlers and the sync orchestrator emit correlated log lines:
//
//	ctx = logging.ContextWithSyncRunID(ctx, logging.GenerateRequestID())
//	logging.Ctx(ctx).Info().Msg("Sync started")
//
// NewSlogLogger bridges the logger to log/slog for the supervisor tree.
//
// # Configuration
//
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
package logging
