// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Command trailctl administers a Trailatlas installation without the HTTP
// server: it loads the region catalog, runs syncs and resets, and prints the
// current state.
//
//	trailctl init-regions [--force]
//	trailctl sync [--all]
//	trailctl reset all|activities|derived|regions
//	trailctl status
//
// It reads the same configuration as the server. Do not run it against
// stores a running server holds open.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultCLI()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
