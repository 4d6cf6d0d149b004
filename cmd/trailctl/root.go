// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/trailatlas/internal/app"
	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/logging"
)

var errCatalogEmpty = errors.New("region catalog is empty; run trailctl init-regions first")

// cli carries what the commands share. Tests replace loadConfig and
// appOptions to avoid the environment and the network.
type cli struct {
	loadConfig func() (*config.Config, error)
	appOptions []app.Option

	verbose bool
	cfg     *config.Config
}

func defaultCLI() *cli {
	return &cli{loadConfig: config.Load}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "trailctl",
		Short:        "Administer Trailatlas stores, syncs and the region catalog",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			c.cfg = cfg

			level := cfg.Logging.Level
			if c.verbose {
				level = "debug"
			}
			logging.Init(logging.Config{Level: level, Format: "console", Timestamp: true, Output: cmd.ErrOrStderr()})
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newInitRegionsCmd(c),
		newSyncCmd(c),
		newResetCmd(c),
		newStatusCmd(c),
	)
	return root
}

// open assembles the application for one command.
func (c *cli) open() (*app.App, error) {
	return app.Open(c.cfg, c.appOptions...)
}

// warmCatalog makes an already loaded catalog usable without touching the
// reference source.
func warmCatalog(ctx context.Context, a *app.App) error {
	ok, err := a.Catalog.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errCatalogEmpty
	}
	return a.Catalog.Warm(ctx)
}
