// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/trailatlas/internal/ledger"
	"github.com/tomtom215/trailatlas/internal/models"
)

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the region store, activity counts and visited totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			a, err := c.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			fmt.Fprintf(out, "Trailatlas Status\n")
			fmt.Fprintf(out, "=================\n")

			initialized, err := a.Catalog.IsInitialized(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Region catalog:   %s\n", map[bool]string{true: "loaded", false: "empty"}[initialized])

			switch athlete, err := a.Strava.Athlete(ctx); {
			case !a.Strava.Connected(ctx):
				fmt.Fprintf(out, "Strava:           not connected\n")
			case err == nil && athlete.Name != "":
				fmt.Fprintf(out, "Strava:           connected as %s\n", athlete.Name)
			default:
				fmt.Fprintf(out, "Strava:           connected\n")
			}

			stats, err := a.Ledger.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Activities:       %d (%d with track, %d without, %d pending, %d attributed)\n",
				stats.Total, stats.WithTrack, stats.NoTrack, stats.NotFetched, stats.Attributed)

			last, err := a.Ledger.GetMeta(ctx, ledger.MetaLastSync)
			switch {
			case errors.Is(err, ledger.ErrNotFound):
				last = "never"
			case err != nil:
				return err
			}
			fmt.Fprintf(out, "Last sync:        %s\n", last)

			if !initialized {
				return nil
			}
			if err := a.Catalog.Warm(ctx); err != nil {
				return err
			}
			totals, err := a.Ledger.AllTotals(ctx, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nVisited Regions\n")
			fmt.Fprintf(out, "---------------\n")
			for _, class := range models.Classifications {
				t := totals[class.Key()]
				fmt.Fprintf(out, "  %-6s %6d / %d\n", class.Key(), t.Visited, t.Total)
			}
			return nil
		},
	}
}
