// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomtom215/trailatlas/internal/app"
	"github.com/tomtom215/trailatlas/internal/ledger"
	"github.com/tomtom215/trailatlas/internal/logging"
	syncer "github.com/tomtom215/trailatlas/internal/sync"
)

var errNotConnected = errors.New("no Strava account connected; authorize through the server's /oauth/authorize first")

func newSyncCmd(c *cli) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch new activities and tracks from Strava and attribute them to regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := warmCatalog(ctx, a); err != nil {
				return err
			}
			if !a.Strava.Connected(ctx) {
				return errNotConnected
			}

			res, err := a.Orchestrator(ctx, nil).Sync(ctx, all)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return exportMaps(ctx, cmd.OutOrStdout(), a)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Re-list every activity and re-attribute every stored track")
	return cmd
}

func newResetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset all|activities|derived|regions",
		Short: "Clear user data or the region store and rebuild what can be rebuilt",
		Long: `Reset clears data for one scope:

  derived     visit links and first visited dates; re-attributed from stored tracks
  activities  also activities, tracks and sync metadata; followed by a full sync
  all         also settings except Strava credentials; followed by a full sync
  regions     the reference region store and every derived visit

The full sync after activities and all is skipped when no Strava account is
connected.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"all", "activities", "derived", "regions"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var scope ledger.ResetScope
			if args[0] != "regions" {
				s, err := ledger.ParseResetScope(args[0])
				if err != nil {
					return err
				}
				scope = s
			}

			a, err := c.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if args[0] == "regions" {
				if err := a.ClearCatalog(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "Region store cleared; run trailctl init-regions to reload it")
				return nil
			}

			if err := warmCatalog(ctx, a); err != nil {
				return err
			}

			if scope != ledger.ResetScopeDerived && !a.Strava.Connected(ctx) {
				if err := a.Ledger.Reset(ctx, scope); err != nil {
					return err
				}
				logging.Warn().Msg("No Strava account connected, skipping the follow-up sync")
				fmt.Fprintf(out, "Reset %s complete\n", scope)
				return exportMaps(ctx, out, a)
			}

			res, err := a.Orchestrator(ctx, nil).Reset(ctx, scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Reset %s complete\n", scope)
			printResult(out, res)
			return exportMaps(ctx, out, a)
		},
	}
}

func printResult(w io.Writer, res syncer.Result) {
	fmt.Fprintf(w, "Run %s (%s) finished in %s\n", res.RunID, res.Mode, res.Duration)
	fmt.Fprintf(w, "  activities fetched  %d\n", res.ActivitiesFetched)
	fmt.Fprintf(w, "  tracks fetched      %d\n", res.TracksFetched)
	fmt.Fprintf(w, "  without track       %d\n", res.NoTrack)
	fmt.Fprintf(w, "  attributed          %d\n", res.Attributed)
	fmt.Fprintf(w, "  failed              %d\n", res.Failed)
}

// exportMaps rewrites the GeoJSON exports when they are enabled; the server
// does this from its event bus.
func exportMaps(ctx context.Context, w io.Writer, a *app.App) error {
	paths, err := a.Maps.Export(ctx)
	if err != nil {
		return fmt.Errorf("export maps: %w", err)
	}
	if len(paths) > 0 {
		fmt.Fprintf(w, "Wrote %d map exports\n", len(paths))
	}
	return nil
}
