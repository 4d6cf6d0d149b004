// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/trailatlas/internal/models"
)

func newInitRegionsCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-regions",
		Short: "Download and parse the LAU and NUTS reference data into the region store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			start := time.Now()
			if err := a.LoadCatalog(ctx, force); err != nil {
				return fmt.Errorf("load region catalog: %w", err)
			}

			counts, err := a.Catalog.Counts(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Region catalog ready in %s\n", time.Since(start).Round(time.Millisecond))
			for _, class := range models.Classifications {
				fmt.Fprintf(out, "  %-6s %8d\n", class.Key(), counts[class.Key()])
			}
			fmt.Fprintf(out, "  %-6s %8d\n", "mapping", counts["mapping"])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-parse the reference data even when the store is complete")
	return cmd
}
