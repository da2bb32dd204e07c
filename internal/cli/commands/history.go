// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCommand returns the `duckpipe history` command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <analysis_id>",
		Short: "Show recent run_history entries for an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cfg, err := setupPipeline(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			conn, closeConn, err := openWarehouse(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeConn()
			if conn == nil {
				return fmt.Errorf("warehouse connection not configured: set %s", cfg.Warehouse.ConnectionEnv)
			}

			entries, err := p.GetRunHistory(ctx, conn, args[0], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-10s  started=%s  rows=%d  duration_ms=%d\n",
					e.RunID, e.Status, e.StartedAt.Format("2006-01-02 15:04:05"), e.RowsAffected.Int64, e.DurationMs.Int64)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries to show")

	return cmd
}
