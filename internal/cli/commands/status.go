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
	"strings"

	"github.com/spf13/cobra"
)

// NewStatusCommand returns the `duckpipe status` command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <analysis_id>",
		Short: "Show freshness and dependency info for an analysis",
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

			status, err := p.Status(ctx, conn, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", status.AnalysisID)
			fmt.Fprintf(out, "  stale:           %v\n", status.IsStale)
			fmt.Fprintf(out, "  last run at:     %s\n", status.LastRunAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "  last run status: %s\n", status.LastRunStatus)
			fmt.Fprintf(out, "  depends on:      %s\n", strings.Join(status.DependsOn, ", "))
			fmt.Fprintf(out, "  depended on by:  %s\n", strings.Join(status.DependedBy, ", "))
			return nil
		},
	}
}
