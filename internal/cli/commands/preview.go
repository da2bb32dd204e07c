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

// NewPreviewCommand returns the `duckpipe preview` command.
func NewPreviewCommand() *cobra.Command {
	var limit int
	var rawParams []string

	cmd := &cobra.Command{
		Use:   "preview <analysis_id>",
		Short: "Run an analysis's SQL without materializing it, printing a sample of rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cfg, err := setupPipeline(cmd)
			if err != nil {
				return err
			}

			params, err := parseParams(rawParams)
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

			rows, err := p.Preview(ctx, conn, args[0], params, limit)
			if err != nil {
				return err
			}
			defer rows.Close()

			cols, err := rows.Columns()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cols)

			for rows.Next() {
				values := make([]any, len(cols))
				ptrs := make([]any, len(cols))
				for i := range values {
					ptrs[i] = &values[i]
				}
				if err := rows.Scan(ptrs...); err != nil {
					return err
				}
				fmt.Fprintln(out, values)
			}
			return rows.Err()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of rows to print")
	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "bind a query parameter as key=value (repeatable)")

	return cmd
}
