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

// NewCompileCommand returns the `duckpipe compile` command.
func NewCompileCommand() *cobra.Command {
	var force bool
	var rawParams []string

	cmd := &cobra.Command{
		Use:   "compile <analysis_id>",
		Short: "Resolve an analysis's dependencies and print its execution plan",
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

			plan, err := p.Compile(ctx, conn, args[0], params, force)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), plan.Summary())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "recompile every step regardless of freshness")
	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "bind a query parameter as key=value (repeatable)")

	return cmd
}
