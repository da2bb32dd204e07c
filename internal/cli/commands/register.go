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
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"duckpipe/pkg/analysis"
	"duckpipe/pkg/logging"
)

// NewRegisterCommand returns the `duckpipe register` command.
func NewRegisterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <file.yaml>",
		Short: "Register an analysis definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading analysis file: %w", err)
			}

			var a analysis.Analysis
			if err := yaml.Unmarshal(data, &a); err != nil {
				return fmt.Errorf("parsing analysis file: %w", err)
			}
			if a.ID == "" {
				return fmt.Errorf("analysis file %s is missing an id", args[0])
			}

			p, _, err := setupPipeline(cmd)
			if err != nil {
				return err
			}

			logger := commandLogger(cmd)

			if err := p.Register(&a); err != nil {
				logger.Error("register failed", logging.NewField("analysis_id", a.ID), logging.NewField("error", err.Error()))
				return fmt.Errorf("registering %s: %w", a.ID, err)
			}

			logger.Info("registered analysis",
				logging.NewField("analysis_id", a.ID),
				logging.NewField("materialize", string(a.Materialize)),
				logging.NewField("depends_on", len(a.DependsOn)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (depends_on: %d)\n", a.ID, len(a.DependsOn))
			return nil
		},
	}

	return cmd
}
