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

	"duckpipe/pkg/logging"
)

// NewRunCommand returns the `duckpipe run` command.
func NewRunCommand() *cobra.Command {
	var force bool
	var continueOnFailure bool
	var rawParams []string

	cmd := &cobra.Command{
		Use:   "run <analysis_id>",
		Short: "Compile and execute an analysis's dependency chain",
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

			logger := commandLogger(cmd)

			ctx := cmd.Context()
			conn, closeConn, err := openWarehouse(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeConn()
			if conn == nil {
				return fmt.Errorf("warehouse connection not configured: set %s", cfg.Warehouse.ConnectionEnv)
			}

			logger.Info("starting run",
				logging.NewField("target", args[0]),
				logging.NewField("force", force),
				logging.NewField("continue_on_failure", continueOnFailure),
			)

			result, err := p.Run(ctx, conn, args[0], params, force, continueOnFailure)
			if err != nil {
				logger.Error("run aborted", logging.NewField("target", args[0]), logging.NewField("error", err.Error()))
				return err
			}

			for _, sr := range result.StepResults {
				fields := []logging.Field{
					logging.NewField("analysis_id", sr.AnalysisID),
					logging.NewField("status", string(sr.Status)),
					logging.NewField("duration_ms", sr.DurationMs),
				}
				if sr.IsFailed() {
					logger.Error("step failed", append(fields, logging.NewField("error", sr.Error))...)
				} else {
					logger.Debug("step finished", fields...)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			if !result.Success {
				if failed := result.FailedStep(); failed != nil {
					logger.Error("run failed", logging.NewField("target", args[0]), logging.NewField("analysis_id", failed.AnalysisID))
					return fmt.Errorf("run failed at %s: %s", failed.AnalysisID, failed.Error)
				}
				return fmt.Errorf("run failed")
			}
			logger.Info("run completed", logging.NewField("target", args[0]), logging.NewField("success_count", result.SuccessCount()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "recompile every step regardless of freshness")
	cmd.Flags().BoolVar(&continueOnFailure, "continue-on-failure", false, "keep running independent steps after a failure")
	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "bind a query parameter as key=value (repeatable)")

	return cmd
}
