// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package cli wires together the duckpipe root Cobra command and global
// CLI options.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"duckpipe/internal/cli/commands"
)

// NewRootCommand constructs the duckpipe root Cobra command.
func NewRootCommand() *cobra.Command {
	version := os.Getenv("DUCKPIPE_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:           "duckpipe",
		Short:         "duckpipe – SQL analysis pipeline engine",
		Long:          "duckpipe turns SQL queries into versioned analyses, resolves their dependencies, and runs them against a warehouse.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "path to duckpipe.yml")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the duckpipe version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "duckpipe version "+version)
		},
	})

	// Registered in lexicographic order by .Use for deterministic help output.
	cmd.AddCommand(commands.NewCompileCommand())
	cmd.AddCommand(commands.NewDAGCommand())
	cmd.AddCommand(commands.NewHistoryCommand())
	cmd.AddCommand(commands.NewInitCommand())
	cmd.AddCommand(commands.NewListCommand())
	cmd.AddCommand(commands.NewPreviewCommand())
	cmd.AddCommand(commands.NewRegisterCommand())
	cmd.AddCommand(commands.NewRunCommand())
	cmd.AddCommand(commands.NewStatusCommand())

	return cmd
}
