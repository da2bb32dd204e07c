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

	"duckpipe/pkg/config"
)

// NewInitCommand returns the `duckpipe init` command.
func NewInitCommand() *cobra.Command {
	var projectName string
	var connectionEnv string
	var metadataDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Bootstrap duckpipe into the current project",
		Long:  "Writes a minimal duckpipe.yml into the current directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.DefaultConfigPath()
			}

			exists, err := config.Exists(path)
			if err != nil {
				return fmt.Errorf("checking existing config at %s: %w", path, err)
			}
			if exists {
				fmt.Fprintf(cmd.OutOrStdout(), "A duckpipe config file already exists at %s.\n", path)
				return nil
			}

			if projectName == "" {
				projectName = "my_project"
			}
			if connectionEnv == "" {
				connectionEnv = "DUCKPIPE_DB_URL"
			}
			if metadataDir == "" {
				metadataDir = "analyses"
			}

			contents := fmt.Sprintf(
				"project:\n  name: %s\nmetadata:\n  dir: %s\nwarehouse:\n  connection_env: %s\n  driver: duckdb\nlogging:\n  verbose: false\n",
				projectName, metadataDir, connectionEnv,
			)

			if err := writeFile(path, contents); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectName, "name", "", "project name")
	cmd.Flags().StringVar(&connectionEnv, "connection-env", "", "environment variable holding the warehouse connection string")
	cmd.Flags().StringVar(&metadataDir, "metadata-dir", "", "directory analyses are stored in")

	return cmd
}
