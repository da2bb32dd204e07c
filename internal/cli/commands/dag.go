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
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// NewDAGCommand returns the `duckpipe dag` command.
func NewDAGCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dag",
		Short: "Print the dependency graph between registered analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setupPipeline(cmd)
			if err != nil {
				return err
			}

			dag, err := p.GetDAG()
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(dag))
			for id := range dag {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				deps := append([]string(nil), dag[id]...)
				sort.Strings(deps)
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", id, strings.Join(deps, ", "))
			}
			return nil
		},
	}
}
