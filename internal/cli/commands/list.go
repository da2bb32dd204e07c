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

	"github.com/spf13/cobra"
)

// NewListCommand returns the `duckpipe list` command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setupPipeline(cmd)
			if err != nil {
				return err
			}

			all, err := p.List()
			if err != nil {
				return err
			}

			sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
			for _, a := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %-10s %s\n", a.ID, a.Materialize, a.Name)
			}
			return nil
		},
	}
}
