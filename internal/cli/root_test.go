// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package cli

import "testing"

func TestNewRootCommandRegistersSubcommandsInOrder(t *testing.T) {
	cmd := NewRootCommand()

	want := []string{"compile", "dag", "history", "init", "list", "preview", "register", "run", "status", "version"}
	var got []string
	for _, c := range cmd.Commands() {
		got = append(got, c.Name())
	}

	if len(got) != len(want) {
		t.Fatalf("subcommands = %v, want %v", got, want)
	}
	for i, name := range want {
		if got[i] != name {
			t.Fatalf("subcommand[%d] = %q, want %q (full: %v)", i, got[i], name, got)
		}
	}
}

func TestNewRootCommandHasPersistentFlags(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Fatalf("expected --config persistent flag")
	}
	if cmd.PersistentFlags().Lookup("verbose") == nil {
		t.Fatalf("expected --verbose persistent flag")
	}
}
