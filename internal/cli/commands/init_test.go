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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitCommandWritesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duckpipe.yml")

	cmd := NewInitCommand()
	// --config is normally a persistent flag on the root command; define it
	// locally here so the command can be exercised in isolation.
	cmd.Flags().StringP("config", "c", "", "path to duckpipe.yml")

	if err := cmd.Flags().Set("config", path); err != nil {
		t.Fatalf("Set config: %v", err)
	}
	if err := cmd.Flags().Set("name", "analytics"); err != nil {
		t.Fatalf("Set name: %v", err)
	}

	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("RunE: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected config written at %s: %v", path, err)
	}
	if !strings.Contains(string(data), "name: analytics") {
		t.Fatalf("config contents = %q, want project name 'analytics'", data)
	}
}

func TestInitCommandNoopsWhenConfigExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duckpipe.yml")
	if err := os.WriteFile(path, []byte("project:\n  name: existing\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cmd := NewInitCommand()
	cmd.Flags().StringP("config", "c", "", "path to duckpipe.yml")
	if err := cmd.Flags().Set("config", path); err != nil {
		t.Fatalf("Set config: %v", err)
	}

	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("RunE: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "existing") {
		t.Fatalf("expected existing config left untouched, got %q", data)
	}
}
