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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func withConfig(t *testing.T, metadataDir string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "duckpipe.yml")
	contents := "project:\n  name: test\nmetadata:\n  dir: " + metadataDir + "\nwarehouse:\n  connection_env: DUCKPIPE_DB_URL\n  driver: duckdb\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRegisterAndListCommands(t *testing.T) {
	metaDir := filepath.Join(t.TempDir(), "analyses")
	configPath := withConfig(t, metaDir)

	analysisPath := filepath.Join(t.TempDir(), "revenue.yaml")
	analysisYAML := "id: revenue\nname: Revenue\nsql: SELECT 1 AS x\nmaterialize: table\n"
	if err := os.WriteFile(analysisPath, []byte(analysisYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	regCmd := NewRegisterCommand()
	regCmd.Flags().StringP("config", "c", "", "path to duckpipe.yml")
	regCmd.Flags().Set("config", configPath)
	var out bytes.Buffer
	regCmd.SetOut(&out)

	if err := regCmd.RunE(regCmd, []string{analysisPath}); err != nil {
		t.Fatalf("RunE register: %v", err)
	}
	if !strings.Contains(out.String(), "Registered revenue") {
		t.Fatalf("register output = %q", out.String())
	}

	listCmd := NewListCommand()
	listCmd.Flags().StringP("config", "c", "", "path to duckpipe.yml")
	listCmd.Flags().Set("config", configPath)
	out.Reset()
	listCmd.SetOut(&out)

	if err := listCmd.RunE(listCmd, nil); err != nil {
		t.Fatalf("RunE list: %v", err)
	}
	if !strings.Contains(out.String(), "revenue") {
		t.Fatalf("list output = %q, want to contain 'revenue'", out.String())
	}
}
