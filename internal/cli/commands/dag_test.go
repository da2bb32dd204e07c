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

func TestDAGCommandPrintsDependencies(t *testing.T) {
	metaDir := filepath.Join(t.TempDir(), "analyses")
	configPath := withConfig(t, metaDir)

	base := filepath.Join(t.TempDir(), "base.yaml")
	downstream := filepath.Join(t.TempDir(), "downstream.yaml")
	if err := os.WriteFile(base, []byte("id: base\nsql: SELECT 1\nmaterialize: table\n"), 0o644); err != nil {
		t.Fatalf("WriteFile base: %v", err)
	}
	if err := os.WriteFile(downstream, []byte("id: downstream\nsql: SELECT * FROM analysis.base\nmaterialize: table\n"), 0o644); err != nil {
		t.Fatalf("WriteFile downstream: %v", err)
	}

	for _, path := range []string{base, downstream} {
		regCmd := NewRegisterCommand()
		regCmd.Flags().StringP("config", "c", "", "path to duckpipe.yml")
		regCmd.Flags().Set("config", configPath)
		var out bytes.Buffer
		regCmd.SetOut(&out)
		if err := regCmd.RunE(regCmd, []string{path}); err != nil {
			t.Fatalf("RunE register %s: %v", path, err)
		}
	}

	dagCmd := NewDAGCommand()
	dagCmd.Flags().StringP("config", "c", "", "path to duckpipe.yml")
	dagCmd.Flags().Set("config", configPath)
	var out bytes.Buffer
	dagCmd.SetOut(&out)

	if err := dagCmd.RunE(dagCmd, nil); err != nil {
		t.Fatalf("RunE dag: %v", err)
	}
	if !strings.Contains(out.String(), "downstream -> base") {
		t.Fatalf("dag output = %q, want 'downstream -> base'", out.String())
	}
}
