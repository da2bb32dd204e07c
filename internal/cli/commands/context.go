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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"duckpipe/pkg/config"
	"duckpipe/pkg/logging"
	"duckpipe/pkg/pipeline"
	"duckpipe/pkg/storage"
	"duckpipe/pkg/warehouse"
	"duckpipe/pkg/warehouse/pgxconn"
)

// commandLogger builds a logger honoring the --verbose persistent flag,
// scoped with a command field so multi-command output can be told apart.
func commandLogger(cmd *cobra.Command) logging.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return logging.NewLogger(verbose).WithFields(logging.NewField("command", cmd.Name()))
}

// loadConfig resolves the --config flag (falling back to config.DefaultConfigPath)
// and loads it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// setupPipeline loads the config and returns a Pipeline backed by its
// configured metadata directory.
func setupPipeline(cmd *cobra.Command) (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewFileStore(cfg.Metadata.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening metadata store: %w", err)
	}

	return pipeline.New(store), cfg, nil
}

// openWarehouse opens a warehouse connection using the URL named by
// cfg.Warehouse.ConnectionEnv. If that environment variable is unset, it
// returns a nil Conn and no error: freshness checks are skipped and every
// step runs, matching planner.Compile's no-connection behavior.
func openWarehouse(ctx context.Context, cfg *config.Config) (warehouse.Conn, func(), error) {
	dbURL := os.Getenv(cfg.Warehouse.ConnectionEnv)
	if dbURL == "" {
		return nil, func() {}, nil
	}

	conn, err := pgxconn.Open(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to warehouse via %s: %w", cfg.Warehouse.ConnectionEnv, err)
	}
	return conn, func() { _ = conn.Close() }, nil
}

// parseParams turns repeated --param key=value flags into a parameter map.
func parseParams(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	params := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q, want key=value", kv)
		}
		params[key] = value
	}
	return params, nil
}

// writeFile writes contents to path, creating it if missing.
func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
