// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package config defines the duckpipe project configuration schema and
// helpers for loading and validating it.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist at the
// given path.
var ErrConfigNotFound = errors.New("duckpipe config not found")

// Config represents the top-level duckpipe project configuration.
type Config struct {
	Project   ProjectConfig   `yaml:"project"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProjectConfig describes project-level settings.
type ProjectConfig struct {
	Name string `yaml:"name"`
}

// MetadataConfig describes where analysis definitions are stored on disk.
type MetadataConfig struct {
	Dir string `yaml:"dir"`
}

// WarehouseConfig describes how to reach the warehouse connection.
type WarehouseConfig struct {
	ConnectionEnv string `yaml:"connection_env"`
	Driver        string `yaml:"driver"`
}

// LoggingConfig describes logging verbosity.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfigPath returns the default config path for the current working
// directory.
func DefaultConfigPath() string {
	return "duckpipe.yml"
}

// Exists reports whether a config file exists at the given path.
// It returns (false, nil) if the file does not exist.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir(), nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}

// Load reads and validates the config from the given path.
//
// It returns ErrConfigNotFound if the file does not exist.
func Load(path string) (*Config, error) {
	exists, err := Exists(path)
	if err != nil {
		return nil, fmt.Errorf("checking config existence: %w", err)
	}

	if !exists {
		return nil, ErrConfigNotFound
	}

	// nolint:gosec // G304: reading config file from user-specified path is expected behavior
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{
		Metadata:  MetadataConfig{Dir: "analyses"},
		Warehouse: WarehouseConfig{Driver: "duckdb"},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Project.Name == "" {
		return errors.New("config: project.name must be non-empty")
	}

	if cfg.Metadata.Dir == "" {
		return errors.New("config: metadata.dir must be non-empty")
	}

	if cfg.Warehouse.ConnectionEnv == "" {
		return errors.New("config: warehouse.connection_env must be non-empty")
	}

	if cfg.Warehouse.Driver == "" {
		return errors.New("config: warehouse.driver must be non-empty")
	}

	return nil
}
