// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package storage defines the Analysis metadata store contract.
package storage

import "duckpipe/pkg/analysis"

// Store persists and retrieves registered Analysis documents.
//
// Implementations are free to back this with a filesystem, a database, or
// the warehouse itself; the pipeline facade only depends on this interface.
type Store interface {
	Get(id string) (*analysis.Analysis, error)
	List() ([]*analysis.Analysis, error)
	Save(a *analysis.Analysis) error
	Delete(id string) error
	Exists(id string) (bool, error)
}
