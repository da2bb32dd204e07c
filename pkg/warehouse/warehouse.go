// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package warehouse defines the minimal SQL connection contract the
// pipeline executes against, and the reserved namespace it uses to track
// run history and freshness.
package warehouse

import "context"

// Row is a single returned row; Scan behaves like database/sql's Row.Scan.
type Row interface {
	Scan(dest ...any) error
}

// Rows is a forward-only cursor over a query result.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// Conn is the contract a warehouse connection must satisfy. It is
// intentionally small: execute a statement, run a query, run a query
// expected to return at most one row. Implementations may be backed by
// database/sql (see pgxconn) or an in-memory fake for tests.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (rowsAffected int64, err error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Reserved schema and table names the executor manages directly. Callers
// must not materialize an Analysis into this namespace.
const (
	SchemaAnalysis = "analysis"
	SchemaInternal = "_duckpipe"
	TableRunHistory = "_duckpipe.run_history"
	TableRunState   = "_duckpipe.run_state"
)
