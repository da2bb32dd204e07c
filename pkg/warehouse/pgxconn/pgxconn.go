// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package pgxconn implements warehouse.Conn over a Postgres-wire-protocol
// connection using database/sql with the pgx driver.
//
// This is the connection the CLI opens for every configured warehouse.driver
// value (the driver setting is not consulted); it is equally suitable for
// DuckDB deployments that expose a Postgres-compatible wire endpoint.
package pgxconn

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"duckpipe/pkg/duckerr"
	"duckpipe/pkg/warehouse"
)

// Conn wraps a *sql.DB opened with the "pgx" driver.
type Conn struct {
	db *sql.DB
}

var _ warehouse.Conn = (*Conn)(nil)

// Open connects to dbURL using the pgx driver and verifies the connection
// with a ping.
func Open(ctx context.Context, dbURL string) (*Conn, error) {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, duckerr.Storage("opening warehouse connection", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, duckerr.Storage("pinging warehouse", err)
	}
	return &Conn{db: db}, nil
}

// Close releases the underlying connection pool.
func (c *Conn) Close() error {
	return c.db.Close()
}

// Exec runs sql and returns the number of rows affected.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some statements (CREATE VIEW, COPY) don't report affected rows;
		// that's not a failure condition.
		return 0, nil
	}
	return n, nil
}

// Query runs sql and returns a forward-only cursor.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (warehouse.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return &rowsAdapter{rows: rows}, nil
}

// QueryRow runs sql and returns a single-row result.
func (c *Conn) QueryRow(ctx context.Context, query string, args ...any) warehouse.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

type rowsAdapter struct {
	rows *sql.Rows
}

func (r *rowsAdapter) Next() bool                  { return r.rows.Next() }
func (r *rowsAdapter) Scan(dest ...any) error       { return r.rows.Scan(dest...) }
func (r *rowsAdapter) Columns() ([]string, error)   { return r.rows.Columns() }
func (r *rowsAdapter) Err() error                   { return r.rows.Err() }
func (r *rowsAdapter) Close() error                 { return r.rows.Close() }
