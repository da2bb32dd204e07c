// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package memwarehouse is an in-memory warehouse.Conn used only by tests.
// It is not a SQL engine: it recognizes the specific statement shapes the
// planner, executor, and pipeline packages emit (schema bootstrap, the
// run_history/run_state lifecycle, materialization statements) and tracks
// just enough state to make those packages' orchestration logic
// observable without a real warehouse.
package memwarehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"duckpipe/pkg/warehouse"
)

type historyRow struct {
	runID        string
	analysisID   string
	startedAt    time.Time
	finishedAt   sql.NullTime
	status       string
	rowsAffected sql.NullInt64
	errMsg       sql.NullString
	durationMs   sql.NullInt64
}

type stateRow struct {
	analysisID    string
	lastRunID     string
	lastRunAt     time.Time
	lastRunStatus string
	lastRunError  string
}

// Conn is an in-memory double for warehouse.Conn. tables maps a table's
// lowercased name to its current row count; a present key (even with count
// 0) means the table exists.
type Conn struct {
	mu      sync.Mutex
	tables  map[string]int64
	history []*historyRow
	state   map[string]*stateRow
}

var _ warehouse.Conn = (*Conn)(nil)

// New returns an empty in-memory warehouse.
func New() *Conn {
	return &Conn{
		tables: map[string]int64{},
		state:  map[string]*stateRow{},
	}
}

// A statement containing the literal token FORCE_FAIL always errors; tests
// use this to exercise failure-propagation paths without a real warehouse.

// SeedRunState lets a test pre-populate run_state, as if analysisID had
// already run at lastRunAt, without going through Execute.
func (c *Conn) SeedRunState(analysisID string, lastRunAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[analysisID] = &stateRow{analysisID: analysisID, lastRunAt: lastRunAt, lastRunStatus: "success"}
	c.tables[strings.ToLower("analysis."+analysisID)] = 1
}

func (c *Conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := strings.TrimSpace(query)

	switch {
	case strings.Contains(q, "FORCE_FAIL"):
		return 0, fmt.Errorf("memwarehouse: forced failure")

	case strings.HasPrefix(q, "CREATE SCHEMA IF NOT EXISTS"):
		return 0, nil

	case strings.HasPrefix(q, "CREATE TABLE IF NOT EXISTS "+warehouse.TableRunHistory):
		return 0, nil

	case strings.HasPrefix(q, "CREATE TABLE IF NOT EXISTS "+warehouse.TableRunState):
		return 0, nil

	case strings.HasPrefix(q, "INSERT INTO "+warehouse.TableRunHistory):
		return c.insertRunHistory(args)

	case strings.HasPrefix(q, "UPDATE "+warehouse.TableRunHistory):
		return c.updateRunHistory(args)

	case strings.HasPrefix(q, "INSERT INTO "+warehouse.TableRunState):
		return c.upsertRunState(args)

	case strings.HasPrefix(q, "SELECT 1 FROM ") && strings.HasSuffix(q, "LIMIT 0"):
		table := between(q, "SELECT 1 FROM ", " LIMIT 0")
		if _, ok := c.tables[strings.ToLower(table)]; ok {
			return 0, nil
		}
		return 0, fmt.Errorf("table %s does not exist", table)

	case strings.HasPrefix(q, "CREATE TABLE IF NOT EXISTS "):
		table := strings.ToLower(between(q, "CREATE TABLE IF NOT EXISTS ", " AS SELECT"))
		if _, ok := c.tables[table]; !ok {
			c.tables[table] = 0
		}
		return 0, nil

	case strings.HasPrefix(q, "CREATE OR REPLACE VIEW "):
		table := between(q, "CREATE OR REPLACE VIEW ", " AS ")
		c.tables[strings.ToLower(table)] = 1
		return 1, nil

	case strings.HasPrefix(q, "CREATE OR REPLACE TABLE "):
		table := between(q, "CREATE OR REPLACE TABLE ", " AS ")
		c.tables[strings.ToLower(table)] = 1
		return 1, nil

	case strings.HasPrefix(q, "INSERT INTO "):
		table := strings.ToLower(between(q, "INSERT INTO ", " "))
		c.tables[table] = c.tables[table] + 1
		return 1, nil

	case strings.HasPrefix(q, "COPY ("):
		return 0, nil

	default:
		return 0, nil
	}
}

func (c *Conn) Query(ctx context.Context, query string, args ...any) (warehouse.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := strings.TrimSpace(query)

	if strings.HasPrefix(q, "SELECT run_id") && strings.Contains(q, warehouse.TableRunHistory) {
		analysisID, _ := args[0].(string)
		limit := 0
		if len(args) > 1 {
			limit, _ = args[1].(int)
		}
		var rows []*historyRow
		for i := len(c.history) - 1; i >= 0; i-- {
			if c.history[i].analysisID == analysisID {
				rows = append(rows, c.history[i])
			}
		}
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
		return &historyRows{rows: rows}, nil
	}

	// Anything else (e.g. a preview query) is treated as returning no rows:
	// memwarehouse does not evaluate arbitrary SQL.
	return &emptyRows{}, nil
}

func (c *Conn) QueryRow(ctx context.Context, query string, args ...any) warehouse.Row {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := strings.TrimSpace(query)

	if strings.HasPrefix(q, "SELECT last_run_at FROM "+warehouse.TableRunState) {
		analysisID, _ := args[0].(string)
		s, ok := c.state[analysisID]
		if !ok {
			return &errRow{err: sql.ErrNoRows}
		}
		return &valuesRow{values: []any{s.lastRunAt}}
	}

	if strings.HasPrefix(q, "SELECT last_run_id") && strings.Contains(q, warehouse.TableRunState) {
		analysisID, _ := args[0].(string)
		s, ok := c.state[analysisID]
		if !ok {
			return &errRow{err: sql.ErrNoRows}
		}
		return &valuesRow{values: []any{s.lastRunID, s.lastRunAt, s.lastRunStatus, s.lastRunError}}
	}

	if strings.HasPrefix(q, "SELECT COUNT(*) FROM ") {
		table := strings.ToLower(strings.TrimPrefix(q, "SELECT COUNT(*) FROM "))
		count, ok := c.tables[table]
		if !ok {
			return &errRow{err: fmt.Errorf("table %s does not exist", table)}
		}
		return &valuesRow{values: []any{count}}
	}

	return &errRow{err: sql.ErrNoRows}
}

func (c *Conn) insertRunHistory(args []any) (int64, error) {
	row := &historyRow{
		runID:      args[0].(string),
		analysisID: args[1].(string),
		startedAt:  args[2].(time.Time),
		status:     args[3].(string),
	}
	c.history = append(c.history, row)
	return 1, nil
}

func (c *Conn) updateRunHistory(args []any) (int64, error) {
	finishedAt := args[0].(time.Time)
	status := args[1].(string)
	rowsAffected := args[2].(int64)
	errMsg := args[3]
	durationMs := args[4].(int64)
	runID := args[5].(string)

	for _, row := range c.history {
		if row.runID == runID {
			row.finishedAt = sql.NullTime{Time: finishedAt, Valid: true}
			row.status = status
			row.rowsAffected = sql.NullInt64{Int64: rowsAffected, Valid: true}
			if errMsg != nil {
				row.errMsg = sql.NullString{String: errMsg.(string), Valid: true}
			}
			row.durationMs = sql.NullInt64{Int64: durationMs, Valid: true}
			return 1, nil
		}
	}
	return 0, nil
}

func (c *Conn) upsertRunState(args []any) (int64, error) {
	analysisID := args[0].(string)
	runID := args[1].(string)
	lastRunAt := args[2].(time.Time)
	status := args[3].(string)
	errMsg := ""
	if args[4] != nil {
		errMsg = args[4].(string)
	}

	c.state[analysisID] = &stateRow{
		analysisID:    analysisID,
		lastRunID:     runID,
		lastRunAt:     lastRunAt,
		lastRunStatus: status,
		lastRunError:  errMsg,
	}
	return 1, nil
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:j])
}

type valuesRow struct {
	values []any
}

func (r *valuesRow) Scan(dest ...any) error {
	for i, d := range dest {
		if i >= len(r.values) {
			break
		}
		if err := assign(d, r.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func assign(dest, value any) error {
	switch d := dest.(type) {
	case *sql.NullTime:
		if t, ok := value.(time.Time); ok {
			*d = sql.NullTime{Time: t, Valid: true}
		}
	case *time.Time:
		if t, ok := value.(time.Time); ok {
			*d = t
		}
	case *string:
		if s, ok := value.(string); ok {
			*d = s
		}
	case *sql.NullString:
		if s, ok := value.(string); ok {
			*d = sql.NullString{String: s, Valid: true}
		}
	case *int64:
		if n, ok := value.(int64); ok {
			*d = n
		}
	default:
		return fmt.Errorf("memwarehouse: cannot scan %T into %T", value, dest)
	}
	return nil
}

type errRow struct{ err error }

func (r *errRow) Scan(dest ...any) error { return r.err }

type emptyRows struct{}

func (r *emptyRows) Next() bool                { return false }
func (r *emptyRows) Scan(dest ...any) error    { return sql.ErrNoRows }
func (r *emptyRows) Columns() ([]string, error) { return nil, nil }
func (r *emptyRows) Err() error                 { return nil }
func (r *emptyRows) Close() error               { return nil }

type historyRows struct {
	rows []*historyRow
	pos  int
}

func (r *historyRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *historyRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	values := []any{row.runID, row.analysisID, row.startedAt, row.finishedAt, row.status, row.rowsAffected, row.errMsg, row.durationMs}
	for i, d := range dest {
		if i >= len(values) {
			break
		}
		switch dd := d.(type) {
		case *string:
			*dd = values[i].(string)
		case *time.Time:
			*dd = values[i].(time.Time)
		case *sql.NullTime:
			*dd = values[i].(sql.NullTime)
		case *sql.NullInt64:
			*dd = values[i].(sql.NullInt64)
		case *sql.NullString:
			*dd = values[i].(sql.NullString)
		default:
			return fmt.Errorf("memwarehouse: cannot scan history column %d into %T", i, d)
		}
	}
	return nil
}

func (r *historyRows) Columns() ([]string, error) {
	return []string{"run_id", "analysis_id", "started_at", "finished_at", "status", "rows_affected", "error", "duration_ms"}, nil
}

func (r *historyRows) Err() error   { return nil }
func (r *historyRows) Close() error { return nil }
