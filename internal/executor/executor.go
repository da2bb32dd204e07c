// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package executor runs a compiled plan step by step against a warehouse
// connection, recording each attempt in the reserved run_history/run_state
// tables so the planner can evaluate freshness on the next Compile.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"duckpipe/internal/planner"
	"duckpipe/pkg/analysis"
	"duckpipe/pkg/duckerr"
	"duckpipe/pkg/warehouse"
)

// Status is the terminal state of a single step execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records the outcome of executing (or skipping) one plan step.
type StepResult struct {
	RunID        string
	AnalysisID   string
	Status       Status
	StartedAt    time.Time
	FinishedAt   time.Time
	RowsAffected int64
	Error        string
	DurationMs   int64
}

func (r StepResult) IsSuccess() bool { return r.Status == StatusSuccess }
func (r StepResult) IsFailed() bool  { return r.Status == StatusFailed }
func (r StepResult) IsSkipped() bool { return r.Status == StatusSkipped }

// Result is the outcome of executing an entire plan.
type Result struct {
	Plan        *planner.Plan
	Success     bool
	StepResults []StepResult
}

// FailedStep returns the first failed step result, if any.
func (r *Result) FailedStep() *StepResult {
	for i := range r.StepResults {
		if r.StepResults[i].IsFailed() {
			return &r.StepResults[i]
		}
	}
	return nil
}

func (r *Result) TotalDurationMs() int64 {
	var total int64
	for _, s := range r.StepResults {
		total += s.DurationMs
	}
	return total
}

func (r *Result) SuccessCount() int { return r.countStatus(StatusSuccess) }
func (r *Result) FailedCount() int  { return r.countStatus(StatusFailed) }
func (r *Result) SkippedCount() int { return r.countStatus(StatusSkipped) }

func (r *Result) countStatus(s Status) int {
	n := 0
	for _, sr := range r.StepResults {
		if sr.Status == s {
			n++
		}
	}
	return n
}

// Summary renders a short human-readable description of the result.
func (r *Result) Summary() string {
	out := fmt.Sprintf("Execution of %s: success=%v (%d ok, %d failed, %d skipped, %dms)\n",
		r.Plan.TargetID, r.Success, r.SuccessCount(), r.FailedCount(), r.SkippedCount(), r.TotalDurationMs())
	for _, s := range r.StepResults {
		if s.Error != "" {
			out += fmt.Sprintf("  %s: %s (%s)\n", s.AnalysisID, s.Status, s.Error)
		} else {
			out += fmt.Sprintf("  %s: %s\n", s.AnalysisID, s.Status)
		}
	}
	return out
}

// Store is the subset of storage.Store the executor needs to look up an
// analysis's dependency kinds while propagating failures.
type Store interface {
	Get(id string) (*analysis.Analysis, error)
}

// Options controls Execute's failure-propagation behavior.
type Options struct {
	ContinueOnFailure bool
}

// EnsureSchemas creates the analysis and _duckpipe schemas and the
// run_history/run_state tables if they do not already exist. It must be
// called (directly or via Execute) before any step runs.
func EnsureSchemas(ctx context.Context, conn warehouse.Conn) error {
	statements := []string{
		"CREATE SCHEMA IF NOT EXISTS " + warehouse.SchemaAnalysis,
		"CREATE SCHEMA IF NOT EXISTS " + warehouse.SchemaInternal,
		`CREATE TABLE IF NOT EXISTS ` + warehouse.TableRunHistory + ` (
			run_id TEXT PRIMARY KEY,
			analysis_id TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			status TEXT NOT NULL,
			rows_affected BIGINT,
			error TEXT,
			duration_ms INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS ` + warehouse.TableRunState + ` (
			analysis_id TEXT PRIMARY KEY,
			last_run_id TEXT,
			last_run_at TIMESTAMP,
			last_run_status TEXT,
			last_run_error TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return duckerr.Storage("ensuring duckpipe schema", err)
		}
	}
	return nil
}

// Execute runs every step in plan against conn, in order. On the first
// failed step it stops (success=false) unless opts.ContinueOnFailure is
// set, in which case it keeps going and marks any step that depends
// (directly or transitively, via analysis-kind depends_on) on a failed
// analysis as skipped rather than attempting it.
func Execute(ctx context.Context, conn warehouse.Conn, store Store, plan *planner.Plan, opts Options) (*Result, error) {
	if err := EnsureSchemas(ctx, conn); err != nil {
		return nil, err
	}

	result := &Result{Plan: plan, Success: true}
	failedDeps := map[string]bool{}

	for _, step := range plan.Steps {
		if opts.ContinueOnFailure && len(failedDeps) > 0 {
			a, err := store.Get(step.AnalysisID)
			if err != nil {
				return nil, err
			}
			poisoned := false
			if a != nil {
				for _, dep := range a.AnalysisDependencies() {
					if failedDeps[dep.Name] {
						poisoned = true
						break
					}
				}
			}
			if poisoned {
				failedDeps[step.AnalysisID] = true
				result.StepResults = append(result.StepResults, StepResult{
					AnalysisID: step.AnalysisID,
					Status:     StatusSkipped,
					Error:      "Skipped: dependency failed",
				})
				continue
			}
		}

		switch step.Action {
		case planner.ActionSkip:
			result.StepResults = append(result.StepResults, StepResult{
				AnalysisID: step.AnalysisID,
				Status:     StatusSkipped,
			})
			continue
		case planner.ActionFail:
			result.StepResults = append(result.StepResults, StepResult{
				AnalysisID: step.AnalysisID,
				Status:     StatusSkipped,
				Error:      step.Reason,
			})
			continue
		}

		sr, err := executeStep(ctx, conn, step)
		result.StepResults = append(result.StepResults, sr)
		if err != nil || sr.IsFailed() {
			result.Success = false
			failedDeps[step.AnalysisID] = true
			if !opts.ContinueOnFailure {
				break
			}
		}
	}

	return result, nil
}

func executeStep(ctx context.Context, conn warehouse.Conn, step planner.Step) (StepResult, error) {
	runID := uuid.New().String()
	startedAt := time.Now()

	if _, err := conn.Exec(ctx,
		"INSERT INTO "+warehouse.TableRunHistory+" (run_id, analysis_id, started_at, status) VALUES ($1, $2, $3, $4)",
		runID, step.AnalysisID, startedAt, "running",
	); err != nil {
		return StepResult{}, duckerr.Storage("recording run start", err)
	}

	var rowsAffected int64

	if step.Operation == "INSERT INTO" {
		if err := ensureAppendTable(ctx, conn, step); err != nil {
			return recordFailure(ctx, conn, runID, step.AnalysisID, startedAt, err)
		}
	}

	n, execErr := conn.Exec(ctx, step.CompiledSQL, step.BoundParams...)
	if execErr != nil {
		return recordFailure(ctx, conn, runID, step.AnalysisID, startedAt, execErr)
	}
	rowsAffected = n

	if step.Operation == "CREATE OR REPLACE TABLE" || step.Operation == "INSERT INTO" {
		if count, err := countTargetRows(ctx, conn, step.TargetTable); err == nil {
			rowsAffected = count
		}
	}

	finishedAt := time.Now()
	durationMs := finishedAt.Sub(startedAt).Milliseconds()

	if err := recordRunEnd(ctx, conn, runID, step.AnalysisID, finishedAt, "success", rowsAffected, "", durationMs); err != nil {
		return StepResult{}, err
	}

	return StepResult{
		RunID:        runID,
		AnalysisID:   step.AnalysisID,
		Status:       StatusSuccess,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
		RowsAffected: rowsAffected,
		DurationMs:   durationMs,
	}, nil
}

func recordFailure(ctx context.Context, conn warehouse.Conn, runID, analysisID string, startedAt time.Time, cause error) (StepResult, error) {
	finishedAt := time.Now()
	durationMs := finishedAt.Sub(startedAt).Milliseconds()
	msg := cause.Error()

	if err := recordRunEnd(ctx, conn, runID, analysisID, finishedAt, "failed", 0, msg, durationMs); err != nil {
		return StepResult{}, err
	}

	return StepResult{
		RunID:      runID,
		AnalysisID: analysisID,
		Status:     StatusFailed,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Error:      msg,
		DurationMs: durationMs,
	}, nil
}

func recordRunEnd(ctx context.Context, conn warehouse.Conn, runID, analysisID string, finishedAt time.Time, status string, rowsAffected int64, errMsg string, durationMs int64) error {
	if _, err := conn.Exec(ctx,
		"UPDATE "+warehouse.TableRunHistory+" SET finished_at = $1, status = $2, rows_affected = $3, error = $4, duration_ms = $5 WHERE run_id = $6",
		finishedAt, status, rowsAffected, nullIfEmpty(errMsg), durationMs, runID,
	); err != nil {
		return duckerr.Storage("recording run end", err)
	}

	if _, err := conn.Exec(ctx,
		"INSERT INTO "+warehouse.TableRunState+" (analysis_id, last_run_id, last_run_at, last_run_status, last_run_error) VALUES ($1, $2, $3, $4, $5) "+
			"ON CONFLICT (analysis_id) DO UPDATE SET last_run_id = $2, last_run_at = $3, last_run_status = $4, last_run_error = $5",
		analysisID, runID, finishedAt, status, nullIfEmpty(errMsg),
	); err != nil {
		return duckerr.Storage("recording run state", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ensureAppendTable makes sure an append target exists before INSERT runs
// against it, creating it (empty, with the query's result shape) if not.
func ensureAppendTable(ctx context.Context, conn warehouse.Conn, step planner.Step) error {
	_, err := conn.Exec(ctx, "SELECT 1 FROM "+step.TargetTable+" LIMIT 0")
	if err == nil {
		return nil
	}

	// Strip the "INSERT INTO <table> " prefix to recover the bare SELECT so
	// it can be probed for shape without inserting anything.
	innerSelect := step.CompiledSQL
	prefix := "INSERT INTO " + step.TargetTable + " "
	if len(innerSelect) > len(prefix) && innerSelect[:len(prefix)] == prefix {
		innerSelect = innerSelect[len(prefix):]
	}

	createStmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s AS SELECT * FROM (%s) AS _shape WHERE FALSE", step.TargetTable, innerSelect)
	if _, err := conn.Exec(ctx, createStmt); err != nil {
		return duckerr.Execution(step.AnalysisID, err)
	}
	return nil
}

// countTargetRows returns the current row count of table, used to report
// rows_affected for table/append materializations instead of the driver's
// own per-statement affected-rows count, which for INSERT reflects only the
// rows added by that statement, not the table's total.
func countTargetRows(ctx context.Context, conn warehouse.Conn, table string) (int64, error) {
	var count int64
	row := conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+table)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// RunState is the last recorded run outcome for a single analysis.
type RunState struct {
	LastRunID     string
	LastRunAt     time.Time
	LastRunStatus string
	LastRunError  string
}

// GetRunState returns the last recorded run_state row for analysisID, and
// false if the analysis has never run.
func GetRunState(ctx context.Context, conn warehouse.Conn, analysisID string) (RunState, bool, error) {
	var (
		runID, status, errMsg sql.NullString
		lastRunAt             sql.NullTime
	)
	row := conn.QueryRow(ctx,
		"SELECT last_run_id, last_run_at, last_run_status, last_run_error FROM "+warehouse.TableRunState+" WHERE analysis_id = $1",
		analysisID,
	)
	if err := row.Scan(&runID, &lastRunAt, &status, &errMsg); err != nil {
		if err == sql.ErrNoRows {
			return RunState{}, false, nil
		}
		return RunState{}, false, duckerr.Storage("reading run state", err)
	}
	return RunState{
		LastRunID:     runID.String,
		LastRunAt:     lastRunAt.Time,
		LastRunStatus: status.String,
		LastRunError:  errMsg.String,
	}, true, nil
}

// RunHistoryEntry is one row of a GetRunHistory result.
type RunHistoryEntry struct {
	RunID        string
	AnalysisID   string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Status       string
	RowsAffected sql.NullInt64
	Error        sql.NullString
	DurationMs   sql.NullInt64
}

// GetRunHistory returns up to limit most-recent run_history rows for
// analysisID, newest first.
func GetRunHistory(ctx context.Context, conn warehouse.Conn, analysisID string, limit int) ([]RunHistoryEntry, error) {
	rows, err := conn.Query(ctx,
		"SELECT run_id, analysis_id, started_at, finished_at, status, rows_affected, error, duration_ms "+
			"FROM "+warehouse.TableRunHistory+" WHERE analysis_id = $1 ORDER BY started_at DESC LIMIT $2",
		analysisID, limit,
	)
	if err != nil {
		return nil, duckerr.Storage("reading run history", err)
	}
	defer rows.Close()

	var out []RunHistoryEntry
	for rows.Next() {
		var e RunHistoryEntry
		if err := rows.Scan(&e.RunID, &e.AnalysisID, &e.StartedAt, &e.FinishedAt, &e.Status, &e.RowsAffected, &e.Error, &e.DurationMs); err != nil {
			return nil, duckerr.Storage("scanning run history row", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, duckerr.Storage("reading run history", err)
	}
	return out, nil
}
