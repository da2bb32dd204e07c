// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package planner builds an ExecutionPlan for an Analysis: it resolves
// transitive dependencies, orders them topologically, and decides which
// steps actually need to run based on freshness against the warehouse's
// run_state table.
package planner

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"duckpipe/internal/sqlcompile"
	"duckpipe/pkg/analysis"
	"duckpipe/pkg/duckerr"
	"duckpipe/pkg/warehouse"
)

// Action is the disposition of a single plan step.
type Action string

const (
	ActionRun  Action = "run"
	ActionSkip Action = "skip"
	ActionFail Action = "fail"
)

// Step describes what will happen to a single analysis when the plan runs.
type Step struct {
	AnalysisID  string
	Action      Action
	Reason      string
	CompiledSQL string
	BoundParams []any
	TargetTable string
	Operation   string
}

// IsRunnable reports whether this step actually executes SQL.
func (s Step) IsRunnable() bool {
	return s.Action == ActionRun
}

// Plan is the ordered, compiled set of steps needed to bring the target
// analysis up to date.
type Plan struct {
	TargetID  string
	Steps     []Step
	Params    map[string]any
	CreatedAt time.Time
}

// StepCount returns the total number of steps in the plan.
func (p *Plan) StepCount() int { return len(p.Steps) }

// RunnableCount returns the number of steps that will actually execute.
func (p *Plan) RunnableCount() int {
	n := 0
	for _, s := range p.Steps {
		if s.IsRunnable() {
			n++
		}
	}
	return n
}

// GetRunnableSteps returns the steps that will actually execute, in order.
func (p *Plan) GetRunnableSteps() []Step {
	out := make([]Step, 0, len(p.Steps))
	for _, s := range p.Steps {
		if s.IsRunnable() {
			out = append(out, s)
		}
	}
	return out
}

// WillModifyTables reports whether executing this plan writes to the
// warehouse at all.
func (p *Plan) WillModifyTables() bool {
	return p.RunnableCount() > 0
}

// Summary renders a short human-readable description of the plan, suitable
// for CLI output or a dry-run confirmation prompt.
func (p *Plan) Summary() string {
	out := fmt.Sprintf("Plan for %s (%d step(s), %d runnable):\n", p.TargetID, p.StepCount(), p.RunnableCount())
	for _, s := range p.Steps {
		switch s.Action {
		case ActionRun:
			out += fmt.Sprintf("  [RUN]  %s: %s (%s)\n", s.AnalysisID, s.Operation, s.Reason)
		case ActionSkip:
			out += fmt.Sprintf("  [SKIP] %s: %s\n", s.AnalysisID, s.Reason)
		case ActionFail:
			out += fmt.Sprintf("  [FAIL] %s: %s\n", s.AnalysisID, s.Reason)
		}
	}
	return out
}

// Store is the subset of storage.Store the planner needs. It is declared
// locally to avoid an import cycle with pkg/storage's consumers.
type Store interface {
	Get(id string) (*analysis.Analysis, error)
}

// Collect returns the transitive closure of analysis-kind dependencies of
// targetID (targetID included), via depth-first traversal of depends_on.
func Collect(store Store, targetID string) ([]string, error) {
	visited := map[string]bool{}
	var order []string

	var visit func(id string) error
	visit = func(id string) error {
		if visited[id] {
			return nil
		}
		visited[id] = true

		a, err := store.Get(id)
		if err != nil {
			return err
		}
		if a == nil {
			// Referenced analysis doesn't exist locally; it may be an
			// external source misclassified as an analysis dependency.
			// Skip it rather than failing the whole collection.
			return nil
		}

		for _, dep := range a.AnalysisDependencies() {
			if err := visit(dep.Name); err != nil {
				return err
			}
		}
		order = append(order, id)
		return nil
	}

	if err := visit(targetID); err != nil {
		return nil, err
	}
	return order, nil
}

// TopoSort orders ids so that every analysis appears after the analyses it
// depends on. It returns a *duckerr.Error with Kind CircularDependency if
// the dependency graph among ids contains a cycle.
func TopoSort(store Store, ids []string) ([]string, error) {
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	graph := make(map[string][]string, len(ids))
	inDegree := make(map[string]int, len(ids))
	for _, id := range ids {
		inDegree[id] = 0
	}

	for _, id := range ids {
		a, err := store.Get(id)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, duckerr.AnalysisNotFound(id)
		}
		for _, dep := range a.AnalysisDependencies() {
			if !idSet[dep.Name] {
				continue
			}
			graph[dep.Name] = append(graph[dep.Name], id)
			inDegree[id]++
		}
	}

	// Stable Kahn's algorithm: process the zero-indegree node that comes
	// first in ids each round, so ties keep the order ids were given in.
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	var ready []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var order []string
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, n := range graph[next] {
			inDegree[n]--
			if inDegree[n] == 0 {
				ready = insertSorted(ready, n, pos)
			}
		}
	}

	if len(order) != len(ids) {
		var cycle []string
		for _, id := range ids {
			if inDegree[id] > 0 {
				cycle = append(cycle, id)
			}
		}
		sort.Strings(cycle)
		return nil, duckerr.CircularDependency(cycle)
	}

	return order, nil
}

func insertSorted(sorted []string, v string, pos map[string]int) []string {
	i := sort.Search(len(sorted), func(k int) bool { return pos[sorted[k]] > pos[v] })
	sorted = append(sorted, "")
	copy(sorted[i+1:], sorted[i:])
	sorted[i] = v
	return sorted
}

// lastRunAt returns the last_run_at recorded for analysisID in run_state,
// and whether a row exists at all.
func lastRunAt(ctx context.Context, conn warehouse.Conn, analysisID string) (time.Time, bool, error) {
	var t sql.NullTime
	row := conn.QueryRow(ctx, "SELECT last_run_at FROM "+warehouse.TableRunState+" WHERE analysis_id = $1", analysisID)
	if err := row.Scan(&t); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("reading run state for %s: %w", analysisID, err)
	}
	if !t.Valid {
		return time.Time{}, false, nil
	}
	return t.Time, true, nil
}

// isStale reports whether a needs to (re)run: either it has never run, or
// one of its analysis-kind dependencies has a more recent last_run_at.
func isStale(ctx context.Context, conn warehouse.Conn, a *analysis.Analysis) (bool, error) {
	selfLast, ok, err := lastRunAt(ctx, conn, a.ID)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	for _, dep := range a.AnalysisDependencies() {
		depLast, ok, err := lastRunAt(ctx, conn, dep.Name)
		if err != nil {
			return false, err
		}
		if ok && depLast.After(selfLast) {
			return true, nil
		}
	}
	return false, nil
}

var operationNames = map[analysis.Materialize]string{
	analysis.MaterializeView:    "CREATE OR REPLACE VIEW",
	analysis.MaterializeTable:   "CREATE OR REPLACE TABLE",
	analysis.MaterializeAppend:  "INSERT INTO",
	analysis.MaterializeParquet: "COPY TO FILE",
	analysis.MaterializePreview: "PREVIEW",
}

// Compile resolves targetID's dependency set, orders it, and decides the
// action for each step. If conn is nil, freshness is not checked and every
// step runs (the caller has no warehouse to check history against). If
// force is true, every step runs regardless of freshness. Only the target
// analysis receives params; dependency steps always compile with no
// parameters.
func Compile(ctx context.Context, store Store, conn warehouse.Conn, targetID string, params map[string]any, force bool) (*Plan, error) {
	ids, err := Collect(store, targetID)
	if err != nil {
		return nil, err
	}
	ordered, err := TopoSort(store, ids)
	if err != nil {
		return nil, err
	}

	plan := &Plan{TargetID: targetID, Params: params}

	for _, id := range ordered {
		a, err := store.Get(id)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, duckerr.AnalysisNotFound(id)
		}

		action := ActionRun
		reason := "no freshness check"
		switch {
		case force:
			reason = "forced"
		case conn == nil:
			reason = "no freshness check"
		default:
			stale, err := isStale(ctx, conn, a)
			if err != nil {
				return nil, err
			}
			if stale {
				action, reason = ActionRun, "stale"
			} else {
				action, reason = ActionSkip, "already fresh"
			}
		}

		step := Step{
			AnalysisID:  id,
			Action:      action,
			Reason:      reason,
			TargetTable: a.ResultTable(),
			Operation:   operationNames[a.Materialize],
		}

		if action == ActionRun {
			var stepParams map[string]any
			if id == targetID {
				stepParams = params
			}
			compiledSQL, boundParams, err := sqlcompile.Compile(a.SQL, a.Materialize, a.ResultTable(), stepParams)
			if err != nil {
				return nil, err
			}
			step.CompiledSQL = compiledSQL
			step.BoundParams = boundParams
		}

		plan.Steps = append(plan.Steps, step)
	}

	return plan, nil
}
