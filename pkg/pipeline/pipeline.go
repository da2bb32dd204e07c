// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package pipeline is duckpipe's public facade: register Analyses, compile
// plans, execute them, and inspect history and freshness, all through one
// entry point.
package pipeline

import (
	"context"
	"strconv"
	"sync"
	"time"

	"duckpipe/internal/executor"
	"duckpipe/internal/planner"
	"duckpipe/internal/sqlcompile"
	"duckpipe/internal/sqlparse"
	"duckpipe/pkg/analysis"
	"duckpipe/pkg/duckerr"
	"duckpipe/pkg/storage"
	"duckpipe/pkg/warehouse"
)

// AnalysisStatus reports an analysis's freshness and its place in the DAG.
type AnalysisStatus struct {
	AnalysisID    string
	IsStale       bool
	LastRunAt     time.Time
	LastRunStatus string
	DependsOn     []string
	DependedBy    []string
}

// Pipeline owns a metadata Store and caches the dependency graph it implies
// between registrations.
type Pipeline struct {
	store storage.Store

	mu      sync.Mutex
	dagOK   bool
	dag     map[string][]string
}

// New returns a Pipeline backed by store.
func New(store storage.Store) *Pipeline {
	return &Pipeline{store: store}
}

// Register saves a, auto-extracting depends_on from its SQL when the
// caller left it empty, and invalidates the cached DAG.
func (p *Pipeline) Register(a *analysis.Analysis) error {
	if err := sqlcompile.ValidateIdentifier(a.ID); err != nil {
		return err
	}

	if len(a.DependsOn) == 0 {
		a.DependsOn = sqlparse.ExtractDependencies(a.SQL)
	}

	if err := p.store.Save(a); err != nil {
		return err
	}

	p.invalidateDAG()
	return nil
}

// Get returns the registered analysis with the given id, or a
// duckerr.KindAnalysisNotFound error if it is not registered.
func (p *Pipeline) Get(id string) (*analysis.Analysis, error) {
	a, err := p.store.Get(id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, duckerr.AnalysisNotFound(id)
	}
	return a, nil
}

// List returns every registered analysis.
func (p *Pipeline) List() ([]*analysis.Analysis, error) {
	return p.store.List()
}

// Delete removes an analysis and invalidates the cached DAG.
func (p *Pipeline) Delete(id string) error {
	if err := p.store.Delete(id); err != nil {
		return err
	}
	p.invalidateDAG()
	return nil
}

// Compile resolves targetID's dependency set and decides which steps need
// to run. If conn is nil, freshness isn't checked and every step runs.
func (p *Pipeline) Compile(ctx context.Context, conn warehouse.Conn, targetID string, params map[string]any, force bool) (*planner.Plan, error) {
	return planner.Compile(ctx, storeAdapter{p.store}, conn, targetID, params, force)
}

// Execute runs every step of plan against conn.
func (p *Pipeline) Execute(ctx context.Context, conn warehouse.Conn, plan *planner.Plan, continueOnFailure bool) (*executor.Result, error) {
	return executor.Execute(ctx, conn, storeAdapter{p.store}, plan, executor.Options{ContinueOnFailure: continueOnFailure})
}

// Run is Compile followed by Execute.
func (p *Pipeline) Run(ctx context.Context, conn warehouse.Conn, targetID string, params map[string]any, force, continueOnFailure bool) (*executor.Result, error) {
	plan, err := p.Compile(ctx, conn, targetID, params, force)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, conn, plan, continueOnFailure)
}

// Status reports freshness, last run outcome, and forward/reverse
// dependencies for analysisID.
func (p *Pipeline) Status(ctx context.Context, conn warehouse.Conn, analysisID string) (*AnalysisStatus, error) {
	a, err := p.Get(analysisID)
	if err != nil {
		return nil, err
	}

	status := &AnalysisStatus{AnalysisID: analysisID}
	for _, dep := range a.AnalysisDependencies() {
		status.DependsOn = append(status.DependsOn, dep.Name)
	}

	state, found, err := executor.GetRunState(ctx, conn, analysisID)
	if err != nil {
		return nil, err
	}
	if found {
		status.LastRunAt = state.LastRunAt
		status.LastRunStatus = state.LastRunStatus
	}

	all, err := p.store.List()
	if err != nil {
		return nil, err
	}
	for _, other := range all {
		for _, dep := range other.AnalysisDependencies() {
			if dep.Name == analysisID {
				status.DependedBy = append(status.DependedBy, other.ID)
			}
		}
	}

	if !found {
		status.IsStale = true
	} else {
		for _, depName := range status.DependsOn {
			depState, ok, err := executor.GetRunState(ctx, conn, depName)
			if err != nil {
				return nil, err
			}
			if ok && depState.LastRunAt.After(state.LastRunAt) {
				status.IsStale = true
				break
			}
		}
	}

	return status, nil
}

// GetRunHistory returns up to limit most recent run_history rows for
// analysisID, newest first.
func (p *Pipeline) GetRunHistory(ctx context.Context, conn warehouse.Conn, analysisID string, limit int) ([]executor.RunHistoryEntry, error) {
	return executor.GetRunHistory(ctx, conn, analysisID, limit)
}

// Preview compiles analysisID in preview mode (no materialization wrap, no
// warehouse writes) and runs it wrapped in a LIMIT, returning the raw rows.
// Preview never writes to run_history/run_state.
func (p *Pipeline) Preview(ctx context.Context, conn warehouse.Conn, analysisID string, params map[string]any, limit int) (warehouse.Rows, error) {
	a, err := p.Get(analysisID)
	if err != nil {
		return nil, err
	}

	bound, args := sqlcompile.BindParameters(a.SQL, params)
	previewSQL := "SELECT * FROM (" + bound + ") AS _preview LIMIT " + strconv.Itoa(limit)
	return conn.Query(ctx, previewSQL, args...)
}

// GetDAG returns the memoized {analysis_id: [dependency_ids]} map, built
// from every registered analysis's analysis-kind dependencies.
func (p *Pipeline) GetDAG() (map[string][]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dagOK {
		return p.dag, nil
	}

	all, err := p.store.List()
	if err != nil {
		return nil, err
	}

	dag := make(map[string][]string, len(all))
	for _, a := range all {
		var deps []string
		for _, d := range a.AnalysisDependencies() {
			deps = append(deps, d.Name)
		}
		dag[a.ID] = deps
	}

	p.dag = dag
	p.dagOK = true
	return dag, nil
}

func (p *Pipeline) invalidateDAG() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dagOK = false
	p.dag = nil
}

// storeAdapter narrows storage.Store down to the Get method planner.Store
// and executor.Store need, so those packages don't import pkg/storage.
type storeAdapter struct {
	store storage.Store
}

func (s storeAdapter) Get(id string) (*analysis.Analysis, error) {
	return s.store.Get(id)
}
