// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package pipeline

import (
	"context"
	"testing"

	"duckpipe/pkg/analysis"
	"duckpipe/pkg/duckerr"
	"duckpipe/pkg/ref"
	"duckpipe/pkg/storage"
	"duckpipe/pkg/warehouse/memwarehouse"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return New(store)
}

func TestRegisterAutoExtractsDependencies(t *testing.T) {
	p := newTestPipeline(t)

	if err := p.Register(&analysis.Analysis{
		ID:          "orders_summary",
		Name:        "Orders Summary",
		SQL:         "SELECT * FROM source.pg_orders",
		Materialize: analysis.MaterializeTable,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := p.Get("orders_summary")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.DependsOn) != 1 || got.DependsOn[0] != (ref.Ref{Kind: ref.Source, Name: "pg_orders"}) {
		t.Fatalf("DependsOn = %+v", got.DependsOn)
	}
}

func TestGetUnregisteredReturnsAnalysisNotFound(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Get("missing")
	if !duckerr.Is(err, duckerr.KindAnalysisNotFound) {
		t.Fatalf("expected AnalysisNotFound, got %v", err)
	}
}

func TestRunEndToEnd(t *testing.T) {
	p := newTestPipeline(t)
	conn := memwarehouse.New()
	ctx := context.Background()

	if err := p.Register(&analysis.Analysis{ID: "base", SQL: "SELECT 1 AS x", Materialize: analysis.MaterializeTable}); err != nil {
		t.Fatalf("Register base: %v", err)
	}
	if err := p.Register(&analysis.Analysis{
		ID:          "downstream",
		SQL:         "SELECT * FROM analysis.base",
		Materialize: analysis.MaterializeTable,
		DependsOn:   []ref.Ref{{Kind: ref.Analysis, Name: "base"}},
	}); err != nil {
		t.Fatalf("Register downstream: %v", err)
	}

	result, err := p.Run(ctx, conn, "downstream", nil, false, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success {
		t.Fatalf("Run() success = false, result = %+v", result)
	}
	if result.SuccessCount() != 2 {
		t.Fatalf("SuccessCount() = %d, want 2 (base + downstream)", result.SuccessCount())
	}
}

func TestStatusReportsDependedBy(t *testing.T) {
	p := newTestPipeline(t)
	conn := memwarehouse.New()
	ctx := context.Background()

	if err := p.Register(&analysis.Analysis{ID: "base", SQL: "SELECT 1", Materialize: analysis.MaterializeTable}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := p.Register(&analysis.Analysis{
		ID:          "downstream",
		SQL:         "SELECT * FROM analysis.base",
		Materialize: analysis.MaterializeTable,
		DependsOn:   []ref.Ref{{Kind: ref.Analysis, Name: "base"}},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	status, err := p.Status(ctx, conn, "base")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.DependedBy) != 1 || status.DependedBy[0] != "downstream" {
		t.Fatalf("DependedBy = %+v", status.DependedBy)
	}
}

func TestGetDAGInvalidatesOnRegisterAndDelete(t *testing.T) {
	p := newTestPipeline(t)

	if err := p.Register(&analysis.Analysis{ID: "a", SQL: "SELECT 1", Materialize: analysis.MaterializeTable}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	dag, err := p.GetDAG()
	if err != nil {
		t.Fatalf("GetDAG: %v", err)
	}
	if _, ok := dag["a"]; !ok {
		t.Fatalf("GetDAG() = %+v, want entry for 'a'", dag)
	}

	if err := p.Register(&analysis.Analysis{
		ID:        "b",
		SQL:       "SELECT * FROM analysis.a",
		DependsOn: []ref.Ref{{Kind: ref.Analysis, Name: "a"}},
		Materialize: analysis.MaterializeTable,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	dag2, err := p.GetDAG()
	if err != nil {
		t.Fatalf("GetDAG (2nd): %v", err)
	}
	if len(dag2["b"]) != 1 || dag2["b"][0] != "a" {
		t.Fatalf("dag2[b] = %+v, want [a]", dag2["b"])
	}

	if err := p.Delete("b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	dag3, err := p.GetDAG()
	if err != nil {
		t.Fatalf("GetDAG (3rd): %v", err)
	}
	if _, ok := dag3["b"]; ok {
		t.Fatalf("dag3 still contains deleted 'b': %+v", dag3)
	}
}
