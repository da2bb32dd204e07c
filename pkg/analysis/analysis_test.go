// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package analysis

import (
	"testing"

	"gopkg.in/yaml.v3"

	"duckpipe/pkg/ref"
)

func TestUnmarshalMapParameters(t *testing.T) {
	src := `
id: monthly_revenue
name: Monthly Revenue
sql: "SELECT :month AS month"
materialize: table
parameters:
  month:
    type: date
    description: target month
depends_on:
  - "source:pg_orders"
`
	var a Analysis
	if err := yaml.Unmarshal([]byte(src), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.ID != "monthly_revenue" {
		t.Fatalf("ID = %q", a.ID)
	}
	p, ok := a.Parameters["month"]
	if !ok {
		t.Fatalf("expected parameter 'month'")
	}
	if p.Type != "date" {
		t.Fatalf("Type = %q", p.Type)
	}
	if len(a.DependsOn) != 1 || a.DependsOn[0] != (ref.Ref{Kind: ref.Source, Name: "pg_orders"}) {
		t.Fatalf("DependsOn = %+v", a.DependsOn)
	}
}

func TestUnmarshalListParameters(t *testing.T) {
	src := `
id: x
name: X
sql: "SELECT 1"
materialize: view
parameters:
  - name: limit
    type: int
    default: 10
`
	var a Analysis
	if err := yaml.Unmarshal([]byte(src), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p, ok := a.Parameters["limit"]
	if !ok {
		t.Fatalf("expected parameter 'limit'")
	}
	if p.Default != 10 {
		t.Fatalf("Default = %v", p.Default)
	}
}

func TestResultTableAndDependencyFilters(t *testing.T) {
	a := Analysis{
		ID: "foo",
		DependsOn: []ref.Ref{
			{Kind: ref.Analysis, Name: "bar"},
			{Kind: ref.Source, Name: "pg_orders"},
		},
	}
	if got := a.ResultTable(); got != "analysis.foo" {
		t.Fatalf("ResultTable() = %q", got)
	}
	if got := a.AnalysisDependencies(); len(got) != 1 || got[0].Name != "bar" {
		t.Fatalf("AnalysisDependencies() = %+v", got)
	}
	if got := a.SourceDependencies(); len(got) != 1 || got[0].Name != "pg_orders" {
		t.Fatalf("SourceDependencies() = %+v", got)
	}
}
