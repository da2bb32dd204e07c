// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package sqlcompile

import (
	"reflect"
	"testing"

	"duckpipe/pkg/analysis"
)

func TestBindParametersScalar(t *testing.T) {
	sql, args := BindParameters("SELECT :value", map[string]any{"value": 42})
	if sql != "SELECT $1" {
		t.Fatalf("sql = %q", sql)
	}
	if !reflect.DeepEqual(args, []any{42}) {
		t.Fatalf("args = %+v", args)
	}
}

func TestBindParametersIgnoresTypeCast(t *testing.T) {
	sql, args := BindParameters("SELECT x::int", map[string]any{"int": 1})
	if sql != "SELECT x::int" {
		t.Fatalf("sql = %q, want unchanged", sql)
	}
	if args != nil {
		t.Fatalf("args = %+v, want nil", args)
	}
}

func TestBindParametersList(t *testing.T) {
	sql, args := BindParameters("SELECT * FROM t WHERE id IN :ids", map[string]any{"ids": []any{1, 2, 3}})
	if sql != "SELECT * FROM t WHERE id IN ($1, $2, $3)" {
		t.Fatalf("sql = %q", sql)
	}
	if !reflect.DeepEqual(args, []any{1, 2, 3}) {
		t.Fatalf("args = %+v", args)
	}
}

func TestBindParametersUnknownNameLeftAsIs(t *testing.T) {
	sql, args := BindParameters("SELECT :known, :unknown", map[string]any{"known": 1})
	if sql != "SELECT $1, :unknown" {
		t.Fatalf("sql = %q", sql)
	}
	if !reflect.DeepEqual(args, []any{1}) {
		t.Fatalf("args = %+v", args)
	}
}

func TestCompileView(t *testing.T) {
	sql, args, err := Compile("SELECT :value", analysis.MaterializeView, "analysis.test", map[string]any{"value": 42})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if sql != "CREATE OR REPLACE VIEW analysis.test AS SELECT $1" {
		t.Fatalf("sql = %q", sql)
	}
	if !reflect.DeepEqual(args, []any{42}) {
		t.Fatalf("args = %+v", args)
	}
}

func TestCompilePreviewLeavesSQLUnwrapped(t *testing.T) {
	sql, _, err := Compile("SELECT 1", analysis.MaterializePreview, "analysis.test", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if sql != "SELECT 1" {
		t.Fatalf("sql = %q", sql)
	}
}

func TestCompileAppend(t *testing.T) {
	sql, _, err := Compile("SELECT 1", analysis.MaterializeAppend, "analysis.test", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if sql != "INSERT INTO analysis.test SELECT 1" {
		t.Fatalf("sql = %q", sql)
	}
}

func TestCompileParquet(t *testing.T) {
	sql, _, err := Compile("SELECT 1", analysis.MaterializeParquet, "/tmp/out.parquet", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if sql != "COPY (SELECT 1) TO '/tmp/out.parquet' (FORMAT PARQUET)" {
		t.Fatalf("sql = %q", sql)
	}
}

func TestCompileUnknownMaterialize(t *testing.T) {
	_, _, err := Compile("SELECT 1", analysis.Materialize("bogus"), "analysis.test", nil)
	if err == nil {
		t.Fatalf("expected error for unknown materialize")
	}
}

func TestQuoteIdentifierReservedWord(t *testing.T) {
	quoted, err := QuoteIdentifier("analysis.order")
	if err != nil {
		t.Fatalf("QuoteIdentifier: %v", err)
	}
	if quoted != `analysis."order"` {
		t.Fatalf("quoted = %q", quoted)
	}
}

func TestQuoteIdentifierInvalid(t *testing.T) {
	if _, err := QuoteIdentifier("1bad"); err == nil {
		t.Fatalf("expected error for invalid identifier")
	}
}
