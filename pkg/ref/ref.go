// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package ref defines Ref, the typed identifier used throughout duckpipe to
// point at an Analysis result, a registered Source, or a raw File.
package ref

import "strings"

// Kind identifies what a Ref points at.
type Kind string

const (
	Analysis Kind = "analysis"
	Source   Kind = "source"
	File     Kind = "file"
)

// Ref is an immutable, comparable reference to a dependency.
//
// String forms:
//
//	"analysis:monthly_revenue" -> Ref{Analysis, "monthly_revenue"}
//	"source:pg_orders"         -> Ref{Source, "pg_orders"}
//	"file:/data/events.parquet" -> Ref{File, "/data/events.parquet"}
//	"monthly_revenue"          -> Ref{Analysis, "monthly_revenue"} (legacy bare name)
type Ref struct {
	Kind Kind
	Name string
}

// Parse converts a string form into a Ref. A bare name with no recognized
// "kind:" prefix is treated as an Analysis reference for backward
// compatibility with callers that predate the typed Ref grammar.
func Parse(s string) Ref {
	prefix, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Ref{Kind: Analysis, Name: s}
	}

	switch Kind(prefix) {
	case Analysis, Source, File:
		return Ref{Kind: Kind(prefix), Name: rest}
	default:
		// Unknown prefix: treat the whole string as a source name so it
		// round-trips instead of silently dropping the prefix.
		return Ref{Kind: Source, Name: s}
	}
}

// String renders the canonical "kind:name" form.
func (r Ref) String() string {
	return string(r.Kind) + ":" + r.Name
}

// TableExpr renders the SQL expression used to reference this dependency's
// materialized result inside a query.
func (r Ref) TableExpr() string {
	switch r.Kind {
	case Analysis:
		return "analysis." + r.Name
	case Source:
		return "source." + strings.ReplaceAll(r.Name, ".", "_")
	case File:
		return "read_parquet('" + r.Name + "')"
	default:
		return r.Name
	}
}

func (r Ref) IsAnalysis() bool { return r.Kind == Analysis }
func (r Ref) IsSource() bool   { return r.Kind == Source }
func (r Ref) IsFile() bool     { return r.Kind == File }
