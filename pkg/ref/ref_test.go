// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package ref

import "testing"

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"analysis:monthly_revenue",
		"source:pg_orders",
		"file:/data/events.parquet",
	}
	for _, s := range cases {
		r := Parse(s)
		if got := r.String(); got != s {
			t.Fatalf("Parse(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestParseLegacyBareName(t *testing.T) {
	r := Parse("monthly_revenue")
	if r.Kind != Analysis || r.Name != "monthly_revenue" {
		t.Fatalf("Parse(bare) = %+v, want Analysis/monthly_revenue", r)
	}
}

func TestParseUnknownPrefix(t *testing.T) {
	r := Parse("s3:bucket/key")
	if r.Kind != Source || r.Name != "s3:bucket/key" {
		t.Fatalf("Parse(unknown prefix) = %+v", r)
	}
}

func TestTableExpr(t *testing.T) {
	cases := []struct {
		ref  Ref
		want string
	}{
		{Ref{Analysis, "monthly_revenue"}, "analysis.monthly_revenue"},
		{Ref{Source, "pg.orders"}, "source.pg_orders"},
		{Ref{File, "/tmp/x.parquet"}, "read_parquet('/tmp/x.parquet')"},
	}
	for _, c := range cases {
		if got := c.ref.TableExpr(); got != c.want {
			t.Fatalf("TableExpr() = %q, want %q", got, c.want)
		}
	}
}
