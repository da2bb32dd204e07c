// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package duckerr

import (
	"errors"
	"testing"
)

func TestIs(t *testing.T) {
	err := AnalysisNotFound("monthly_revenue")
	if !Is(err, KindAnalysisNotFound) {
		t.Fatalf("expected Is to match KindAnalysisNotFound")
	}
	if Is(err, KindValidation) {
		t.Fatalf("expected Is to not match KindValidation")
	}
	if Is(errors.New("plain"), KindAnalysisNotFound) {
		t.Fatalf("expected Is to return false for non-duckerr errors")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Execution("a", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to unwrap to cause")
	}
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want string
	}{
		{"not found", AnalysisNotFound("x"), "analysis not found: x"},
		{"circular", CircularDependency([]string{"a", "b"}), "circular dependency: [a b]"},
		{"parameter", Parameter("limit", "missing value"), `parameter "limit": missing value`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.err.Error(); got != c.want {
				t.Fatalf("Error() = %q, want %q", got, c.want)
			}
		})
	}
}
