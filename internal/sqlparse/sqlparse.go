// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package sqlparse extracts the table dependencies referenced by a SQL
// query so Analyses can auto-populate depends_on without requiring callers
// to list it by hand.
package sqlparse

import (
	"encoding/json"
	"sort"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"duckpipe/pkg/ref"
)

// ExtractDependencies parses sql and returns the set of table references it
// makes, excluding any that are actually CTE aliases defined within the
// query. Classification rules:
//
//	analysis.<name> -> Ref{Analysis, name}
//	source.<name>   -> Ref{Source, name}
//	a path or a name ending in .parquet/.csv -> Ref{File, name}
//	anything else   -> Ref{Source, name} (assumed external)
//
// If sql fails to parse, ExtractDependencies returns nil rather than an
// error: callers fall back to an explicit depends_on list.
func ExtractDependencies(sql string) []ref.Ref {
	raw, err := pgquery.ParseToJSON(sql)
	if err != nil {
		return nil
	}

	var tree any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return nil
	}

	ctes := map[string]bool{}
	collectCTENames(tree, ctes)

	var refs []ref.Ref
	seen := map[string]bool{}
	collectRangeVars(tree, ctes, seen, &refs)
	return refs
}

func collectCTENames(node any, ctes map[string]bool) {
	switch v := node.(type) {
	case map[string]any:
		if cte, ok := v["CommonTableExpr"]; ok {
			if cteMap, ok := cte.(map[string]any); ok {
				if name, ok := cteMap["ctename"].(string); ok && name != "" {
					ctes[strings.ToLower(name)] = true
				}
			}
		}
		for _, key := range sortedKeys(v) {
			collectCTENames(v[key], ctes)
		}
	case []any:
		for _, item := range v {
			collectCTENames(item, ctes)
		}
	}
}

func collectRangeVars(node any, ctes map[string]bool, seen map[string]bool, out *[]ref.Ref) {
	switch v := node.(type) {
	case map[string]any:
		if rv, ok := v["RangeVar"]; ok {
			if rvMap, ok := rv.(map[string]any); ok {
				handleRangeVar(rvMap, ctes, seen, out)
			}
		}
		for _, key := range sortedKeys(v) {
			collectRangeVars(v[key], ctes, seen, out)
		}
	case []any:
		for _, item := range v {
			collectRangeVars(item, ctes, seen, out)
		}
	}
}

func handleRangeVar(rv map[string]any, ctes map[string]bool, seen map[string]bool, out *[]ref.Ref) {
	name, _ := rv["relname"].(string)
	if name == "" {
		return
	}
	schema, _ := rv["schemaname"].(string)

	fullName := name
	if schema != "" {
		fullName = schema + "." + name
	}

	if ctes[strings.ToLower(fullName)] || ctes[strings.ToLower(name)] {
		return
	}
	if seen[fullName] {
		return
	}
	seen[fullName] = true

	schemaLower := strings.ToLower(schema)
	switch {
	case schemaLower == "analysis":
		*out = append(*out, ref.Ref{Kind: ref.Analysis, Name: name})
	case schemaLower == "source":
		*out = append(*out, ref.Ref{Kind: ref.Source, Name: name})
	case strings.HasPrefix(fullName, "/") || strings.HasSuffix(fullName, ".parquet") || strings.HasSuffix(fullName, ".csv"):
		*out = append(*out, ref.Ref{Kind: ref.File, Name: fullName})
	default:
		*out = append(*out, ref.Ref{Kind: ref.Source, Name: fullName})
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate reports whether sql parses successfully, and the parser error
// message if it does not.
func Validate(sql string) (bool, string) {
	if _, err := pgquery.ParseToJSON(sql); err != nil {
		return false, err.Error()
	}
	return true, ""
}
