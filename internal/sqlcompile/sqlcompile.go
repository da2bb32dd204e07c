// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package sqlcompile binds named parameters into positional placeholders
// and wraps a query with the statement its materialization strategy needs.
package sqlcompile

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"duckpipe/pkg/analysis"
	"duckpipe/pkg/duckerr"
)

// BindParameters rewrites :name placeholders in sql into $1, $2, ... and
// returns the positional argument list in the order the placeholders were
// bound. A name with no entry in params is left untouched. A slice/array
// value expands into a parenthesized list of placeholders, one per
// element, consuming as many positions as the slice has elements. Names
// not present in sql are simply unused.
func BindParameters(sql string, params map[string]any) (string, []any) {
	if len(params) == 0 {
		return sql, nil
	}

	var bound []any
	index := 1

	result := replaceParamRefs(sql, func(name string) (string, bool) {
		value, ok := params[name]
		if !ok {
			return "", false
		}

		if list, isList := asSlice(value); isList {
			placeholders := make([]string, len(list))
			for i, v := range list {
				placeholders[i] = fmt.Sprintf("$%d", index)
				index++
				bound = append(bound, convertValue(v))
			}
			return "(" + strings.Join(placeholders, ", ") + ")", true
		}

		placeholder := fmt.Sprintf("$%d", index)
		index++
		bound = append(bound, convertValue(value))
		return placeholder, true
	})

	if len(bound) == 0 {
		return result, nil
	}
	return result, bound
}

// replaceParamRefs scans sql for :name tokens that are not part of a ::cast
// and replaces each via replace. Tokens with no match from replace are left
// as-is.
//
// This is a hand-rolled scan rather than a single regexp because Go's
// regexp package (RE2) has no lookbehind/lookahead, so the original
// "(?<!:):(\w+)(?!:)" pattern has no direct translation.
func replaceParamRefs(sql string, replace func(name string) (string, bool)) string {
	var b strings.Builder
	i := 0
	for i < len(sql) {
		if sql[i] != ':' {
			b.WriteByte(sql[i])
			i++
			continue
		}
		// "::" is a type cast, not a placeholder; emit both colons verbatim.
		if i+1 < len(sql) && sql[i+1] == ':' {
			b.WriteString("::")
			i += 2
			continue
		}
		j := i + 1
		for j < len(sql) && isWordByte(sql[j]) {
			j++
		}
		if j == i+1 {
			// Bare ':' with no identifier following it.
			b.WriteByte(sql[i])
			i++
			continue
		}
		name := sql[i+1 : j]
		if replacement, ok := replace(name); ok {
			b.WriteString(replacement)
		} else {
			b.WriteString(sql[i:j])
		}
		i = j
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func asSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

func convertValue(value any) any {
	switch v := value.(type) {
	case nil, int, int64, float64, string, bool:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Compile binds params into sql and wraps the result per materialize,
// returning the final SQL and its positional argument list.
func Compile(sql string, materialize analysis.Materialize, resultTable string, params map[string]any) (string, []any, error) {
	bound, args := BindParameters(sql, params)

	if materialize == analysis.MaterializePreview {
		return bound, args, nil
	}

	switch materialize {
	case analysis.MaterializeView:
		table, err := QuoteIdentifier(resultTable)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", table, bound), args, nil

	case analysis.MaterializeTable:
		table, err := QuoteIdentifier(resultTable)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", table, bound), args, nil

	case analysis.MaterializeAppend:
		table, err := QuoteIdentifier(resultTable)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("INSERT INTO %s %s", table, bound), args, nil

	case analysis.MaterializeParquet:
		return fmt.Sprintf("COPY (%s) TO '%s' (FORMAT PARQUET)", bound, resultTable), args, nil

	default:
		return "", nil, duckerr.Compilation("", fmt.Sprintf("unknown materialization: %s", materialize))
	}
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var reservedWords = map[string]bool{
	"select": true, "from": true, "where": true, "table": true, "view": true,
	"create": true, "insert": true, "update": true, "delete": true, "drop": true,
	"alter": true, "index": true, "order": true, "group": true, "by": true,
	"having": true, "limit": true, "offset": true, "join": true, "on": true,
	"and": true, "or": true, "not": true, "null": true, "true": true, "false": true,
	"as": true, "in": true, "is": true, "like": true, "between": true, "case": true,
	"when": true, "then": true, "else": true, "end": true, "union": true, "all": true,
	"distinct": true, "values": true, "set": true, "into": true, "primary": true,
	"key": true, "foreign": true, "references": true, "default": true,
	"constraint": true, "check": true, "unique": true,
}

// QuoteIdentifier validates and, where the identifier is a reserved word,
// double-quotes each dot-separated part of a (possibly schema-qualified)
// identifier.
func QuoteIdentifier(identifier string) (string, error) {
	if identifier == "" {
		return "", duckerr.Validation("identifier cannot be empty")
	}

	parts := strings.Split(identifier, ".")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		if !identifierPattern.MatchString(part) {
			return "", duckerr.Validationf(
				"invalid identifier %q: must start with a letter or underscore and contain only letters, numbers, and underscores", part)
		}
		if reservedWords[strings.ToLower(part)] {
			quoted[i] = `"` + part + `"`
		} else {
			quoted[i] = part
		}
	}
	return strings.Join(quoted, "."), nil
}

// ValidateIdentifier reports an error if identifier (or any dot-separated
// part of it) is not a valid SQL identifier.
func ValidateIdentifier(identifier string) error {
	_, err := QuoteIdentifier(identifier)
	return err
}
