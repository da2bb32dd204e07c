// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package duckerr defines the closed set of error kinds the pipeline can
// raise, so callers can branch on Kind instead of string-matching messages.
package duckerr

import "fmt"

// Kind identifies the category of a pipeline error.
type Kind string

const (
	KindAnalysisNotFound   Kind = "analysis_not_found"
	KindCircularDependency Kind = "circular_dependency"
	KindValidation         Kind = "validation"
	KindParameter          Kind = "parameter"
	KindCompilation        Kind = "compilation"
	KindExecution          Kind = "execution"
	KindStorage            Kind = "storage"
)

// Error is the single error type the pipeline returns. Kind is always set;
// the other fields are populated when relevant to that Kind.
type Error struct {
	Kind       Kind
	Message    string
	Cause      error `json:"-"`
	AnalysisID string
	ParamName  string
	CycleIDs   []string
}

func (e *Error) Error() string {
	switch {
	case e.AnalysisID != "" && e.Kind == KindAnalysisNotFound:
		return fmt.Sprintf("analysis not found: %s", e.AnalysisID)
	case e.Kind == KindCircularDependency:
		return fmt.Sprintf("circular dependency: %s", e.Message)
	case e.ParamName != "":
		return fmt.Sprintf("parameter %q: %s", e.ParamName, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	de, ok := err.(*Error)
	if !ok {
		return false
	}
	return de.Kind == kind
}

func AnalysisNotFound(id string) *Error {
	return &Error{Kind: KindAnalysisNotFound, Message: "analysis not found", AnalysisID: id}
}

func CircularDependency(cycle []string) *Error {
	return &Error{Kind: KindCircularDependency, Message: fmt.Sprintf("%v", cycle), CycleIDs: cycle}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Parameter(name, msg string) *Error {
	return &Error{Kind: KindParameter, Message: msg, ParamName: name}
}

func Compilation(analysisID, msg string) *Error {
	return &Error{Kind: KindCompilation, Message: msg, AnalysisID: analysisID}
}

func Execution(analysisID string, cause error) *Error {
	return &Error{Kind: KindExecution, Message: "execution failed", Cause: cause, AnalysisID: analysisID}
}

func Storage(msg string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Cause: cause}
}
