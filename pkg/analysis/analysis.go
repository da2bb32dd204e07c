// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package analysis defines the Analysis document: a named, versioned SQL
// query plus its materialization strategy and parameter contract.
package analysis

import (
	"time"

	"gopkg.in/yaml.v3"

	"duckpipe/pkg/ref"
)

// Materialize selects how an Analysis's result is persisted.
type Materialize string

const (
	MaterializeView    Materialize = "view"
	MaterializeTable   Materialize = "table"
	MaterializeAppend  Materialize = "append"
	MaterializeParquet Materialize = "parquet"
	MaterializePreview Materialize = "preview"
)

// ParameterDef describes one named query parameter.
type ParameterDef struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Default     any    `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Analysis is a registered SQL query and its metadata.
type Analysis struct {
	ID          string                  `yaml:"id"`
	Name        string                  `yaml:"name"`
	SQL         string                  `yaml:"sql"`
	Materialize Materialize             `yaml:"materialize"`
	Description string                  `yaml:"description,omitempty"`
	Parameters  map[string]*ParameterDef `yaml:"-"`
	DependsOn   []ref.Ref               `yaml:"-"`
	Tags        []string                `yaml:"tags,omitempty"`
	CreatedAt   time.Time               `yaml:"created_at,omitempty"`
	UpdatedAt   time.Time               `yaml:"updated_at,omitempty"`
}

// ResultTable is the fully qualified table/view name this analysis
// materializes into.
func (a *Analysis) ResultTable() string {
	return "analysis." + a.ID
}

// AnalysisDependencies returns the subset of DependsOn that reference other
// analyses.
func (a *Analysis) AnalysisDependencies() []ref.Ref {
	return filterDeps(a.DependsOn, ref.Analysis)
}

// SourceDependencies returns the subset of DependsOn that reference
// registered sources.
func (a *Analysis) SourceDependencies() []ref.Ref {
	return filterDeps(a.DependsOn, ref.Source)
}

func filterDeps(deps []ref.Ref, kind ref.Kind) []ref.Ref {
	out := make([]ref.Ref, 0, len(deps))
	for _, d := range deps {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// doc is the on-disk YAML shape. parameters is kept as a raw node so we can
// accept both the canonical map form and the legacy list form written by
// older tooling.
type doc struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	SQL         string         `yaml:"sql"`
	Materialize string         `yaml:"materialize"`
	Description string         `yaml:"description,omitempty"`
	Parameters  yaml.Node      `yaml:"parameters,omitempty"`
	DependsOn   []string       `yaml:"depends_on,omitempty"`
	Tags        []string       `yaml:"tags,omitempty"`
	CreatedAt   *time.Time     `yaml:"created_at,omitempty"`
	UpdatedAt   *time.Time     `yaml:"updated_at,omitempty"`
}

// UnmarshalYAML implements custom decoding so that both the map form
// (parameters: {name: {type: ..}}) and the legacy list form
// (parameters: [{name: .., type: ..}]) are accepted.
func (a *Analysis) UnmarshalYAML(value *yaml.Node) error {
	var d doc
	if err := value.Decode(&d); err != nil {
		return err
	}

	a.ID = d.ID
	a.Name = d.Name
	a.SQL = d.SQL
	a.Materialize = Materialize(d.Materialize)
	a.Description = d.Description
	a.Tags = d.Tags
	if d.CreatedAt != nil {
		a.CreatedAt = *d.CreatedAt
	}
	if d.UpdatedAt != nil {
		a.UpdatedAt = *d.UpdatedAt
	}

	a.DependsOn = make([]ref.Ref, 0, len(d.DependsOn))
	for _, s := range d.DependsOn {
		a.DependsOn = append(a.DependsOn, ref.Parse(s))
	}

	params, err := decodeParameters(&d.Parameters)
	if err != nil {
		return err
	}
	a.Parameters = params

	return nil
}

// MarshalYAML renders the canonical map form, matching the document format
// future registrations should be stored in.
func (a *Analysis) MarshalYAML() (any, error) {
	dependsOn := make([]string, 0, len(a.DependsOn))
	for _, d := range a.DependsOn {
		dependsOn = append(dependsOn, d.String())
	}

	out := map[string]any{
		"id":          a.ID,
		"name":        a.Name,
		"sql":         a.SQL,
		"materialize": string(a.Materialize),
	}
	if a.Description != "" {
		out["description"] = a.Description
	}
	if len(a.Parameters) > 0 {
		out["parameters"] = a.Parameters
	}
	if len(dependsOn) > 0 {
		out["depends_on"] = dependsOn
	}
	if len(a.Tags) > 0 {
		out["tags"] = a.Tags
	}
	if !a.CreatedAt.IsZero() {
		out["created_at"] = a.CreatedAt
	}
	if !a.UpdatedAt.IsZero() {
		out["updated_at"] = a.UpdatedAt
	}
	return out, nil
}

func decodeParameters(node *yaml.Node) (map[string]*ParameterDef, error) {
	if node == nil || node.Kind == 0 {
		return nil, nil
	}

	switch node.Kind {
	case yaml.MappingNode:
		var raw map[string]*ParameterDef
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		for name, p := range raw {
			if p.Name == "" {
				p.Name = name
			}
		}
		return raw, nil

	case yaml.SequenceNode:
		var list []*ParameterDef
		if err := node.Decode(&list); err != nil {
			return nil, err
		}
		out := make(map[string]*ParameterDef, len(list))
		for _, p := range list {
			out[p.Name] = p
		}
		return out, nil

	default:
		return nil, nil
	}
}
