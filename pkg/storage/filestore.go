// SPDX-License-Identifier: AGPL-3.0-or-later

/*

duckpipe - duckpipe is a SQL analysis pipeline engine that turns SQL queries
into versioned Analyses, resolves their dependencies, and executes them
against a warehouse.

Copyright (C) 2026  duckpipe contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"duckpipe/pkg/analysis"
	"duckpipe/pkg/duckerr"
)

// FileStore stores each Analysis as its own YAML file under a base
// directory: {baseDir}/{id}.yaml. Writes go through a temp-file-then-rename
// sequence so a reader never observes a half-written document.
//
// FileStore is safe for concurrent use within a single process; like the
// rest of duckpipe it is not safe for concurrent modification from multiple
// processes sharing the same directory.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileStore creates (if necessary) baseDir and returns a FileStore
// rooted there.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, duckerr.Storage("creating metadata directory", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.baseDir, id+".yaml")
}

// Get returns the analysis with the given id, or (nil, nil) if it does not
// exist. Read failures (bad YAML, unreadable file) are reported as errors.
func (s *FileStore) Get(id string) (*analysis.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *FileStore) get(id string) (*analysis.Analysis, error) {
	path := s.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, duckerr.Storage(fmt.Sprintf("reading %s", path), err)
	}

	var a analysis.Analysis
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, duckerr.Storage(fmt.Sprintf("parsing %s", path), err)
	}
	return &a, nil
}

// List returns every registered analysis. A file that fails to parse is
// skipped rather than failing the whole listing.
func (s *FileStore) List() ([]*analysis.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, duckerr.Storage("listing metadata directory", err)
	}

	var out []*analysis.Analysis
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".yaml")
		a, err := s.get(id)
		if err != nil || a == nil {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save creates or updates an analysis. CreatedAt is preserved from the
// existing file on update; UpdatedAt is always refreshed.
func (s *FileStore) Save(a *analysis.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if a.CreatedAt.IsZero() {
		if existing, err := s.get(a.ID); err == nil && existing != nil && !existing.CreatedAt.IsZero() {
			a.CreatedAt = existing.CreatedAt
		} else {
			a.CreatedAt = now
		}
	}
	a.UpdatedAt = now

	data, err := yaml.Marshal(a)
	if err != nil {
		return duckerr.Storage("encoding analysis", err)
	}

	path := s.path(a.ID)
	tmp := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return duckerr.Storage("writing temporary analysis file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return duckerr.Storage("renaming analysis file", err)
	}
	return nil
}

// Delete removes an analysis. Deleting a non-existent analysis is not an
// error.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return duckerr.Storage(fmt.Sprintf("deleting %s", id), err)
	}
	return nil
}

// Exists reports whether an analysis with the given id is registered.
func (s *FileStore) Exists(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, duckerr.Storage(fmt.Sprintf("checking %s", id), err)
}
