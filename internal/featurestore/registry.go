// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package featurestore

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/recomart/recomart/internal/lake"
)

// ErrUnknownView is returned when a feature view name is not registered.
// It is distinct from an entity missing inside a known view.
var ErrUnknownView = errors.New("feature view not registered")

// ErrSourceNotFound is returned when registering a view whose storage
// artifact does not exist at call time.
var ErrSourceNotFound = errors.New("feature view source not found")

// FeatureView is the metadata of one registered (name, version) record.
type FeatureView struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	EntityKey string    `json:"entity_key"`
	Features  []string  `json:"feature_list"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Frame is a column-projected result set from a feature view.
type Frame struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// registryDocument is the on-disk JSON shape. Views are kept as immutable
// (name, version) records in registration order; the latest record per name
// is resolved at read time rather than held in a mutable slot, so a failed
// run never clobbers history.
type registryDocument struct {
	Views    map[string][]FeatureView `json:"feature_views"`
	Metadata struct {
		Project     string    `json:"project"`
		LastUpdated time.Time `json:"last_updated"`
	} `json:"metadata"`
}

// Registry versions and persists named feature views in a single JSON
// document.
type Registry struct {
	mu   sync.Mutex
	path string
}

// NewRegistry creates a registry handle backed by the JSON document at path.
// The document is created lazily on first registration.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

func (r *Registry) load() (registryDocument, error) {
	doc := registryDocument{Views: make(map[string][]FeatureView)}
	doc.Metadata.Project = "RecoMart"

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("read registry: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode registry: %w", err)
	}
	if doc.Views == nil {
		doc.Views = make(map[string][]FeatureView)
	}
	return doc, nil
}

func (r *Registry) store(doc registryDocument) error {
	doc.Metadata.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// Register records a feature view version. The referenced source artifact
// must exist; re-registering an existing (name, version) overwrites only
// that record, other versions stay untouched.
func (r *Registry) Register(name, source, entityKey string, features []string, version string) error {
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("view %s source %s: %w", name, source, ErrSourceNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}

	view := FeatureView{
		Name:      name,
		Source:    source,
		EntityKey: entityKey,
		Features:  append([]string(nil), features...),
		Version:   version,
		CreatedAt: time.Now().UTC(),
	}

	records := doc.Views[name]
	replaced := false
	for i, rec := range records {
		if rec.Version == version {
			records[i] = view
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, view)
	}
	doc.Views[name] = records

	return r.store(doc)
}

// View resolves the latest registered record for a view name.
func (r *Registry) View(name string) (FeatureView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return FeatureView{}, err
	}
	records := doc.Views[name]
	if len(records) == 0 {
		return FeatureView{}, fmt.Errorf("view %q: %w", name, ErrUnknownView)
	}
	// Latest is the most recently registered record.
	return records[len(records)-1], nil
}

// Versions lists all registered records for a view name, oldest first.
func (r *Registry) Versions(name string) ([]FeatureView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	records := doc.Views[name]
	if len(records) == 0 {
		return nil, fmt.Errorf("view %q: %w", name, ErrUnknownView)
	}
	return append([]FeatureView(nil), records...), nil
}

// GetHistorical returns the full projection of entity key + declared feature
// columns, in that order and nothing else, from the latest version's source
// artifact.
func (r *Registry) GetHistorical(name string) (Frame, error) {
	view, err := r.View(name)
	if err != nil {
		return Frame{}, err
	}
	return projectCSV(view)
}

// projectCSV loads the view's CSV source and projects the declared columns.
func projectCSV(view FeatureView) (Frame, error) {
	cols, rows, err := lake.ReadRawTable(view.Source)
	if err != nil {
		return Frame{}, fmt.Errorf("view %s source: %w", view.Name, err)
	}

	want := append([]string{view.EntityKey}, view.Features...)
	idx := make([]int, len(want))
	for i, name := range want {
		j, ok := cols[name]
		if !ok {
			return Frame{}, fmt.Errorf("view %s: source missing declared column %q", view.Name, name)
		}
		idx[i] = j
	}

	frame := Frame{Columns: want, Rows: make([][]string, len(rows))}
	for i, row := range rows {
		projected := make([]string, len(idx))
		for j, col := range idx {
			if col < len(row) {
				projected[j] = row[col]
			}
		}
		frame.Rows[i] = projected
	}
	return frame, nil
}
