// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package featurestore

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source fixture: %v", err)
	}
	return path
}

const userSourceCSV = "user_id,user_activity_count,user_avg_affinity,user_total_score,last_active_ts\n" +
	"U1,3,4,12,2026-08-15T10:10:00Z\n" +
	"U2,1,2,2,2026-08-15T11:00:00Z\n"

func TestRegistryRegisterAndView(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "user_feature_store.csv", userSourceCSV)
	reg := NewRegistry(filepath.Join(dir, "metadata_registry.json"))

	features := []string{"user_activity_count", "user_total_score"}
	if err := reg.Register("user_signals", source, "user_id", features, "v1.0"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	view, err := reg.View("user_signals")
	if err != nil {
		t.Fatalf("View() error: %v", err)
	}
	if view.Version != "v1.0" || view.EntityKey != "user_id" {
		t.Errorf("View() = %+v", view)
	}
	if !reflect.DeepEqual(view.Features, features) {
		t.Errorf("Features = %v, want %v", view.Features, features)
	}
}

func TestRegistryUnknownView(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "metadata_registry.json"))
	if _, err := reg.View("nope"); !errors.Is(err, ErrUnknownView) {
		t.Errorf("View() = %v, want ErrUnknownView", err)
	}
	if _, err := reg.Versions("nope"); !errors.Is(err, ErrUnknownView) {
		t.Errorf("Versions() = %v, want ErrUnknownView", err)
	}
}

func TestRegistryMissingSource(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "metadata_registry.json"))
	err := reg.Register("user_signals", "/nonexistent/source.csv", "user_id", nil, "v1.0")
	if !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Register() = %v, want ErrSourceNotFound", err)
	}
}

func TestRegistryVersioning(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "user_feature_store.csv", userSourceCSV)
	reg := NewRegistry(filepath.Join(dir, "metadata_registry.json"))

	for _, version := range []string{"v1.0", "v1.1"} {
		if err := reg.Register("user_signals", source, "user_id", []string{"user_total_score"}, version); err != nil {
			t.Fatalf("Register(%s) error: %v", version, err)
		}
	}

	view, err := reg.View("user_signals")
	if err != nil {
		t.Fatalf("View() error: %v", err)
	}
	if view.Version != "v1.1" {
		t.Errorf("latest version = %s, want v1.1", view.Version)
	}

	versions, err := reg.Versions("user_signals")
	if err != nil {
		t.Fatalf("Versions() error: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("Versions() = %d records, want 2", len(versions))
	}
	if versions[0].Version != "v1.0" {
		t.Errorf("oldest version = %s, want v1.0", versions[0].Version)
	}

	// Re-registering an existing version replaces that record only.
	if err := reg.Register("user_signals", source, "user_id", []string{"user_avg_affinity"}, "v1.0"); err != nil {
		t.Fatalf("re-register error: %v", err)
	}
	versions, err = reg.Versions("user_signals")
	if err != nil {
		t.Fatalf("Versions() error: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("Versions() after re-register = %d records, want 2", len(versions))
	}
}

func TestRegistryGetHistorical(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "user_feature_store.csv", userSourceCSV)
	reg := NewRegistry(filepath.Join(dir, "metadata_registry.json"))

	if err := reg.Register("user_signals", source, "user_id", []string{"user_total_score", "user_activity_count"}, "v1.0"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	frame, err := reg.GetHistorical("user_signals")
	if err != nil {
		t.Fatalf("GetHistorical() error: %v", err)
	}

	// Entity key first, then declared features in declaration order, and
	// nothing else (last_active_ts is not declared).
	wantColumns := []string{"user_id", "user_total_score", "user_activity_count"}
	if !reflect.DeepEqual(frame.Columns, wantColumns) {
		t.Errorf("Columns = %v, want %v", frame.Columns, wantColumns)
	}
	wantRows := [][]string{
		{"U1", "12", "3"},
		{"U2", "2", "1"},
	}
	if !reflect.DeepEqual(frame.Rows, wantRows) {
		t.Errorf("Rows = %v, want %v", frame.Rows, wantRows)
	}
}

func TestRegistryGetHistoricalMissingDeclaredColumn(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "user_feature_store.csv", userSourceCSV)
	reg := NewRegistry(filepath.Join(dir, "metadata_registry.json"))

	if err := reg.Register("user_signals", source, "user_id", []string{"no_such_column"}, "v1.0"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if _, err := reg.GetHistorical("user_signals"); err == nil {
		t.Error("GetHistorical() with undeclared source column succeeded, want error")
	}
}
