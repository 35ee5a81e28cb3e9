// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package lake

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/recomart/recomart/internal/models"
)

func TestInteractionsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), InteractionsFile)
	want := []models.Interaction{
		{InteractionID: "e1", UserID: "U1", ProductID: 5, EventType: "view", Device: "mobile_app", Timestamp: "2026-08-15 10:00:00", SessionID: "s1"},
		{InteractionID: "e2", UserID: "U2", ProductID: 9, EventType: "purchase", Timestamp: "2026-08-15 11:00:00"},
	}

	if err := WriteInteractions(path, want); err != nil {
		t.Fatalf("WriteInteractions() error: %v", err)
	}
	got, err := ReadInteractions(path)
	if err != nil {
		t.Fatalf("ReadInteractions() error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, want)
	}
}

func TestReadInteractionsProjectsByHeader(t *testing.T) {
	// Column order differs from the canonical layout and an extra column is
	// present; projection goes by header name.
	path := filepath.Join(t.TempDir(), "export.csv")
	csv := strings.Join([]string{
		"user_id,interaction_id,event_type,extra,product_id,timestamp",
		"U1,e1,click,ignored,7,2026-08-15 10:00:00",
	}, "\n")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := ReadInteractions(path)
	if err != nil {
		t.Fatalf("ReadInteractions() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].UserID != "U1" || got[0].ProductID != 7 || got[0].EventType != "click" {
		t.Errorf("projected row = %+v", got[0])
	}
}

func TestReadInteractionsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte("user_id,product_id\nU1,7\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := ReadInteractions(path); err == nil {
		t.Error("ReadInteractions() on missing columns succeeded, want error")
	}
}

func TestProductsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProductsFile)
	want := []models.Product{
		{ID: 1, Title: "Backpack", Price: 109.95, Category: "men's clothing", Rating: models.Rating{Rate: 3.9, Count: 120}},
		{ID: 2, Title: "Monitor", Price: 599, Category: "electronics", Rating: models.Rating{Rate: 2.9, Count: 250}},
	}

	if err := WriteProducts(path, want); err != nil {
		t.Fatalf("WriteProducts() error: %v", err)
	}
	got, err := ReadProducts(path)
	if err != nil {
		t.Fatalf("ReadProducts() error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, want)
	}
}

func TestReadProductsMalformedRating(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProductsFile)
	csv := strings.Join([]string{
		"id,title,price,description,category,image,rating",
		`1,Ring,25.5,,jewelery,,"{'rate': 4.1, 'count': 259}"`,
		"2,Cable,9.99,,electronics,,broken",
	}, "\n")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := ReadProducts(path)
	if err != nil {
		t.Fatalf("ReadProducts() error: %v", err)
	}
	if got[0].Rating != (models.Rating{Rate: 4.1, Count: 259}) {
		t.Errorf("python-literal rating = %+v, want parsed", got[0].Rating)
	}
	if got[1].Rating != (models.Rating{}) {
		t.Errorf("malformed rating = %+v, want zero Rating", got[1].Rating)
	}
}

func TestAffinityPairsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), AffinityMatrixFile)
	want := []models.AffinityPair{
		{UserID: "U1", ProductID: 1, AffinityScore: 2},
		{UserID: "U1", ProductID: 2, AffinityScore: 10.5},
	}

	if err := WriteAffinityPairs(path, want); err != nil {
		t.Fatalf("WriteAffinityPairs() error: %v", err)
	}
	got, err := ReadAffinityPairs(path)
	if err != nil {
		t.Fatalf("ReadAffinityPairs() error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, want)
	}
}

func TestReadTableEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, _, err := ReadRawTable(path); err == nil {
		t.Error("ReadRawTable() on empty file succeeded, want missing-header error")
	}
}
