// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package features

import (
	"testing"

	"github.com/recomart/recomart/internal/models"
)

func TestWeighterWeight(t *testing.T) {
	tests := []struct {
		name      string
		weights   map[string]float64
		eventType string
		want      float64
	}{
		{name: "view scores 1", eventType: models.EventView, want: 1},
		{name: "click scores 2", eventType: models.EventClick, want: 2},
		{name: "add_to_cart scores 5", eventType: models.EventAddToCart, want: 5},
		{name: "purchase scores 10", eventType: models.EventPurchase, want: 10},
		{name: "unknown type scores default", eventType: "wishlist_add", want: 1},
		{name: "empty type scores default", eventType: "", want: 1},
		{
			name:      "custom weights override defaults",
			weights:   map[string]float64{models.EventPurchase: 20},
			eventType: models.EventPurchase,
			want:      20,
		},
		{
			name:      "custom weights do not cover unlisted types",
			weights:   map[string]float64{models.EventPurchase: 20},
			eventType: models.EventView,
			want:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWeighter(tt.weights)
			if got := w.Weight(tt.eventType); got != tt.want {
				t.Errorf("Weight(%q) = %f, want %f", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestWeighterWeightAll(t *testing.T) {
	interactions := []models.Interaction{
		{InteractionID: "e1", UserID: "U1", ProductID: 1, EventType: models.EventPurchase},
		{InteractionID: "e2", UserID: "U1", ProductID: 2, EventType: "mystery"},
		{InteractionID: "e3", UserID: "U2", ProductID: 1, EventType: models.EventClick},
	}

	got := NewWeighter(nil).WeightAll(interactions)
	if len(got) != len(interactions) {
		t.Fatalf("WeightAll() returned %d rows, want %d", len(got), len(interactions))
	}
	wantWeights := []float64{10, 1, 2}
	for i, w := range got {
		if w.InteractionID != interactions[i].InteractionID {
			t.Errorf("row %d: order changed, got %q want %q", i, w.InteractionID, interactions[i].InteractionID)
		}
		if w.Weight != wantWeights[i] {
			t.Errorf("row %d: Weight = %f, want %f", i, w.Weight, wantWeights[i])
		}
	}
}
