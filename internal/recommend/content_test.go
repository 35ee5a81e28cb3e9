// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package recommend

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/recomart/recomart/internal/models"
)

func testItems() []models.ItemFeatures {
	return []models.ItemFeatures{
		{ProductID: 1, Category: "electronics", NormRating: 0.9},
		{ProductID: 2, Category: "electronics", NormRating: 0.5},
		{ProductID: 3, Category: "jewelery", NormRating: 0.7},
		{ProductID: 4, Category: "men's clothing", NormRating: 0.2},
		{ProductID: 5, Category: "women's clothing", NormRating: 0.8},
	}
}

func trainedModel(t *testing.T) *ContentSimilarity {
	t.Helper()
	m := NewContentSimilarity()
	if err := m.Train(context.Background(), testItems()); err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	return m
}

func TestContentSimilarityLifecycle(t *testing.T) {
	m := NewContentSimilarity()
	if m.IsTrained() {
		t.Error("new engine reports trained")
	}
	if _, err := m.Recommend(1, 3); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Recommend() before Train = %v, want ErrNotTrained", err)
	}

	if err := m.Train(context.Background(), testItems()); err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	if !m.IsTrained() {
		t.Error("engine not trained after Train")
	}
	if m.Version() != 1 {
		t.Errorf("Version() = %d, want 1", m.Version())
	}

	if err := m.Train(context.Background(), testItems()); err != nil {
		t.Fatalf("retrain error: %v", err)
	}
	if m.Version() != 2 {
		t.Errorf("Version() after retrain = %d, want 2", m.Version())
	}
}

func TestContentSimilarityRecommend(t *testing.T) {
	tests := []struct {
		name      string
		productID int
		k         int
		wantErr   error
		verify    func(t *testing.T, recs []Recommendation)
	}{
		{
			name:      "same category ranks first",
			productID: 1,
			k:         3,
			verify: func(t *testing.T, recs []Recommendation) {
				if len(recs) != 3 {
					t.Fatalf("got %d recommendations, want 3", len(recs))
				}
				if recs[0].ProductID != 2 {
					t.Errorf("top recommendation = %d, want 2 (same category)", recs[0].ProductID)
				}
				if recs[0].Score <= recs[1].Score-1e-12 {
					t.Errorf("scores not non-increasing: %f then %f", recs[0].Score, recs[1].Score)
				}
			},
		},
		{
			name:      "queried item excluded",
			productID: 3,
			k:         10,
			verify: func(t *testing.T, recs []Recommendation) {
				for _, r := range recs {
					if r.ProductID == 3 {
						t.Error("queried product appeared in its own recommendations")
					}
				}
				if len(recs) != 4 {
					t.Errorf("got %d recommendations, want 4 (all other items)", len(recs))
				}
			},
		},
		{
			name:      "k truncates",
			productID: 1,
			k:         1,
			verify: func(t *testing.T, recs []Recommendation) {
				if len(recs) != 1 {
					t.Errorf("got %d recommendations, want 1", len(recs))
				}
			},
		},
		{
			name:      "non-positive k yields empty list",
			productID: 1,
			k:         0,
			verify: func(t *testing.T, recs []Recommendation) {
				if len(recs) != 0 {
					t.Errorf("got %d recommendations, want 0", len(recs))
				}
			},
		},
		{
			name:      "unknown product",
			productID: 999,
			k:         3,
			wantErr:   ErrItemNotFound,
		},
	}

	m := trainedModel(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := m.Recommend(tt.productID, tt.k)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Recommend() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Recommend() error: %v", err)
			}
			tt.verify(t, recs)
		})
	}
}

func TestContentSimilarityDeterministic(t *testing.T) {
	m := trainedModel(t)
	first, err := m.Recommend(4, 4)
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := m.Recommend(4, 4)
		if err != nil {
			t.Fatalf("Recommend() error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("repeated query diverged:\nfirst: %+v\nagain: %+v", first, again)
		}
	}
}

func TestContentSimilarityTrainCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewContentSimilarity()
	if err := m.Train(ctx, testItems()); !errors.Is(err, context.Canceled) {
		t.Errorf("Train() with canceled context = %v, want context.Canceled", err)
	}
	if m.IsTrained() {
		t.Error("engine trained despite canceled context")
	}
}
