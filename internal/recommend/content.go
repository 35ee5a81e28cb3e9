// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package recommend implements the content-based similarity engine.
//
// Items are embedded into a TF-IDF vector space over their category
// attribute; similarity is the dot product of the L2-normalized rows
// (equivalently cosine similarity). Training acquires an exclusive lock
// while queries use a shared lock, so a trained engine is safe for
// concurrent reads.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/recomart/recomart/internal/models"
)

// ErrItemNotFound is returned when a queried product is absent from the
// trained item set. It is distinct from an empty recommendation list.
var ErrItemNotFound = errors.New("product not found in item feature set")

// ErrNotTrained is returned when querying an engine before Train.
var ErrNotTrained = errors.New("similarity engine not trained")

// Recommendation is one ranked similar-item result.
type Recommendation struct {
	ProductID  int     `json:"product_id"`
	Category   string  `json:"category"`
	NormRating float64 `json:"norm_rating"`

	// Score is the cosine similarity to the queried item, in [0, 1].
	Score float64 `json:"score"`
}

// ContentSimilarity is a content-based top-K recommender over item features.
type ContentSimilarity struct {
	mu            sync.RWMutex
	trained       bool
	version       int
	lastTrainedAt time.Time

	items  []models.ItemFeatures
	index  map[int]int // product_id -> row in items/matrix
	matrix [][]float64
}

// NewContentSimilarity creates an untrained engine.
func NewContentSimilarity() *ContentSimilarity {
	return &ContentSimilarity{index: make(map[int]int)}
}

// IsTrained reports whether Train has completed at least once.
func (c *ContentSimilarity) IsTrained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trained
}

// Version returns the model version, incremented on every Train.
func (c *ContentSimilarity) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// LastTrainedAt returns when the model was last trained.
func (c *ContentSimilarity) LastTrainedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastTrainedAt
}

// Train builds the TF-IDF vector space from the item feature table.
// The previous model is replaced wholesale. Item order is preserved and
// determines tie-breaking in query results.
func (c *ContentSimilarity) Train(ctx context.Context, items []models.ItemFeatures) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	docs := make([]string, len(items))
	index := make(map[int]int, len(items))
	for i, it := range items {
		docs[i] = it.Category
		index[it.ProductID] = i
	}

	var vec Vectorizer
	matrix := vec.FitTransform(docs)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.index = index
	c.matrix = matrix
	c.trained = true
	c.version++
	c.lastTrainedAt = time.Now()
	return nil
}

// Recommend returns up to k items most similar to productID, excluding the
// queried item itself. Results are ordered by non-increasing similarity;
// equal scores keep the original item-table order, so repeated calls with
// the same model yield identical output.
func (c *ContentSimilarity) Recommend(productID, k int) ([]Recommendation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.trained {
		return nil, ErrNotTrained
	}
	row, ok := c.index[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, ErrItemNotFound)
	}
	if k <= 0 {
		return []Recommendation{}, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	candidates := make([]scored, 0, len(c.items)-1)
	source := c.matrix[row]
	for i := range c.items {
		if i == row {
			continue
		}
		candidates = append(candidates, scored{idx: i, score: dot(source, c.matrix[i])})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]Recommendation, len(candidates))
	for i, cand := range candidates {
		it := c.items[cand.idx]
		out[i] = Recommendation{
			ProductID:  it.ProductID,
			Category:   it.Category,
			NormRating: it.NormRating,
			Score:      cand.score,
		}
	}
	return out, nil
}
