// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package features implements the feature-engineering core of the pipeline:
// event weighting, attribute normalization, catalog enrichment, and the
// aggregation engine that produces the user, item, and affinity tables.
package features

import "github.com/recomart/recomart/internal/models"

// DefaultEventWeights maps event types to implicit-feedback scores.
var DefaultEventWeights = map[string]float64{
	models.EventView:      1,
	models.EventClick:     2,
	models.EventAddToCart: 5,
	models.EventPurchase:  10,
}

// defaultWeight is assigned to event types outside the known set.
// Weighting is total: it never rejects an event.
const defaultWeight = 1

// Weighter derives interaction weights from event types.
type Weighter struct {
	weights map[string]float64
}

// NewWeighter creates a Weighter. A nil or empty weights map falls back to
// DefaultEventWeights.
func NewWeighter(weights map[string]float64) *Weighter {
	if len(weights) == 0 {
		weights = DefaultEventWeights
	}
	return &Weighter{weights: weights}
}

// Weight returns the score for an event type. Unknown types score the
// default weight; the lookup is a pure function of the event type.
func (w *Weighter) Weight(eventType string) float64 {
	if v, ok := w.weights[eventType]; ok {
		return v
	}
	return defaultWeight
}

// WeightAll attaches weights to a batch of interactions, preserving order.
func (w *Weighter) WeightAll(interactions []models.Interaction) []models.WeightedInteraction {
	out := make([]models.WeightedInteraction, len(interactions))
	for i, in := range interactions {
		out[i] = models.WeightedInteraction{
			Interaction: in,
			Weight:      w.Weight(in.EventType),
		}
	}
	return out
}
