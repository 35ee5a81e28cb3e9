// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package features

import (
	"github.com/recomart/recomart/internal/logging"
	"github.com/recomart/recomart/internal/models"
)

// PrepareStats reports observable side effects of the preparation join.
type PrepareStats struct {
	// Rows is the total number of prepared records.
	Rows int

	// Unmatched counts interactions whose product_id had no catalog entry.
	// These rows survive with empty item-side fields; the batch never
	// fails on referential gaps.
	Unmatched int
}

// Prepare weights a batch of interactions and left-joins normalized catalog
// attributes onto each row by product_id. Interactions referencing unknown
// products keep empty item-side fields and Matched=false.
func Prepare(weighter *Weighter, interactions []models.Interaction, catalog []NormalizedProduct) ([]models.PreparedRecord, PrepareStats) {
	byID := make(map[int]NormalizedProduct, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	weighted := weighter.WeightAll(interactions)
	out := make([]models.PreparedRecord, len(weighted))
	stats := PrepareStats{Rows: len(weighted)}

	for i, w := range weighted {
		rec := models.PreparedRecord{WeightedInteraction: w}
		if p, ok := byID[w.ProductID]; ok {
			rec.Matched = true
			rec.Category = p.Category
			rec.NormPrice = p.NormPrice
			rec.NormRating = p.NormRating
		} else {
			stats.Unmatched++
		}
		out[i] = rec
	}

	if stats.Unmatched > 0 {
		logging.Warn().
			Int("unmatched", stats.Unmatched).
			Int("rows", stats.Rows).
			Msg("Interactions reference products missing from the catalog")
	}
	return out, stats
}
