// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package features

import (
	"math"
	"sort"
	"time"

	"github.com/recomart/recomart/internal/models"
)

// Aggregates holds the three derived feature tables for one batch.
//
// Every table is sorted by its entity key, so the output is a pure function
// of the input multiset: shuffling the prepared records does not change any
// row. All reductions (count, sum, mean, max) are order-independent.
type Aggregates struct {
	Users []models.UserFeatures
	Items []models.ItemFeatures
	Pairs []models.AffinityPair
}

// Sparsity returns the fraction of the implicit |users| x |items| matrix
// with no observed interaction, in [0, 1]. A degenerate empty matrix
// reports full sparsity.
func (a Aggregates) Sparsity() float64 {
	cells := len(a.Users) * len(a.Items)
	if cells == 0 {
		return 1
	}
	return 1 - float64(len(a.Pairs))/float64(cells)
}

type userAcc struct {
	count   int
	sum     float64
	lastTS  time.Time
	tsValid bool
}

type itemAcc struct {
	count int
	sum   float64

	// First-seen catalog attributes. Constant per product by invariant;
	// conflicting values are not reconciled, the first wins.
	seen       bool
	category   string
	normPrice  float64
	normRating float64
}

// Aggregate reduces prepared records into the user, item, and affinity
// tables. Item-side attributes come from the first matched row per product;
// products never matched in the catalog keep zero attributes.
func Aggregate(records []models.PreparedRecord) Aggregates {
	users := make(map[string]*userAcc)
	items := make(map[int]*itemAcc)
	pairs := make(map[string]map[int]float64)

	for _, r := range records {
		u := users[r.UserID]
		if u == nil {
			u = &userAcc{}
			users[r.UserID] = u
		}
		u.count++
		u.sum += r.Weight
		if ts, err := r.Time(); err == nil {
			if !u.tsValid || ts.After(u.lastTS) {
				u.lastTS = ts
				u.tsValid = true
			}
		}

		it := items[r.ProductID]
		if it == nil {
			it = &itemAcc{}
			items[r.ProductID] = it
		}
		it.count++
		it.sum += r.Weight
		if r.Matched && !it.seen {
			it.seen = true
			it.category = r.Category
			it.normPrice = r.NormPrice
			it.normRating = r.NormRating
		}

		byItem := pairs[r.UserID]
		if byItem == nil {
			byItem = make(map[int]float64)
			pairs[r.UserID] = byItem
		}
		byItem[r.ProductID] += r.Weight
	}

	out := Aggregates{
		Users: make([]models.UserFeatures, 0, len(users)),
		Items: make([]models.ItemFeatures, 0, len(items)),
	}

	for id, acc := range users {
		out.Users = append(out.Users, models.UserFeatures{
			UserID:        id,
			ActivityCount: acc.count,
			AvgAffinity:   acc.sum / float64(acc.count),
			TotalScore:    acc.sum,
			LastActiveTS:  acc.lastTS,
		})
	}
	sort.Slice(out.Users, func(i, j int) bool { return out.Users[i].UserID < out.Users[j].UserID })

	for id, acc := range items {
		out.Items = append(out.Items, models.ItemFeatures{
			ProductID:        id,
			InteractionCount: acc.count,
			AvgAffinity:      acc.sum / float64(acc.count),
			NormPrice:        acc.normPrice,
			NormRating:       acc.normRating,
			Category:         acc.category,
			PopularityScore:  math.Log1p(float64(acc.count)),
		})
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].ProductID < out.Items[j].ProductID })

	for userID, byItem := range pairs {
		for productID, score := range byItem {
			out.Pairs = append(out.Pairs, models.AffinityPair{
				UserID:        userID,
				ProductID:     productID,
				AffinityScore: score,
			})
		}
	}
	sort.Slice(out.Pairs, func(i, j int) bool {
		if out.Pairs[i].UserID != out.Pairs[j].UserID {
			return out.Pairs[i].UserID < out.Pairs[j].UserID
		}
		return out.Pairs[i].ProductID < out.Pairs[j].ProductID
	})

	return out
}
