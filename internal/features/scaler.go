// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package features

import "github.com/recomart/recomart/internal/models"

// MinMaxScaler rescales a numeric attribute into [0, 1] over the full set it
// was fitted on: (x - min) / (max - min).
//
// A degenerate fit (min == max, including a single-row set) defines the
// normalized value as 0 for every row. The division is never evaluated in
// that case.
type MinMaxScaler struct {
	min, max float64
	fitted   bool
}

// Fit computes the min and max over the given values. Fitting an empty set
// leaves the scaler degenerate; Transform then returns 0.
func (s *MinMaxScaler) Fit(values []float64) {
	s.fitted = len(values) > 0
	if !s.fitted {
		s.min, s.max = 0, 0
		return
	}
	s.min, s.max = values[0], values[0]
	for _, v := range values[1:] {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
}

// Transform rescales a single value using the fitted range.
func (s *MinMaxScaler) Transform(v float64) float64 {
	if !s.fitted || s.max == s.min {
		return 0
	}
	return (v - s.min) / (s.max - s.min)
}

// NormalizedProduct is a catalog record with parsed and scaled attributes.
type NormalizedProduct struct {
	models.Product

	// RatingValue is the defensively parsed rating rate (0 on parse failure).
	RatingValue float64

	NormPrice  float64
	NormRating float64
}

// NormalizeProducts parses ratings and min-max scales price and rating
// across the full product set. Input order is preserved.
func NormalizeProducts(products []models.Product) []NormalizedProduct {
	out := make([]NormalizedProduct, len(products))
	prices := make([]float64, len(products))
	rates := make([]float64, len(products))
	for i, p := range products {
		out[i] = NormalizedProduct{Product: p, RatingValue: p.Rating.Rate}
		prices[i] = p.Price
		rates[i] = p.Rating.Rate
	}

	var priceScaler, ratingScaler MinMaxScaler
	priceScaler.Fit(prices)
	ratingScaler.Fit(rates)

	for i := range out {
		out[i].NormPrice = priceScaler.Transform(prices[i])
		out[i].NormRating = ratingScaler.Transform(rates[i])
	}
	return out
}
