// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package validation implements the data-quality gate between the bronze and
// silver tiers: expectation suites over ingested batches, plus struct-level
// schema validation at stage ingress.
//
// An expectation checks one rule against one column and reports a pass/fail
// status with a failing-row count. A suite passes only when every
// expectation passes; downstream stages must not run on data whose suite
// failed.
package validation

import (
	"math"
	"strconv"

	"github.com/recomart/recomart/internal/models"
)

// Rule names, mirroring the upstream expectation vocabulary.
const (
	RuleNotNull = "column_values_to_not_be_null"
	RuleUnique  = "column_values_to_be_unique"
	RuleInSet   = "column_values_to_be_in_set"
	RuleBetween = "column_values_to_be_between"
)

// Result is the outcome of a single expectation.
type Result struct {
	Rule       string `json:"rule"`
	Column     string `json:"column"`
	Passed     bool   `json:"passed"`
	FailedRows int    `json:"failed_rows"`
}

// SuiteResult is the outcome of an expectation suite over one dataset.
type SuiteResult struct {
	Dataset string   `json:"dataset"`
	Rows    int      `json:"rows"`
	Passed  bool     `json:"passed"`
	Results []Result `json:"results"`
}

func finish(dataset string, rows int, results ...Result) SuiteResult {
	s := SuiteResult{Dataset: dataset, Rows: rows, Results: results, Passed: true}
	for _, r := range results {
		if !r.Passed {
			s.Passed = false
		}
	}
	return s
}

func notNull(column string, values []string) Result {
	failed := 0
	for _, v := range values {
		if v == "" {
			failed++
		}
	}
	return Result{Rule: RuleNotNull, Column: column, Passed: failed == 0, FailedRows: failed}
}

func unique(column string, values []string) Result {
	seen := make(map[string]int, len(values))
	failed := 0
	for _, v := range values {
		seen[v]++
		// Every occurrence beyond the first is a failing row.
		if seen[v] > 1 {
			failed++
		}
	}
	return Result{Rule: RuleUnique, Column: column, Passed: failed == 0, FailedRows: failed}
}

func inSet(column string, values []string, allowed []string) Result {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	failed := 0
	for _, v := range values {
		if _, ok := set[v]; !ok {
			failed++
		}
	}
	return Result{Rule: RuleInSet, Column: column, Passed: failed == 0, FailedRows: failed}
}

// between checks min <= v <= max. Pass math.Inf(1) as max for a lower bound
// only.
func between(column string, values []float64, minVal, maxVal float64) Result {
	failed := 0
	for _, v := range values {
		if v < minVal || v > maxVal {
			failed++
		}
	}
	return Result{Rule: RuleBetween, Column: column, Passed: failed == 0, FailedRows: failed}
}

// ValidateInteractions runs the interaction expectation suite:
// user_id not null, interaction_id unique, event_type in the known set.
func ValidateInteractions(interactions []models.Interaction) SuiteResult {
	userIDs := make([]string, len(interactions))
	interactionIDs := make([]string, len(interactions))
	eventTypes := make([]string, len(interactions))
	for i, in := range interactions {
		userIDs[i] = in.UserID
		interactionIDs[i] = in.InteractionID
		eventTypes[i] = in.EventType
	}
	return finish(lakeDatasetInteractions, len(interactions),
		notNull("user_id", userIDs),
		unique("interaction_id", interactionIDs),
		inSet("event_type", eventTypes, models.KnownEventTypes),
	)
}

// ValidateProducts runs the product catalog expectation suite:
// id unique, category not null, price >= 0.01, rating.rate in [1, 5].
func ValidateProducts(products []models.Product) SuiteResult {
	ids := make([]string, len(products))
	categories := make([]string, len(products))
	prices := make([]float64, len(products))
	rates := make([]float64, len(products))
	for i, p := range products {
		ids[i] = strconv.Itoa(p.ID)
		categories[i] = p.Category
		prices[i] = p.Price
		rates[i] = p.Rating.Rate
	}
	return finish(lakeDatasetProducts, len(products),
		unique("id", ids),
		notNull("category", categories),
		between("price", prices, 0.01, math.Inf(1)),
		between("rating.rate", rates, 1, 5),
	)
}

// Dataset labels match the lake dataset names without importing the lake
// package (validation has no filesystem concerns).
const (
	lakeDatasetInteractions = "user_interactions"
	lakeDatasetProducts     = "product_catalog"
)

