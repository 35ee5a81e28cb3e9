// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package validation

import (
	"testing"

	"github.com/recomart/recomart/internal/models"
)

func interaction(id, user string, event string) models.Interaction {
	return models.Interaction{
		InteractionID: id,
		UserID:        user,
		ProductID:     1,
		EventType:     event,
		Timestamp:     "2026-08-15 10:00:00",
	}
}

func findResult(t *testing.T, s SuiteResult, rule, column string) Result {
	t.Helper()
	for _, r := range s.Results {
		if r.Rule == rule && r.Column == column {
			return r
		}
	}
	t.Fatalf("suite %s has no result for %s/%s", s.Dataset, rule, column)
	return Result{}
}

func TestValidateInteractions(t *testing.T) {
	tests := []struct {
		name         string
		interactions []models.Interaction
		wantPassed   bool
		verify       func(t *testing.T, s SuiteResult)
	}{
		{
			name: "clean batch passes",
			interactions: []models.Interaction{
				interaction("e1", "U1", models.EventView),
				interaction("e2", "U2", models.EventPurchase),
			},
			wantPassed: true,
		},
		{
			name:         "empty batch passes vacuously",
			interactions: nil,
			wantPassed:   true,
		},
		{
			name: "missing user_id fails",
			interactions: []models.Interaction{
				interaction("e1", "", models.EventView),
			},
			wantPassed: false,
			verify: func(t *testing.T, s SuiteResult) {
				r := findResult(t, s, RuleNotNull, "user_id")
				if r.FailedRows != 1 {
					t.Errorf("user_id not_null FailedRows = %d, want 1", r.FailedRows)
				}
			},
		},
		{
			name: "duplicate interaction_id counts extras only",
			interactions: []models.Interaction{
				interaction("e1", "U1", models.EventView),
				interaction("e1", "U2", models.EventView),
				interaction("e1", "U3", models.EventView),
			},
			wantPassed: false,
			verify: func(t *testing.T, s SuiteResult) {
				r := findResult(t, s, RuleUnique, "interaction_id")
				if r.FailedRows != 2 {
					t.Errorf("interaction_id unique FailedRows = %d, want 2", r.FailedRows)
				}
			},
		},
		{
			name: "unknown event_type fails",
			interactions: []models.Interaction{
				interaction("e1", "U1", "teleport"),
			},
			wantPassed: false,
			verify: func(t *testing.T, s SuiteResult) {
				r := findResult(t, s, RuleInSet, "event_type")
				if r.FailedRows != 1 {
					t.Errorf("event_type in_set FailedRows = %d, want 1", r.FailedRows)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ValidateInteractions(tt.interactions)
			if s.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v (results: %+v)", s.Passed, tt.wantPassed, s.Results)
			}
			if s.Rows != len(tt.interactions) {
				t.Errorf("Rows = %d, want %d", s.Rows, len(tt.interactions))
			}
			if tt.verify != nil {
				tt.verify(t, s)
			}
		})
	}
}

func TestValidateProducts(t *testing.T) {
	valid := models.Product{ID: 1, Price: 9.99, Category: "electronics", Rating: models.Rating{Rate: 4.5}}

	tests := []struct {
		name       string
		products   []models.Product
		wantPassed bool
		failRule   string
		failColumn string
	}{
		{
			name:       "clean catalog passes",
			products:   []models.Product{valid},
			wantPassed: true,
		},
		{
			name: "duplicate id fails",
			products: []models.Product{
				valid,
				{ID: 1, Price: 5, Category: "jewelery", Rating: models.Rating{Rate: 3}},
			},
			wantPassed: false,
			failRule:   RuleUnique,
			failColumn: "id",
		},
		{
			name: "empty category fails",
			products: []models.Product{
				{ID: 2, Price: 5, Rating: models.Rating{Rate: 3}},
			},
			wantPassed: false,
			failRule:   RuleNotNull,
			failColumn: "category",
		},
		{
			name: "zero price fails lower bound",
			products: []models.Product{
				{ID: 2, Price: 0, Category: "electronics", Rating: models.Rating{Rate: 3}},
			},
			wantPassed: false,
			failRule:   RuleBetween,
			failColumn: "price",
		},
		{
			name: "rating outside 1..5 fails",
			products: []models.Product{
				{ID: 2, Price: 5, Category: "electronics", Rating: models.Rating{Rate: 5.5}},
			},
			wantPassed: false,
			failRule:   RuleBetween,
			failColumn: "rating.rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ValidateProducts(tt.products)
			if s.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v (results: %+v)", s.Passed, tt.wantPassed, s.Results)
			}
			if tt.failRule != "" {
				r := findResult(t, s, tt.failRule, tt.failColumn)
				if r.Passed {
					t.Errorf("%s/%s passed, want failure", tt.failRule, tt.failColumn)
				}
			}
		})
	}
}
