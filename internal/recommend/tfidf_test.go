// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package recommend

import (
	"math"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "apostrophe splits", text: "men's clothing", want: []string{"men", "clothing"}},
		{name: "lowercases", text: "Women's Clothing", want: []string{"women", "clothing"}},
		{name: "drops stop words", text: "the best of electronics", want: []string{"best", "electronics"}},
		{name: "drops single characters", text: "a b jewelery", want: []string{"jewelery"}},
		{name: "keeps digits", text: "4k monitors", want: []string{"4k", "monitors"}},
		{name: "empty text", text: "", want: nil},
		{name: "punctuation only", text: "-- !!", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestVectorizerFitTransform(t *testing.T) {
	docs := []string{"electronics", "electronics", "jewelery"}

	var v Vectorizer
	matrix := v.FitTransform(docs)

	if v.Vocabulary() != 2 {
		t.Fatalf("Vocabulary() = %d, want 2", v.Vocabulary())
	}
	if len(matrix) != 3 {
		t.Fatalf("FitTransform() returned %d rows, want 3", len(matrix))
	}

	// Identical documents embed identically; distinct categories are
	// orthogonal in a one-term-per-document corpus.
	if !reflect.DeepEqual(matrix[0], matrix[1]) {
		t.Errorf("identical docs produced different rows: %v vs %v", matrix[0], matrix[1])
	}
	if got := dot(matrix[0], matrix[2]); got != 0 {
		t.Errorf("dot(electronics, jewelery) = %f, want 0", got)
	}
	if got := dot(matrix[0], matrix[1]); math.Abs(got-1) > 1e-9 {
		t.Errorf("dot(electronics, electronics) = %f, want 1", got)
	}
}

func TestVectorizerRowsAreUnitLength(t *testing.T) {
	docs := []string{"men's clothing", "women's clothing", "electronics"}

	var v Vectorizer
	for i, row := range v.FitTransform(docs) {
		var sum float64
		for _, x := range row {
			sum += x * x
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d: squared norm = %f, want 1", i, sum)
		}
	}
}

func TestVectorizerSmoothedIDF(t *testing.T) {
	// Smoothing keeps a term present in every document strictly positive.
	docs := []string{"clothing shoes", "clothing hats"}

	var v Vectorizer
	matrix := v.FitTransform(docs)

	shared := dot(matrix[0], matrix[1])
	if shared <= 0 {
		t.Errorf("docs sharing a ubiquitous term have similarity %f, want > 0", shared)
	}
	if shared >= 1 {
		t.Errorf("partially overlapping docs have similarity %f, want < 1", shared)
	}
}

func TestVectorizerEmptyDocuments(t *testing.T) {
	docs := []string{"", "electronics"}

	var v Vectorizer
	matrix := v.FitTransform(docs)

	// The empty document stays the zero vector.
	for j, x := range matrix[0] {
		if x != 0 {
			t.Errorf("empty doc row[%d] = %f, want 0", j, x)
		}
	}
	if got := dot(matrix[0], matrix[1]); got != 0 {
		t.Errorf("dot(empty, electronics) = %f, want 0", got)
	}
}
