// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package recommend

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// englishStopWords covers the common function words that would otherwise
// dominate short category strings.
var englishStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"on": {}, "or": {}, "the": {}, "to": {}, "with": {},
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping
// single-character tokens and stop words. "Men's Clothing" -> [men clothing].
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := englishStopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Vectorizer builds term-frequency-inverse-document-frequency vectors over a
// document corpus. Vocabulary order is sorted-term order, so the mapping from
// corpus to matrix is deterministic.
type Vectorizer struct {
	vocab map[string]int
	idf   []float64
}

// Vocabulary returns the number of distinct terms seen during fitting.
func (v *Vectorizer) Vocabulary() int {
	return len(v.vocab)
}

// FitTransform learns the vocabulary and document frequencies from docs and
// returns one L2-normalized TF-IDF row per document. Smoothed inverse
// document frequency is used: idf(t) = ln((1+n)/(1+df(t))) + 1, which keeps
// every weight strictly positive.
func (v *Vectorizer) FitTransform(docs []string) [][]float64 {
	tokenized := make([][]string, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		tokenized[i] = tokenize(doc)
		seen := make(map[string]struct{}, len(tokenized[i]))
		for _, t := range tokenized[i] {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				df[t]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	n := float64(len(docs))
	for i, t := range terms {
		v.vocab[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	matrix := make([][]float64, len(docs))
	for i, tokens := range tokenized {
		row := make([]float64, len(terms))
		for _, t := range tokens {
			j := v.vocab[t]
			row[j] += v.idf[j]
		}
		l2Normalize(row)
		matrix[i] = row
	}
	return matrix
}

// l2Normalize scales a vector to unit euclidean length in place.
// The zero vector (an empty document) is left unchanged.
func l2Normalize(row []float64) {
	var sum float64
	for _, x := range row {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range row {
		row[i] /= norm
	}
}

// dot returns the inner product of two equal-length vectors. Over
// L2-normalized non-negative TF-IDF rows this is cosine similarity in [0, 1].
func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
