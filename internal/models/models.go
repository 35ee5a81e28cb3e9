// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package models defines the record types exchanged between pipeline stages.
//
// Each stage boundary has an explicit schema: raw records are decoded and
// validated once at stage ingress instead of trusting loosely-typed rows
// downstream. Upstream sources may carry extra columns; decoding projects
// only the fields declared here.
package models

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Known event types for implicit-feedback interactions.
const (
	EventView      = "view"
	EventClick     = "click"
	EventAddToCart = "add_to_cart"
	EventPurchase  = "purchase"
)

// KnownEventTypes is the closed set accepted by validation. Unknown types
// still flow through weighting (with the default weight); validation flags
// them before promotion.
var KnownEventTypes = []string{EventView, EventClick, EventAddToCart, EventPurchase}

// Interaction is a single raw user-product interaction event.
// Interactions are immutable once ingested.
type Interaction struct {
	// InteractionID uniquely identifies the event.
	InteractionID string `json:"interaction_id" validate:"required"`

	// UserID is the acting user.
	UserID string `json:"user_id" validate:"required"`

	// ProductID references a product catalog entry.
	ProductID int `json:"product_id" validate:"required"`

	// EventType is one of the known event types, or an unknown string
	// which weighting treats as a baseline signal.
	EventType string `json:"event_type" validate:"required"`

	// Device is the client device class (mobile_app, desktop_browser, ...).
	Device string `json:"device"`

	// Timestamp is the raw event time as ingested. Use Time to parse.
	Timestamp string `json:"timestamp" validate:"required"`

	// SessionID groups events within a browsing session.
	SessionID string `json:"session_id"`
}

// timestampLayout matches the upstream interaction export format.
const timestampLayout = "2006-01-02 15:04:05"

// Time parses the raw timestamp. The upstream export format is tried first,
// then RFC3339. The zero time and an error are returned for anything else.
func (i Interaction) Time() (time.Time, error) {
	if t, err := time.Parse(timestampLayout, i.Timestamp); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, i.Timestamp)
}

// Rating is the nested product rating structure.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// ParseRating decodes a serialized rating cell defensively. Catalog exports
// carry the rating as a JSON object, but CSV round-trips through other tools
// produce python-style dict literals ({'rate': 3.9, 'count': 120}). A value
// that fails both forms yields the zero Rating rather than an error.
func ParseRating(raw string) Rating {
	var r Rating
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Rating{}
	}
	if err := json.Unmarshal([]byte(raw), &r); err == nil {
		return r
	}
	// Python dict literal: single quotes instead of double quotes.
	if err := json.Unmarshal([]byte(strings.ReplaceAll(raw, "'", `"`)), &r); err == nil {
		return r
	}
	return Rating{}
}

// Product is a catalog record as served by the product API.
type Product struct {
	ID          int     `json:"id" validate:"required"`
	Title       string  `json:"title"`
	Price       float64 `json:"price" validate:"gt=0"`
	Description string  `json:"description"`
	Category    string  `json:"category" validate:"required"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

// WeightedInteraction is an interaction with its derived implicit-feedback
// weight attached.
type WeightedInteraction struct {
	Interaction

	// Weight is the event-type score (view 1, click 2, add_to_cart 5,
	// purchase 10; anything else 1).
	Weight float64 `json:"interaction_weight"`
}

// PreparedRecord is a gold-tier row: a weighted interaction enriched with
// item-side attributes from the product catalog.
type PreparedRecord struct {
	WeightedInteraction

	// Matched reports whether the product join found a catalog entry.
	// Unmatched rows keep empty item-side fields.
	Matched bool `json:"matched"`

	Category   string  `json:"category"`
	NormPrice  float64 `json:"norm_price"`
	NormRating float64 `json:"norm_rating"`
}

// UserFeatures summarizes a user's activity. Recomputed per run; the user ID
// is the only persistent identity.
type UserFeatures struct {
	UserID        string    `json:"user_id"`
	ActivityCount int       `json:"user_activity_count"`
	AvgAffinity   float64   `json:"user_avg_affinity"`
	TotalScore    float64   `json:"user_total_score"`
	LastActiveTS  time.Time `json:"last_active_ts"`
}

// ItemFeatures summarizes a product's interaction profile and carries its
// normalized catalog attributes.
type ItemFeatures struct {
	ProductID        int     `json:"product_id"`
	InteractionCount int     `json:"item_interaction_count"`
	AvgAffinity      float64 `json:"item_avg_affinity"`
	NormPrice        float64 `json:"norm_price"`
	NormRating       float64 `json:"norm_rating"`
	Category         string  `json:"category"`

	// PopularityScore is log1p of the interaction count, damping
	// blockbuster bias.
	PopularityScore float64 `json:"global_popularity_score"`
}

// AffinityPair is one sparse row of the user-item affinity matrix.
// Rows are unique per (UserID, ProductID).
type AffinityPair struct {
	UserID        string  `json:"user_id"`
	ProductID     int     `json:"product_id"`
	AffinityScore float64 `json:"affinity_score"`
}
