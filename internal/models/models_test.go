// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package models

import (
	"testing"
	"time"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Rating
	}{
		{
			name: "json object",
			raw:  `{"rate": 3.9, "count": 120}`,
			want: Rating{Rate: 3.9, Count: 120},
		},
		{
			name: "python dict literal",
			raw:  `{'rate': 4.1, 'count': 259}`,
			want: Rating{Rate: 4.1, Count: 259},
		},
		{
			name: "whitespace padded",
			raw:  `  {"rate": 2.2, "count": 5} `,
			want: Rating{Rate: 2.2, Count: 5},
		},
		{name: "empty cell", raw: "", want: Rating{}},
		{name: "garbage yields zero rating", raw: "not-a-rating", want: Rating{}},
		{name: "truncated object yields zero rating", raw: `{"rate": 3.`, want: Rating{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRating(tt.raw); got != tt.want {
				t.Errorf("ParseRating(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestInteractionTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "upstream export layout",
			raw:  "2026-08-15 10:05:00",
			want: "2026-08-15T10:05:00Z",
		},
		{
			name: "rfc3339 fallback",
			raw:  "2026-08-15T10:05:00Z",
			want: "2026-08-15T10:05:00Z",
		},
		{name: "unparseable", raw: "15/08/2026", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interaction{Timestamp: tt.raw}.Time()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Time() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Time() error: %v", err)
			}
			if got.Format(time.RFC3339) != tt.want {
				t.Errorf("Time() = %s, want %s", got.Format(time.RFC3339), tt.want)
			}
		})
	}
}
