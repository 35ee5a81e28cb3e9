// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/recomart/recomart/internal/validation"
)

func TestNewAudit(t *testing.T) {
	passing := validation.SuiteResult{Dataset: "user_interactions", Passed: true}
	failing := validation.SuiteResult{Dataset: "product_catalog", Passed: false}

	tests := []struct {
		name       string
		suites     []validation.SuiteResult
		wantPassed bool
	}{
		{name: "all suites pass", suites: []validation.SuiteResult{passing}, wantPassed: true},
		{name: "one failing suite fails the audit", suites: []validation.SuiteResult{passing, failing}, wantPassed: false},
		{name: "no suites pass vacuously", suites: nil, wantPassed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAudit("dt_20260815_100000", tt.suites...)
			if a.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v", a.Passed, tt.wantPassed)
			}
			if a.RunID != "dt_20260815_100000" {
				t.Errorf("RunID = %q", a.RunID)
			}
		})
	}
}

func TestAuditWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validation_audit.json")
	a := NewAudit("dt_20260815_100000", validation.SuiteResult{
		Dataset: "user_interactions",
		Rows:    2,
		Passed:  true,
		Results: []validation.Result{
			{Rule: validation.RuleNotNull, Column: "user_id", Passed: true},
		},
	})

	if err := a.Write(path); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	var got Audit
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if !got.Passed || got.RunID != a.RunID || len(got.Suites) != 1 {
		t.Errorf("round trip = %+v", got)
	}
	if got.Suites[0].Results[0].Rule != validation.RuleNotNull {
		t.Errorf("suite results lost: %+v", got.Suites[0])
	}
}
