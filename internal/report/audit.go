// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package report produces the human-facing artifacts of a pipeline run: the
// data-quality audit document and exploratory charts.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/recomart/recomart/internal/validation"
)

// Audit is the data-quality audit document for one validation run. It keeps
// the expectation-level breakdown alongside the overall verdict.
type Audit struct {
	RunID      string                   `json:"run_id"`
	ExecutedAt time.Time                `json:"executed_at"`
	Passed     bool                     `json:"passed"`
	Suites     []validation.SuiteResult `json:"suites"`
}

// NewAudit assembles an audit document from suite results.
func NewAudit(runID string, suites ...validation.SuiteResult) Audit {
	a := Audit{RunID: runID, ExecutedAt: time.Now().UTC(), Passed: true, Suites: suites}
	for _, s := range suites {
		if !s.Passed {
			a.Passed = false
		}
	}
	return a
}

// Write persists the audit document as indented JSON.
func (a Audit) Write(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode audit report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write audit report: %w", err)
	}
	return nil
}
