// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package pipeline sequences the batch stages. The orchestrator treats each
// stage as an opaque unit of work: a stage either completes or raises a
// single fatal StageError; partial success is not a recognized state at this
// boundary. Stages run strictly sequentially - each consumes the previous
// stage's persisted output.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recomart/recomart/internal/logging"
	"github.com/recomart/recomart/internal/metrics"
)

// Stage is one orchestrated unit of work.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// StageError is the single fatal signal summarizing a failed stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// funcStage adapts a function to the Stage interface.
type funcStage struct {
	name string
	run  func(ctx context.Context) error
}

func (s funcStage) Name() string                  { return s.name }
func (s funcStage) Run(ctx context.Context) error { return s.run(ctx) }

// Orchestrator runs stages in order, halting at the first failure. Stages
// downstream of a failure never execute.
type Orchestrator struct {
	runID  string
	stages []Stage
}

// NewOrchestrator creates an orchestrator over the given stages.
func NewOrchestrator(stages ...Stage) *Orchestrator {
	return &Orchestrator{
		runID:  uuid.NewString(),
		stages: stages,
	}
}

// RunID returns the identifier spanning this orchestrated run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run executes the stages sequentially. The returned error, if any, is a
// *StageError naming the failed stage.
func (o *Orchestrator) Run(ctx context.Context) error {
	log := logging.With().Str("run_id", o.runID).Logger()
	log.Info().Int("stages", len(o.stages)).Msg("Pipeline run starting")

	for _, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: stage.Name(), Err: err}
		}

		start := time.Now()
		err := stage.Run(ctx)
		elapsed := time.Since(start)
		metrics.StageDuration.WithLabelValues(stage.Name()).Observe(elapsed.Seconds())

		if err != nil {
			metrics.StageRuns.WithLabelValues(stage.Name(), "failure").Inc()
			log.Error().
				Err(err).
				Str("stage", stage.Name()).
				Dur("elapsed", elapsed).
				Msg("Stage failed, halting run")
			return &StageError{Stage: stage.Name(), Err: err}
		}

		metrics.StageRuns.WithLabelValues(stage.Name(), "success").Inc()
		log.Info().
			Str("stage", stage.Name()).
			Dur("elapsed", elapsed).
			Msg("Stage complete")
	}

	log.Info().Msg("Pipeline run complete")
	return nil
}
