// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package metrics provides Prometheus collectors for pipeline observability.
// The serve command exposes them at /metrics in Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stage Metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stage executions in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	StageRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_runs_total",
			Help: "Total pipeline stage executions",
		},
		[]string{"stage", "status"}, // status: success, failure
	)

	// Ingestion Metrics
	IngestedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_total",
			Help: "Total rows ingested into the bronze tier",
		},
		[]string{"source"}, // user_interactions, product_catalog
	)

	IngestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_retries_total",
			Help: "Total ingestion request retries",
		},
		[]string{"source"},
	)

	// Validation Metrics
	ValidationFailedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_failed_rows_total",
			Help: "Rows failing data-quality expectations",
		},
		[]string{"dataset", "rule", "column"},
	)

	// Preparation Metrics
	UnmatchedInteractions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prepare_unmatched_interactions_total",
			Help: "Interactions referencing products missing from the catalog",
		},
	)

	MatrixSparsity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_matrix_sparsity_ratio",
			Help: "Sparsity of the user-item affinity matrix (0-1)",
		},
	)

	// Warehouse Metrics
	WarehouseRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warehouse_table_rows",
			Help: "Rows loaded into each feature warehouse table",
		},
		[]string{"table"},
	)

	// Serving Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total recommendation queries served",
		},
		[]string{"status"}, // ok, not_found, error
	)

	OnlineLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "online_feature_lookups_total",
			Help: "Total online feature store lookups",
		},
		[]string{"view", "status"}, // status: hit, miss, error
	)
)
