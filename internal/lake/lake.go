// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package lake manages the on-disk data lake: tiered directories per
// data-quality stage, timestamped batch directories, and the per-dataset
// batch index.
//
// Layout under the configured root:
//
//	bronze/user_interactions/dt_20260815_120000/interactions.csv
//	bronze/user_interactions/batches.json
//	bronze/product_catalog/dt_20260815_120000/products.csv
//	silver/...               (same datasets, validated)
//	gold/prepared/dt_.../recomart_gold_prepared.csv
//	feature_store/...        (feature tables, warehouse, registry)
//
// Batch discovery goes through batches.json, which records a monotonically
// increasing sequence number per batch. Directory-name ordering is only a
// fallback for layouts created before the index existed.
package lake

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Data-quality tiers.
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierFeatures = "feature_store"
)

// Dataset names within tiers.
const (
	DatasetInteractions  = "user_interactions"
	DatasetProducts      = "product_catalog"
	DatasetPrepared      = "prepared"
	DatasetFeatureTables = "feature_tables"
)

// ErrNoBatches is returned when a required dataset has no ingested batch.
// It is terminal for the current run and never corrupts prior state.
var ErrNoBatches = errors.New("no batches found")

// indexFile is the per-dataset batch index document.
const indexFile = "batches.json"

// batchIDLayout names batch directories after their ingestion timestamp.
const batchIDLayout = "dt_20060102_150405"

// Batch identifies one versioned batch directory of a dataset.
type Batch struct {
	Tier    string `json:"-"`
	Dataset string `json:"-"`

	// ID is the directory name (dt_<timestamp>).
	ID string `json:"id"`

	// Seq increases monotonically per dataset; the highest Seq is the
	// latest batch regardless of directory naming.
	Seq int `json:"seq"`

	CreatedAt time.Time `json:"created_at"`

	// Dir is the absolute batch directory path.
	Dir string `json:"-"`
}

type batchIndex struct {
	Batches []Batch `json:"batches"`
}

// Lake is a handle to the data lake root directory.
type Lake struct {
	root string
}

// New opens (creating if needed) a lake rooted at dir.
func New(dir string) (*Lake, error) {
	if dir == "" {
		return nil, errors.New("lake root must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lake root: %w", err)
	}
	return &Lake{root: dir}, nil
}

// Root returns the lake root directory.
func (l *Lake) Root() string {
	return l.root
}

// TierDir returns the directory for a tier, creating it if needed.
func (l *Lake) TierDir(tier string) (string, error) {
	dir := filepath.Join(l.root, tier)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create tier %s: %w", tier, err)
	}
	return dir, nil
}

func (l *Lake) datasetDir(tier, dataset string) string {
	return filepath.Join(l.root, tier, dataset)
}

// BatchID formats a batch directory name for an ingestion time.
func BatchID(ts time.Time) string {
	return ts.Format(batchIDLayout)
}

// CreateBatch creates a new batch directory named after ts and appends it to
// the dataset index. Existing batches are never touched.
func (l *Lake) CreateBatch(tier, dataset string, ts time.Time) (Batch, error) {
	return l.CreateBatchID(tier, dataset, BatchID(ts), ts)
}

// CreateBatchID creates a batch with an explicit ID. Promotion between tiers
// uses this to keep the originating batch ID across tiers.
func (l *Lake) CreateBatchID(tier, dataset, id string, ts time.Time) (Batch, error) {
	dir := filepath.Join(l.datasetDir(tier, dataset), id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Batch{}, fmt.Errorf("create batch %s/%s/%s: %w", tier, dataset, id, err)
	}

	idx, err := l.readIndex(tier, dataset)
	if err != nil {
		return Batch{}, err
	}

	seq := 1
	for _, b := range idx.Batches {
		if b.Seq >= seq {
			seq = b.Seq + 1
		}
		if b.ID == id {
			// Re-promotion of the same batch overwrites in place.
			return l.batchHandle(tier, dataset, b), nil
		}
	}

	b := Batch{ID: id, Seq: seq, CreatedAt: ts.UTC()}
	idx.Batches = append(idx.Batches, b)
	if err := l.writeIndex(tier, dataset, idx); err != nil {
		return Batch{}, err
	}
	return l.batchHandle(tier, dataset, b), nil
}

// LatestBatch resolves the most recent batch of a dataset via the index,
// falling back to a lexical directory scan for unindexed layouts.
// Returns ErrNoBatches when the dataset has never been ingested.
func (l *Lake) LatestBatch(tier, dataset string) (Batch, error) {
	idx, err := l.readIndex(tier, dataset)
	if err != nil {
		return Batch{}, err
	}
	if len(idx.Batches) > 0 {
		latest := idx.Batches[0]
		for _, b := range idx.Batches[1:] {
			if b.Seq > latest.Seq {
				latest = b
			}
		}
		return l.batchHandle(tier, dataset, latest), nil
	}

	// Fallback: lexical max over dt_* directories. Assumes timestamp
	// naming, which sorts chronologically.
	entries, err := os.ReadDir(l.datasetDir(tier, dataset))
	if err != nil {
		if os.IsNotExist(err) {
			return Batch{}, fmt.Errorf("%s/%s: %w", tier, dataset, ErrNoBatches)
		}
		return Batch{}, fmt.Errorf("scan %s/%s: %w", tier, dataset, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "dt_") {
			ids = append(ids, e.Name())
		}
	}
	if len(ids) == 0 {
		return Batch{}, fmt.Errorf("%s/%s: %w", tier, dataset, ErrNoBatches)
	}
	sort.Strings(ids)
	id := ids[len(ids)-1]
	return l.batchHandle(tier, dataset, Batch{ID: id}), nil
}

func (l *Lake) batchHandle(tier, dataset string, b Batch) Batch {
	b.Tier = tier
	b.Dataset = dataset
	b.Dir = filepath.Join(l.datasetDir(tier, dataset), b.ID)
	return b
}

func (l *Lake) indexPath(tier, dataset string) string {
	return filepath.Join(l.datasetDir(tier, dataset), indexFile)
}

func (l *Lake) readIndex(tier, dataset string) (batchIndex, error) {
	var idx batchIndex
	data, err := os.ReadFile(l.indexPath(tier, dataset))
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return idx, fmt.Errorf("read batch index %s/%s: %w", tier, dataset, err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("decode batch index %s/%s: %w", tier, dataset, err)
	}
	return idx, nil
}

func (l *Lake) writeIndex(tier, dataset string, idx batchIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode batch index: %w", err)
	}
	if err := os.WriteFile(l.indexPath(tier, dataset), data, 0o644); err != nil {
		return fmt.Errorf("write batch index %s/%s: %w", tier, dataset, err)
	}
	return nil
}
