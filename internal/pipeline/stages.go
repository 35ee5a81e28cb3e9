// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/recomart/recomart/internal/config"
	"github.com/recomart/recomart/internal/features"
	"github.com/recomart/recomart/internal/featurestore"
	"github.com/recomart/recomart/internal/ingest"
	"github.com/recomart/recomart/internal/lake"
	"github.com/recomart/recomart/internal/logging"
	"github.com/recomart/recomart/internal/metrics"
	"github.com/recomart/recomart/internal/models"
	"github.com/recomart/recomart/internal/recommend"
	"github.com/recomart/recomart/internal/report"
	"github.com/recomart/recomart/internal/validation"
)

// Stage names, used for metrics labels and CLI subcommands alike.
const (
	StageIngest    = "ingest"
	StageValidate  = "validate"
	StagePrepare   = "prepare"
	StageTransform = "transform"
	StageRegister  = "register"
	StageTrain     = "train"
)

// ErrValidationFailed marks a run stopped by the data-quality gate. The
// failing batch stays in bronze; silver is never written from failed data.
var ErrValidationFailed = errors.New("validation suite failed")

// registryFile is the feature view registry document inside the
// feature_store tier.
const registryFile = "metadata_registry.json"

// auditFile is the data-quality audit written next to the silver tier.
const auditFile = "validation_audit.json"

// Pipeline wires the six batch stages over one lake and configuration.
type Pipeline struct {
	cfg  *config.Config
	lake *lake.Lake

	// now is stubbed in tests to pin batch IDs.
	now func() time.Time
}

// New creates a pipeline over the configured lake root.
func New(cfg *config.Config) (*Pipeline, error) {
	lk, err := lake.New(cfg.Lake.Root)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, lake: lk, now: time.Now}, nil
}

// Lake exposes the underlying lake handle.
func (p *Pipeline) Lake() *lake.Lake {
	return p.lake
}

// WarehousePath resolves the DuckDB file, defaulting into the feature_store
// tier.
func (p *Pipeline) WarehousePath() string {
	if p.cfg.Registry.WarehousePath != "" {
		return p.cfg.Registry.WarehousePath
	}
	return filepath.Join(p.lake.Root(), lake.TierFeatures, "recomart.duckdb")
}

// OnlineStoreDir resolves the BadgerDB directory, defaulting into the
// feature_store tier.
func (p *Pipeline) OnlineStoreDir() string {
	if p.cfg.Registry.OnlineStoreDir != "" {
		return p.cfg.Registry.OnlineStoreDir
	}
	return filepath.Join(p.lake.Root(), lake.TierFeatures, "online")
}

// RegistryPath resolves the feature view registry document.
func (p *Pipeline) RegistryPath() string {
	return filepath.Join(p.lake.Root(), lake.TierFeatures, registryFile)
}

// Stages returns the full stage sequence in execution order.
func (p *Pipeline) Stages() []Stage {
	return []Stage{
		p.IngestStage(),
		p.ValidateStage(),
		p.PrepareStage(),
		p.TransformStage(),
		p.RegisterStage(),
		p.TrainStage(),
	}
}

// StageByName resolves a single stage for standalone invocation.
func (p *Pipeline) StageByName(name string) (Stage, error) {
	for _, s := range p.Stages() {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown stage %q", name)
}

// IngestStage pulls both raw sources into new bronze batches. The two sources
// are isolated: a failure in one does not stop the other, and the stage fails
// only after both have been attempted.
func (p *Pipeline) IngestStage() Stage {
	return funcStage{name: StageIngest, run: func(ctx context.Context) error {
		ts := p.now().UTC()
		client := ingest.NewClient(ingest.Options{
			Timeout:                 p.cfg.Ingest.Timeout,
			MaxRetries:              p.cfg.Ingest.MaxRetries,
			RetryInitialInterval:    p.cfg.Ingest.RetryInitialInterval,
			RateLimit:               p.cfg.Ingest.RateLimit,
			BreakerFailureThreshold: p.cfg.Ingest.BreakerFailureThreshold,
			BreakerTimeout:          p.cfg.Ingest.BreakerTimeout,
		})

		var errInteractions, errProducts error

		interactions, err := ingest.ReadInteractions(p.cfg.Ingest.InteractionsPath)
		if err != nil {
			errInteractions = err
		} else {
			batch, err := p.lake.CreateBatch(lake.TierBronze, lake.DatasetInteractions, ts)
			if err == nil {
				err = lake.WriteInteractions(filepath.Join(batch.Dir, lake.InteractionsFile), interactions)
			}
			if err != nil {
				errInteractions = err
			} else {
				metrics.IngestedRows.WithLabelValues(lake.DatasetInteractions).Add(float64(len(interactions)))
				logging.Info().
					Str("batch", batch.ID).
					Int("rows", len(interactions)).
					Msg("Ingested interaction events")
			}
		}

		products, err := client.FetchProducts(ctx, p.cfg.Ingest.ProductsURL)
		if err != nil {
			errProducts = err
		} else {
			batch, err := p.lake.CreateBatch(lake.TierBronze, lake.DatasetProducts, ts)
			if err == nil {
				err = lake.WriteProducts(filepath.Join(batch.Dir, lake.ProductsFile), products)
			}
			if err != nil {
				errProducts = err
			} else {
				metrics.IngestedRows.WithLabelValues(lake.DatasetProducts).Add(float64(len(products)))
				logging.Info().
					Str("batch", batch.ID).
					Int("rows", len(products)).
					Msg("Ingested product catalog")
			}
		}

		return errors.Join(errInteractions, errProducts)
	}}
}

// ValidateStage gates the latest bronze batches through the expectation
// suites, writes the audit document, and promotes passing data to silver
// under the same batch ID. Any failed suite stops the run before promotion.
func (p *Pipeline) ValidateStage() Stage {
	return funcStage{name: StageValidate, run: func(ctx context.Context) error {
		ib, err := p.lake.LatestBatch(lake.TierBronze, lake.DatasetInteractions)
		if err != nil {
			return err
		}
		pb, err := p.lake.LatestBatch(lake.TierBronze, lake.DatasetProducts)
		if err != nil {
			return err
		}

		interactions, err := lake.ReadInteractions(filepath.Join(ib.Dir, lake.InteractionsFile))
		if err != nil {
			return err
		}
		products, err := lake.ReadProducts(filepath.Join(pb.Dir, lake.ProductsFile))
		if err != nil {
			return err
		}

		iSuite := validation.ValidateInteractions(interactions)
		pSuite := validation.ValidateProducts(products)
		for _, suite := range []validation.SuiteResult{iSuite, pSuite} {
			for _, r := range suite.Results {
				if r.FailedRows > 0 {
					metrics.ValidationFailedRows.
						WithLabelValues(suite.Dataset, r.Rule, r.Column).
						Add(float64(r.FailedRows))
				}
				logging.Info().
					Str("dataset", suite.Dataset).
					Str("rule", r.Rule).
					Str("column", r.Column).
					Bool("passed", r.Passed).
					Int("failed_rows", r.FailedRows).
					Msg("Expectation evaluated")
			}
		}

		audit := report.NewAudit(ib.ID, iSuite, pSuite)
		silverDir, err := p.lake.TierDir(lake.TierSilver)
		if err != nil {
			return err
		}
		if err := audit.Write(filepath.Join(silverDir, auditFile)); err != nil {
			return err
		}

		if !audit.Passed {
			return fmt.Errorf("batches %s/%s: %w", ib.ID, pb.ID, ErrValidationFailed)
		}

		// Promotion keeps the bronze batch IDs so lineage stays traceable
		// across tiers.
		isb, err := p.lake.CreateBatchID(lake.TierSilver, lake.DatasetInteractions, ib.ID, p.now().UTC())
		if err != nil {
			return err
		}
		if err := lake.WriteInteractions(filepath.Join(isb.Dir, lake.SilverInteractionsFile), interactions); err != nil {
			return err
		}
		psb, err := p.lake.CreateBatchID(lake.TierSilver, lake.DatasetProducts, pb.ID, p.now().UTC())
		if err != nil {
			return err
		}
		if err := lake.WriteProducts(filepath.Join(psb.Dir, lake.SilverProductsFile), products); err != nil {
			return err
		}

		logging.Info().
			Str("interactions_batch", ib.ID).
			Str("products_batch", pb.ID).
			Msg("Validation passed, batches promoted to silver")
		return nil
	}}
}

// PrepareStage weights the latest silver interactions, normalizes catalog
// attributes, and left-joins them into a gold prepared batch.
func (p *Pipeline) PrepareStage() Stage {
	return funcStage{name: StagePrepare, run: func(ctx context.Context) error {
		ib, err := p.lake.LatestBatch(lake.TierSilver, lake.DatasetInteractions)
		if err != nil {
			return err
		}
		pb, err := p.lake.LatestBatch(lake.TierSilver, lake.DatasetProducts)
		if err != nil {
			return err
		}

		interactions, err := lake.ReadInteractions(filepath.Join(ib.Dir, lake.SilverInteractionsFile))
		if err != nil {
			return err
		}
		products, err := lake.ReadProducts(filepath.Join(pb.Dir, lake.SilverProductsFile))
		if err != nil {
			return err
		}

		catalog := features.NormalizeProducts(products)
		weighter := features.NewWeighter(p.cfg.Features.EventWeights)
		records, stats := features.Prepare(weighter, interactions, catalog)
		metrics.UnmatchedInteractions.Add(float64(stats.Unmatched))

		batch, err := p.lake.CreateBatchID(lake.TierGold, lake.DatasetPrepared, ib.ID, p.now().UTC())
		if err != nil {
			return err
		}
		if err := lake.WritePrepared(filepath.Join(batch.Dir, lake.GoldPreparedFile), records); err != nil {
			return err
		}

		if p.cfg.Features.EDADir != "" {
			chart := filepath.Join(p.cfg.Features.EDADir, "item_popularity.png")
			if err := report.PopularityHistogram(records, chart); err != nil {
				// Exploratory charts are best-effort.
				logging.Warn().Err(err).Str("path", chart).Msg("Popularity chart failed")
			}
		}

		logging.Info().
			Str("batch", batch.ID).
			Int("rows", stats.Rows).
			Int("unmatched", stats.Unmatched).
			Msg("Prepared gold batch")
		return nil
	}}
}

// TransformStage aggregates the latest gold batch into the three feature
// tables, writes them as CSV artifacts, and loads them into the warehouse.
func (p *Pipeline) TransformStage() Stage {
	return funcStage{name: StageTransform, run: func(ctx context.Context) error {
		gb, err := p.lake.LatestBatch(lake.TierGold, lake.DatasetPrepared)
		if err != nil {
			return err
		}
		records, err := lake.ReadPrepared(filepath.Join(gb.Dir, lake.GoldPreparedFile))
		if err != nil {
			return err
		}

		agg := features.Aggregate(records)
		metrics.MatrixSparsity.Set(agg.Sparsity())

		batch, err := p.lake.CreateBatchID(lake.TierFeatures, lake.DatasetFeatureTables, gb.ID, p.now().UTC())
		if err != nil {
			return err
		}
		if err := lake.WriteUserFeatures(filepath.Join(batch.Dir, lake.UserFeaturesFile), agg.Users); err != nil {
			return err
		}
		if err := lake.WriteItemFeatures(filepath.Join(batch.Dir, lake.ItemFeaturesFile), agg.Items); err != nil {
			return err
		}
		if err := lake.WriteAffinityPairs(filepath.Join(batch.Dir, lake.AffinityMatrixFile), agg.Pairs); err != nil {
			return err
		}

		wh, err := featurestore.OpenWarehouse(p.WarehousePath())
		if err != nil {
			return err
		}
		defer wh.Close()

		if err := wh.LoadUserFeatures(ctx, agg.Users); err != nil {
			return err
		}
		if err := wh.LoadItemFeatures(ctx, agg.Items); err != nil {
			return err
		}
		if err := wh.LoadAffinityPairs(ctx, agg.Pairs); err != nil {
			return err
		}

		// Read-back verification: loaded row counts must match the
		// aggregates the stage just wrote.
		wantRows := map[string]int{
			featurestore.TableUserFeatures:  len(agg.Users),
			featurestore.TableItemFeatures:  len(agg.Items),
			featurestore.TableAffinityPairs: len(agg.Pairs),
		}
		for table, want := range wantRows {
			got, err := wh.TableCount(ctx, table)
			if err != nil {
				return err
			}
			if got != want {
				return fmt.Errorf("warehouse table %s holds %d rows after load, want %d", table, got, want)
			}
		}

		logging.Info().
			Str("batch", batch.ID).
			Int("users", len(agg.Users)).
			Int("items", len(agg.Items)).
			Int("pairs", len(agg.Pairs)).
			Float64("sparsity", agg.Sparsity()).
			Msg("Feature tables transformed and loaded")
		return nil
	}}
}

// viewSpec declares one feature view registered from a feature-table
// artifact.
type viewSpec struct {
	name      string
	file      string
	entityKey string
	features  []string
}

// featureViews are the views registered from each feature_tables batch.
var featureViews = []viewSpec{
	{
		name:      "user_signals",
		file:      lake.UserFeaturesFile,
		entityKey: "user_id",
		features:  []string{"user_activity_count", "user_avg_affinity", "user_total_score"},
	},
	{
		name:      "item_signals",
		file:      lake.ItemFeaturesFile,
		entityKey: "product_id",
		features:  []string{"item_interaction_count", "global_popularity_score", "norm_rating"},
	},
	{
		name:      "affinity_matrix",
		file:      lake.AffinityMatrixFile,
		entityKey: "user_id",
		features:  []string{"product_id", "affinity_score"},
	},
}

// RegisterStage records the feature views against the latest feature-table
// batch and materializes each view's projection into the online store.
func (p *Pipeline) RegisterStage() Stage {
	return funcStage{name: StageRegister, run: func(ctx context.Context) error {
		batch, err := p.lake.LatestBatch(lake.TierFeatures, lake.DatasetFeatureTables)
		if err != nil {
			return err
		}

		registry := featurestore.NewRegistry(p.RegistryPath())
		online, err := featurestore.OpenOnlineStore(p.OnlineStoreDir())
		if err != nil {
			return err
		}
		defer online.Close()

		for _, spec := range featureViews {
			source := filepath.Join(batch.Dir, spec.file)
			if err := registry.Register(spec.name, source, spec.entityKey, spec.features, p.cfg.Registry.Version); err != nil {
				return err
			}
			frame, err := registry.GetHistorical(spec.name)
			if err != nil {
				return err
			}
			view, err := registry.View(spec.name)
			if err != nil {
				return err
			}
			if err := online.Materialize(view, frame); err != nil {
				return err
			}
			logging.Info().
				Str("view", spec.name).
				Str("version", p.cfg.Registry.Version).
				Int("rows", len(frame.Rows)).
				Msg("Feature view registered and materialized")
		}
		return nil
	}}
}

// TrainStage fits the content-similarity model from the warehouse's item
// features and logs a sample recommendation as a smoke signal.
func (p *Pipeline) TrainStage() Stage {
	return funcStage{name: StageTrain, run: func(ctx context.Context) error {
		wh, err := featurestore.OpenWarehouse(p.WarehousePath())
		if err != nil {
			return err
		}
		defer wh.Close()

		model, items, err := p.Train(ctx, wh)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return errors.New("no item features available for training")
		}

		sample := items[0].ProductID
		recs, err := model.Recommend(sample, p.cfg.Recommend.TopK)
		if err != nil {
			return err
		}
		for _, r := range recs {
			logging.Info().
				Int("anchor", sample).
				Int("product_id", r.ProductID).
				Str("category", r.Category).
				Float64("score", r.Score).
				Msg("Sample recommendation")
		}
		return nil
	}}
}

// Train reads back the item feature table from an open warehouse and fits a
// fresh content-similarity model. The serve command uses this directly,
// keeping the warehouse handle alive for request-time queries.
func (p *Pipeline) Train(ctx context.Context, wh *featurestore.Warehouse) (*recommend.ContentSimilarity, []models.ItemFeatures, error) {
	items, err := wh.ItemFeatures(ctx)
	if err != nil {
		return nil, nil, err
	}

	model := recommend.NewContentSimilarity()
	if err := model.Train(ctx, items); err != nil {
		return nil, nil, err
	}
	logging.Info().
		Int("items", len(items)).
		Int("version", model.Version()).
		Msg("Content similarity model trained")
	return model, items, nil
}
