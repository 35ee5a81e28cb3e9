// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Command recomart drives the batch feature pipeline and the inference
// server. Each pipeline stage is also exposed as a standalone subcommand for
// scheduled or ad-hoc execution.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recomart/recomart/internal/config"
	"github.com/recomart/recomart/internal/featurestore"
	"github.com/recomart/recomart/internal/logging"
	"github.com/recomart/recomart/internal/pipeline"
	"github.com/recomart/recomart/internal/server"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "recomart",
		Short:         "RecoMart recommendation feature pipeline",
		Long:          "RecoMart ingests e-commerce interaction data, engineers user and item\nfeatures through a tiered data lake, and serves content-based\nrecommendations from the resulting feature store.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: config.yaml, CONFIG_PATH)")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logging.Init(logging.Config{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			Timestamp: true,
		})
		return cfg, nil
	}

	root.AddCommand(newRunCmd(loadConfig))
	root.AddCommand(newServeCmd(loadConfig))
	for _, stage := range []struct {
		name, short string
	}{
		{pipeline.StageIngest, "Pull raw sources into the bronze tier"},
		{pipeline.StageValidate, "Validate bronze batches and promote to silver"},
		{pipeline.StagePrepare, "Weight and join silver data into a gold batch"},
		{pipeline.StageTransform, "Aggregate feature tables and load the warehouse"},
		{pipeline.StageRegister, "Register feature views and materialize online rows"},
		{pipeline.StageTrain, "Fit the content similarity model"},
	} {
		root.AddCommand(newStageCmd(loadConfig, stage.name, stage.short))
	}
	return root
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newRunCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := pipeline.New(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return pipeline.NewOrchestrator(p.Stages()...).Run(ctx)
		},
	}
}

func newStageCmd(loadConfig func() (*config.Config, error), name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := pipeline.New(cfg)
			if err != nil {
				return err
			}
			stage, err := p.StageByName(name)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return pipeline.NewOrchestrator(stage).Run(ctx)
		},
	}
}

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations and online features over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := pipeline.New(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			warehouse, err := featurestore.OpenWarehouse(p.WarehousePath())
			if err != nil {
				return err
			}
			defer warehouse.Close()

			model, _, err := p.Train(ctx, warehouse)
			if err != nil {
				return fmt.Errorf("build model from warehouse: %w", err)
			}

			registry := featurestore.NewRegistry(p.RegistryPath())
			online, err := featurestore.OpenOnlineStore(p.OnlineStoreDir())
			if err != nil {
				return err
			}
			defer online.Close()

			return server.New(cfg, model, registry, online, warehouse).ListenAndServe(ctx)
		},
	}
}
