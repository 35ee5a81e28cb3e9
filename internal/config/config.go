// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package config loads pipeline configuration via Koanf v2 with layered
// sources, highest priority last:
//
//  1. Built-in defaults
//  2. Config file (config.yaml, or CONFIG_PATH / --config override)
//  3. Environment variables (RECOMART_ prefix, e.g. RECOMART_LAKE__ROOT)
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/recomart/recomart/internal/validation"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/recomart/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces RecoMart environment variables.
const envPrefix = "RECOMART_"

// Config is the root configuration for all pipeline stages.
type Config struct {
	Lake      LakeConfig      `koanf:"lake"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Features  FeaturesConfig  `koanf:"features"`
	Registry  RegistryConfig  `koanf:"registry"`
	Recommend RecommendConfig `koanf:"recommend"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// LakeConfig locates the on-disk data lake.
type LakeConfig struct {
	Root string `koanf:"root" validate:"required"`
}

// IngestConfig configures the two ingestion sources and their resilience
// policy.
type IngestConfig struct {
	// InteractionsPath is the local CSV export of interaction events.
	InteractionsPath string `koanf:"interactions_path" validate:"required"`

	// ProductsURL is the product catalog REST endpoint.
	ProductsURL string `koanf:"products_url" validate:"required,url"`

	// Timeout is the hard per-request timeout.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// MaxRetries bounds retry attempts after the initial request.
	MaxRetries int `koanf:"max_retries" validate:"min=0,max=10"`

	// RetryInitialInterval seeds the exponential backoff.
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval" validate:"gt=0"`

	// RateLimit caps outbound requests per second.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`

	// BreakerFailureThreshold opens the per-source circuit breaker after
	// this many consecutive failures.
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold" validate:"min=1"`

	// BreakerTimeout is how long an open breaker waits before half-open.
	BreakerTimeout time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// FeaturesConfig tunes the feature-engineering stage.
type FeaturesConfig struct {
	// EventWeights overrides the default implicit-feedback scores.
	// Unknown event types always score 1 regardless of this map.
	EventWeights map[string]float64 `koanf:"event_weights"`

	// EDADir receives exploratory charts (item popularity histogram).
	// Empty disables chart rendering.
	EDADir string `koanf:"eda_dir"`
}

// RegistryConfig locates the feature store surfaces.
type RegistryConfig struct {
	// Version is stamped onto feature views registered by the pipeline.
	Version string `koanf:"version" validate:"required"`

	// WarehousePath is the DuckDB database file for feature tables.
	WarehousePath string `koanf:"warehouse_path"`

	// OnlineStoreDir is the BadgerDB directory for online lookups.
	OnlineStoreDir string `koanf:"online_store_dir"`
}

// RecommendConfig tunes the similarity engine.
type RecommendConfig struct {
	// TopK is the default recommendation count.
	TopK int `koanf:"top_k" validate:"min=1,max=100"`
}

// ServerConfig configures the inference server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// LoggingConfig configures the zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns the built-in defaults, applied before any file or
// environment overrides.
func defaultConfig() *Config {
	return &Config{
		Lake: LakeConfig{
			Root: "./recomart-data-lake",
		},
		Ingest: IngestConfig{
			InteractionsPath:        "./source_data/interactions.csv",
			ProductsURL:             "https://fakestoreapi.com/products",
			Timeout:                 10 * time.Second,
			MaxRetries:              3,
			RetryInitialInterval:    1 * time.Second,
			RateLimit:               5,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Features: FeaturesConfig{
			EventWeights: nil, // features.DefaultEventWeights
			EDADir:       "./eda_plots",
		},
		Registry: RegistryConfig{
			Version:        "v1.1",
			WarehousePath:  "", // <lake>/feature_store/recomart.duckdb
			OnlineStoreDir: "", // <lake>/feature_store/online
		},
		Recommend: RecommendConfig{
			TopK: 5,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8337,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// RECOMART_ environment variables, then validates it. An explicit path that
// does not exist is an error; missing default paths are not.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = os.Getenv(ConfigPathEnvVar)
		explicit = path != ""
	}
	paths := DefaultConfigPaths
	if explicit {
		paths = []string{path}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if explicit {
				return nil, fmt.Errorf("config file %s: %w", p, err)
			}
			continue
		}
		if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", p, err)
		}
		break
	}

	// Double underscore separates nesting levels so that single
	// underscores survive inside key names:
	// RECOMART_INGEST__PRODUCTS_URL -> ingest.products_url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validation.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
