// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package featurestore persists and serves engineered features through three
// surfaces: a DuckDB warehouse for analytical reads, a versioned JSON
// registry of feature views, and a BadgerDB online store for single-entity
// lookups.
package featurestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/recomart/recomart/internal/metrics"
	"github.com/recomart/recomart/internal/models"
)

// Warehouse table names.
const (
	TableUserFeatures  = "user_features"
	TableItemFeatures  = "item_features"
	TableAffinityPairs = "affinity_pairs"
)

// Warehouse is a DuckDB-backed analytical store for feature tables.
// Tables are replaced wholesale per pipeline run (single-writer batch
// convention; there is no concurrent writer to guard against).
type Warehouse struct {
	conn *sql.DB
	path string
}

// OpenWarehouse opens (creating if needed) the warehouse database file and
// ensures the feature table schemas exist.
func OpenWarehouse(path string) (*Warehouse, error) {
	// Auto-install/auto-load disabled to avoid network access from
	// restricted environments.
	connStr := fmt.Sprintf("%s?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false", path)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	w := &Warehouse{conn: conn, path: path}
	if err := w.initialize(); err != nil {
		conn.Close()
		return nil, err
	}
	return w, nil
}

func (w *Warehouse) initialize() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_features (
			user_id             VARCHAR PRIMARY KEY,
			user_activity_count INTEGER NOT NULL,
			user_avg_affinity   DOUBLE NOT NULL,
			user_total_score    DOUBLE NOT NULL,
			last_active_ts      TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS item_features (
			product_id              INTEGER PRIMARY KEY,
			item_interaction_count  INTEGER NOT NULL,
			item_avg_affinity       DOUBLE NOT NULL,
			norm_price              DOUBLE NOT NULL,
			norm_rating             DOUBLE NOT NULL,
			category                VARCHAR,
			global_popularity_score DOUBLE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS affinity_pairs (
			user_id        VARCHAR NOT NULL,
			product_id     INTEGER NOT NULL,
			affinity_score DOUBLE NOT NULL,
			PRIMARY KEY (user_id, product_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := w.conn.Exec(stmt); err != nil {
			return fmt.Errorf("initialize warehouse schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (w *Warehouse) Close() error {
	return w.conn.Close()
}

func (w *Warehouse) replace(ctx context.Context, table, insert string, rows func(stmt *sql.Stmt) error) error {
	tx, err := w.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load of %s: %w", table, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	if err := rows(stmt); err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load of %s: %w", table, err)
	}
	return nil
}

// LoadUserFeatures replaces the user_features table contents.
func (w *Warehouse) LoadUserFeatures(ctx context.Context, users []models.UserFeatures) error {
	err := w.replace(ctx, TableUserFeatures,
		"INSERT INTO user_features VALUES (?, ?, ?, ?, ?)",
		func(stmt *sql.Stmt) error {
			for _, u := range users {
				if _, err := stmt.ExecContext(ctx, u.UserID, u.ActivityCount, u.AvgAffinity, u.TotalScore, u.LastActiveTS.UTC()); err != nil {
					return err
				}
			}
			return nil
		})
	if err != nil {
		return err
	}
	metrics.WarehouseRows.WithLabelValues(TableUserFeatures).Set(float64(len(users)))
	return nil
}

// LoadItemFeatures replaces the item_features table contents.
func (w *Warehouse) LoadItemFeatures(ctx context.Context, items []models.ItemFeatures) error {
	err := w.replace(ctx, TableItemFeatures,
		"INSERT INTO item_features VALUES (?, ?, ?, ?, ?, ?, ?)",
		func(stmt *sql.Stmt) error {
			for _, it := range items {
				if _, err := stmt.ExecContext(ctx, it.ProductID, it.InteractionCount, it.AvgAffinity, it.NormPrice, it.NormRating, it.Category, it.PopularityScore); err != nil {
					return err
				}
			}
			return nil
		})
	if err != nil {
		return err
	}
	metrics.WarehouseRows.WithLabelValues(TableItemFeatures).Set(float64(len(items)))
	return nil
}

// LoadAffinityPairs replaces the affinity_pairs table contents.
func (w *Warehouse) LoadAffinityPairs(ctx context.Context, pairs []models.AffinityPair) error {
	err := w.replace(ctx, TableAffinityPairs,
		"INSERT INTO affinity_pairs VALUES (?, ?, ?)",
		func(stmt *sql.Stmt) error {
			for _, p := range pairs {
				if _, err := stmt.ExecContext(ctx, p.UserID, p.ProductID, p.AffinityScore); err != nil {
					return err
				}
			}
			return nil
		})
	if err != nil {
		return err
	}
	metrics.WarehouseRows.WithLabelValues(TableAffinityPairs).Set(float64(len(pairs)))
	return nil
}

// ItemFeatures reads back the full item feature table ordered by product_id.
// The training stage consumes this instead of re-parsing CSV artifacts.
func (w *Warehouse) ItemFeatures(ctx context.Context) ([]models.ItemFeatures, error) {
	rows, err := w.conn.QueryContext(ctx, `
		SELECT product_id, item_interaction_count, item_avg_affinity,
		       norm_price, norm_rating, category, global_popularity_score
		FROM item_features ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("query item_features: %w", err)
	}
	defer rows.Close()

	var out []models.ItemFeatures
	for rows.Next() {
		var it models.ItemFeatures
		var category sql.NullString
		if err := rows.Scan(&it.ProductID, &it.InteractionCount, &it.AvgAffinity,
			&it.NormPrice, &it.NormRating, &category, &it.PopularityScore); err != nil {
			return nil, fmt.Errorf("scan item_features: %w", err)
		}
		it.Category = category.String
		out = append(out, it)
	}
	return out, rows.Err()
}

// UserAffinityPairs reads the affinity rows for one user ordered by
// product_id.
func (w *Warehouse) UserAffinityPairs(ctx context.Context, userID string) ([]models.AffinityPair, error) {
	rows, err := w.conn.QueryContext(ctx,
		"SELECT user_id, product_id, affinity_score FROM affinity_pairs WHERE user_id = ? ORDER BY product_id", userID)
	if err != nil {
		return nil, fmt.Errorf("query affinity_pairs: %w", err)
	}
	defer rows.Close()

	var out []models.AffinityPair
	for rows.Next() {
		var p models.AffinityPair
		if err := rows.Scan(&p.UserID, &p.ProductID, &p.AffinityScore); err != nil {
			return nil, fmt.Errorf("scan affinity_pairs: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TableCount returns the row count of a warehouse table.
func (w *Warehouse) TableCount(ctx context.Context, table string) (int, error) {
	switch table {
	case TableUserFeatures, TableItemFeatures, TableAffinityPairs:
	default:
		return 0, fmt.Errorf("unknown warehouse table %q", table)
	}
	var n int
	if err := w.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Ping verifies the database handle is usable within the timeout.
func (w *Warehouse) Ping(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return w.conn.PingContext(ctx)
}
