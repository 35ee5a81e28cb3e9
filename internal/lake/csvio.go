// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package lake

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/recomart/recomart/internal/models"
)

// Canonical artifact file names per tier.
const (
	InteractionsFile       = "interactions.csv"
	ProductsFile           = "products.csv"
	SilverInteractionsFile = "user_interactions_silver.csv"
	SilverProductsFile     = "product_catalog_silver.csv"
	GoldPreparedFile       = "recomart_gold_prepared.csv"
	UserFeaturesFile       = "user_feature_store.csv"
	ItemFeaturesFile       = "item_feature_store.csv"
	AffinityMatrixFile     = "user_item_affinity_matrix.csv"
)

// columns maps a CSV header to field positions. Readers project only the
// columns they need; extra columns in the source are ignored rather than
// rejected (sources guarantee a minimum schema, not schema closure).
type columns map[string]int

func readTable(path string) (columns, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("read %s: missing header", path)
	}

	cols := make(columns, len(rows[0]))
	for i, name := range rows[0] {
		cols[name] = i
	}
	return cols, rows[1:], nil
}

func (c columns) require(path string, names ...string) error {
	for _, n := range names {
		if _, ok := c[n]; !ok {
			return fmt.Errorf("%s: missing required column %q", path, n)
		}
	}
	return nil
}

func (c columns) cell(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (c columns) floatCell(row []string, name string) float64 {
	v, _ := strconv.ParseFloat(c.cell(row, name), 64)
	return v
}

func (c columns) intCell(row []string, name string) int {
	v, _ := strconv.Atoi(c.cell(row, name))
	return v
}

// ReadRawTable exposes a CSV artifact's header map and raw rows for callers
// that project columns dynamically (the feature registry).
func ReadRawTable(path string) (map[string]int, [][]string, error) {
	cols, rows, err := readTable(path)
	return cols, rows, err
}

func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteInteractions persists interactions in the canonical column order.
func WriteInteractions(path string, interactions []models.Interaction) error {
	rows := make([][]string, len(interactions))
	for i, in := range interactions {
		rows[i] = []string{in.InteractionID, in.UserID, strconv.Itoa(in.ProductID), in.EventType, in.Device, in.Timestamp, in.SessionID}
	}
	return writeTable(path, []string{"interaction_id", "user_id", "product_id", "event_type", "device", "timestamp", "session_id"}, rows)
}

// ReadInteractions loads interactions, projecting the canonical columns by
// header name.
func ReadInteractions(path string) ([]models.Interaction, error) {
	cols, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := cols.require(path, "interaction_id", "user_id", "product_id", "event_type", "timestamp"); err != nil {
		return nil, err
	}
	out := make([]models.Interaction, len(rows))
	for i, row := range rows {
		out[i] = models.Interaction{
			InteractionID: cols.cell(row, "interaction_id"),
			UserID:        cols.cell(row, "user_id"),
			ProductID:     cols.intCell(row, "product_id"),
			EventType:     cols.cell(row, "event_type"),
			Device:        cols.cell(row, "device"),
			Timestamp:     cols.cell(row, "timestamp"),
			SessionID:     cols.cell(row, "session_id"),
		}
	}
	return out, nil
}

// WriteProducts persists the catalog. The nested rating is serialized as a
// JSON object in its cell.
func WriteProducts(path string, products []models.Product) error {
	rows := make([][]string, len(products))
	for i, p := range products {
		rating, err := json.Marshal(p.Rating)
		if err != nil {
			return fmt.Errorf("encode rating for product %d: %w", p.ID, err)
		}
		rows[i] = []string{strconv.Itoa(p.ID), p.Title, ftoa(p.Price), p.Description, p.Category, p.Image, string(rating)}
	}
	return writeTable(path, []string{"id", "title", "price", "description", "category", "image", "rating"}, rows)
}

// ReadProducts loads the catalog. Rating cells parse defensively; a
// malformed cell yields the zero rating, never an error.
func ReadProducts(path string) ([]models.Product, error) {
	cols, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := cols.require(path, "id", "price", "category"); err != nil {
		return nil, err
	}
	out := make([]models.Product, len(rows))
	for i, row := range rows {
		out[i] = models.Product{
			ID:          cols.intCell(row, "id"),
			Title:       cols.cell(row, "title"),
			Price:       cols.floatCell(row, "price"),
			Description: cols.cell(row, "description"),
			Category:    cols.cell(row, "category"),
			Image:       cols.cell(row, "image"),
			Rating:      models.ParseRating(cols.cell(row, "rating")),
		}
	}
	return out, nil
}

// WritePrepared persists gold-tier prepared records.
func WritePrepared(path string, records []models.PreparedRecord) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.InteractionID, r.UserID, strconv.Itoa(r.ProductID), r.EventType, r.Device, r.Timestamp, r.SessionID,
			ftoa(r.Weight), strconv.FormatBool(r.Matched), r.Category, ftoa(r.NormPrice), ftoa(r.NormRating),
		}
	}
	return writeTable(path, []string{
		"interaction_id", "user_id", "product_id", "event_type", "device", "timestamp", "session_id",
		"interaction_weight", "matched", "category", "norm_price", "norm_rating",
	}, rows)
}

// ReadPrepared loads gold-tier prepared records.
func ReadPrepared(path string) ([]models.PreparedRecord, error) {
	cols, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := cols.require(path, "user_id", "product_id", "interaction_weight"); err != nil {
		return nil, err
	}
	out := make([]models.PreparedRecord, len(rows))
	for i, row := range rows {
		matched, _ := strconv.ParseBool(cols.cell(row, "matched"))
		out[i] = models.PreparedRecord{
			WeightedInteraction: models.WeightedInteraction{
				Interaction: models.Interaction{
					InteractionID: cols.cell(row, "interaction_id"),
					UserID:        cols.cell(row, "user_id"),
					ProductID:     cols.intCell(row, "product_id"),
					EventType:     cols.cell(row, "event_type"),
					Device:        cols.cell(row, "device"),
					Timestamp:     cols.cell(row, "timestamp"),
					SessionID:     cols.cell(row, "session_id"),
				},
				Weight: cols.floatCell(row, "interaction_weight"),
			},
			Matched:    matched,
			Category:   cols.cell(row, "category"),
			NormPrice:  cols.floatCell(row, "norm_price"),
			NormRating: cols.floatCell(row, "norm_rating"),
		}
	}
	return out, nil
}

// WriteUserFeatures persists the user feature table.
func WriteUserFeatures(path string, users []models.UserFeatures) error {
	rows := make([][]string, len(users))
	for i, u := range users {
		rows[i] = []string{u.UserID, strconv.Itoa(u.ActivityCount), ftoa(u.AvgAffinity), ftoa(u.TotalScore), u.LastActiveTS.UTC().Format(time.RFC3339)}
	}
	return writeTable(path, []string{"user_id", "user_activity_count", "user_avg_affinity", "user_total_score", "last_active_ts"}, rows)
}

// ReadUserFeatures loads the user feature table.
func ReadUserFeatures(path string) ([]models.UserFeatures, error) {
	cols, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := cols.require(path, "user_id", "user_activity_count"); err != nil {
		return nil, err
	}
	out := make([]models.UserFeatures, len(rows))
	for i, row := range rows {
		ts, _ := time.Parse(time.RFC3339, cols.cell(row, "last_active_ts"))
		out[i] = models.UserFeatures{
			UserID:        cols.cell(row, "user_id"),
			ActivityCount: cols.intCell(row, "user_activity_count"),
			AvgAffinity:   cols.floatCell(row, "user_avg_affinity"),
			TotalScore:    cols.floatCell(row, "user_total_score"),
			LastActiveTS:  ts,
		}
	}
	return out, nil
}

// WriteItemFeatures persists the item feature table.
func WriteItemFeatures(path string, items []models.ItemFeatures) error {
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{
			strconv.Itoa(it.ProductID), strconv.Itoa(it.InteractionCount), ftoa(it.AvgAffinity),
			ftoa(it.NormPrice), ftoa(it.NormRating), it.Category, ftoa(it.PopularityScore),
		}
	}
	return writeTable(path, []string{
		"product_id", "item_interaction_count", "item_avg_affinity",
		"norm_price", "norm_rating", "category", "global_popularity_score",
	}, rows)
}

// ReadItemFeatures loads the item feature table.
func ReadItemFeatures(path string) ([]models.ItemFeatures, error) {
	cols, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := cols.require(path, "product_id", "item_interaction_count"); err != nil {
		return nil, err
	}
	out := make([]models.ItemFeatures, len(rows))
	for i, row := range rows {
		out[i] = models.ItemFeatures{
			ProductID:        cols.intCell(row, "product_id"),
			InteractionCount: cols.intCell(row, "item_interaction_count"),
			AvgAffinity:      cols.floatCell(row, "item_avg_affinity"),
			NormPrice:        cols.floatCell(row, "norm_price"),
			NormRating:       cols.floatCell(row, "norm_rating"),
			Category:         cols.cell(row, "category"),
			PopularityScore:  cols.floatCell(row, "global_popularity_score"),
		}
	}
	return out, nil
}

// WriteAffinityPairs persists the sparse affinity matrix.
func WriteAffinityPairs(path string, pairs []models.AffinityPair) error {
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p.UserID, strconv.Itoa(p.ProductID), ftoa(p.AffinityScore)}
	}
	return writeTable(path, []string{"user_id", "product_id", "affinity_score"}, rows)
}

// ReadAffinityPairs loads the sparse affinity matrix.
func ReadAffinityPairs(path string) ([]models.AffinityPair, error) {
	cols, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := cols.require(path, "user_id", "product_id", "affinity_score"); err != nil {
		return nil, err
	}
	out := make([]models.AffinityPair, len(rows))
	for i, row := range rows {
		out[i] = models.AffinityPair{
			UserID:        cols.cell(row, "user_id"),
			ProductID:     cols.intCell(row, "product_id"),
			AffinityScore: cols.floatCell(row, "affinity_score"),
		}
	}
	return out, nil
}
