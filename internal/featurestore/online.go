// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package featurestore

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// OnlineStore serves single-entity feature rows for inference. Rows are
// materialized from a view's projected frame at registration time; lookups
// never touch the batch artifacts.
type OnlineStore struct {
	db *badger.DB
}

// OpenOnlineStore opens (creating if needed) the BadgerDB-backed store.
func OpenOnlineStore(dir string) (*OnlineStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open online store: %w", err)
	}
	return &OnlineStore{db: db}, nil
}

// Close closes the underlying store.
func (s *OnlineStore) Close() error {
	return s.db.Close()
}

func onlineKey(view, entityID string) []byte {
	return []byte("view/" + view + "/" + entityID)
}

// Materialize writes the projected frame under the view's namespace, grouped
// by entity. The entity key is the first frame column; keys are stored as
// strings, so lookups are string-coerced by construction. An entity spanning
// multiple frame rows (the affinity view: one row per product the user
// touched) keeps every row under its single key, in frame order.
func (s *OnlineStore) Materialize(view FeatureView, frame Frame) error {
	grouped := make(map[string][]map[string]string)
	entities := make([]string, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		if len(row) == 0 {
			continue
		}
		values := make(map[string]string, len(frame.Columns))
		for i, col := range frame.Columns {
			if i < len(row) {
				values[col] = row[i]
			}
		}
		if _, seen := grouped[row[0]]; !seen {
			entities = append(entities, row[0])
		}
		grouped[row[0]] = append(grouped[row[0]], values)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, entity := range entities {
		payload, err := json.Marshal(grouped[entity])
		if err != nil {
			return fmt.Errorf("encode online rows: %w", err)
		}
		if err := wb.Set(onlineKey(view.Name, entity), payload); err != nil {
			return fmt.Errorf("materialize view %s: %w", view.Name, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush view %s: %w", view.Name, err)
	}
	return nil
}

// Get returns every feature row for one entity of a view, in materialization
// order. Single-entity-key views yield one row; the affinity view yields one
// row per (user, product) pair. A missing entity is (nil, false, nil) - an
// empty result, not an error. Unknown views are the registry's concern; the
// store does not distinguish them.
func (s *OnlineStore) Get(view, entityID string) ([]map[string]string, bool, error) {
	var rows []map[string]string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(onlineKey(view, entityID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rows)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("online lookup %s/%s: %w", view, entityID, err)
	}
	return rows, true, nil
}
