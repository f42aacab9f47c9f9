// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/textmate-ai/textmate-backend/pkg/extensions"
)

// keyPrefix namespaces usage events inside the store. Keys are
// "usage/<RFC3339Nano timestamp>/<uuid>", so a prefix scan returns
// events in timestamp order.
const keyPrefix = "usage/"

// Config holds configuration for the BadgerDB-backed usage store.
type Config struct {
	// Path is the directory for database files.
	// Ignored when InMemory is true.
	Path string

	// InMemory keeps events in memory only. Useful for testing.
	InMemory bool

	// SyncWrites forces a sync per write. Usage events are not
	// compliance-critical, so the default is false.
	SyncWrites bool
}

// Store is an extensions.AuditLogger backed by an embedded BadgerDB
// instance. It is safe for concurrent use; BadgerDB handles locking
// internally.
type Store struct {
	db *badger.DB
}

// Open creates the usage store at cfg.Path, or in memory when
// cfg.InMemory is set. The caller must Close the store on shutdown.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent usage store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create usage store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithLogger(nil) // BadgerDB's internal logging is too chatty for this store

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open usage store: %w", err)
	}

	slog.Info("Usage store opened", "path", cfg.Path, "in_memory", cfg.InMemory)
	return &Store{db: db}, nil
}

// Log records one usage event. Missing ID and Timestamp fields are
// populated before the event is persisted.
func (s *Store) Log(_ context.Context, event extensions.UsageEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal usage event: %w", err)
	}

	key := fmt.Sprintf("%s%s/%s", keyPrefix, event.Timestamp.UTC().Format(time.RFC3339Nano), event.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("store usage event: %w", err)
	}
	return nil
}

// Query returns events matching the filter, newest first.
func (s *Store) Query(_ context.Context, filter extensions.UsageFilter) ([]extensions.UsageEvent, error) {
	var events []extensions.UsageEvent

	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = []byte(keyPrefix)
		itOpts.Reverse = true
		it := txn.NewIterator(itOpts)
		defer it.Close()

		// Reverse iteration must seek past the end of the prefix range.
		seekKey := append([]byte(keyPrefix), 0xff)
		for it.Seek(seekKey); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			var event extensions.UsageEvent
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			})
			if err != nil {
				return fmt.Errorf("decode usage event %s: %w", it.Item().Key(), err)
			}

			if !matches(event, filter) {
				continue
			}
			events = append(events, event)
			if filter.Limit > 0 && len(events) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if events == nil {
		events = []extensions.UsageEvent{}
	}
	return events, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func matches(event extensions.UsageEvent, filter extensions.UsageFilter) bool {
	if filter.Event != "" && event.Event != filter.Event {
		return false
	}
	if filter.PseudonymID != "" && event.PseudonymID != filter.PseudonymID {
		return false
	}
	if !filter.Since.IsZero() && event.Timestamp.Before(filter.Since) {
		return false
	}
	return true
}

var _ extensions.AuditLogger = (*Store)(nil)
