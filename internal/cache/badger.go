// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package cache

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/dvenn/commendo/internal/recommend"
)

// keyPrefix namespaces recommendation entries inside the badger keyspace.
var keyPrefix = []byte("rec:")

// BadgerStore is a durable cache backend. Entries carry a native badger TTL
// matching their ExpiresAt, so the store cleans up after itself; the engine
// still enforces expiry at read time.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

var _ recommend.CacheStore = (*BadgerStore)(nil)

// NewBadgerStore opens (creating if needed) a badger-backed cache at path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBadgerStore(path string, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache at %s: %w", path, err)
	}

	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "cache").Logger(),
	}, nil
}

// NewBadgerStoreFromDB wraps an existing badger handle. Used by tests.
func NewBadgerStoreFromDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, logger: zerolog.Nop()}
}

func entryKey(key string) []byte {
	return append(append([]byte{}, keyPrefix...), key...)
}

// Get returns the entry for key, or false on miss.
func (s *BadgerStore) Get(key string) (*recommend.CachedRecommendation, bool) {
	var entry recommend.CachedRecommendation

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}

	return &entry, true
}

// Put stores an entry with a TTL matching its expiry.
func (s *BadgerStore) Put(entry *recommend.CachedRecommendation) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(entryKey(entry.Key), data).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// MarkClicked flags the user's cached entries containing the product. The
// scan is a full prefix walk; the cache is small and feedback is rare.
func (s *BadgerStore) MarkClicked(userID, productID string) bool {
	marked := false

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var entry recommend.CachedRecommendation
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				continue
			}
			if entry.UserID != userID {
				continue
			}

			hit := false
			for _, rec := range entry.Items {
				if rec.ProductID == productID {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}

			entry.Clicked = true
			data, err := json.Marshal(&entry)
			if err != nil {
				continue
			}

			ttl := time.Until(entry.ExpiresAt)
			if ttl <= 0 {
				continue
			}
			e := badger.NewEntry(item.KeyCopy(nil), data).WithTTL(ttl)
			if err := txn.SetEntry(e); err != nil {
				return err
			}
			marked = true
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache feedback update failed")
		return false
	}

	return marked
}

// InvalidateAll drops every recommendation entry.
func (s *BadgerStore) InvalidateAll() error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len counts the stored entries.
func (s *BadgerStore) Len() int {
	count := 0
	_ = s.db.View(func(txn *badger.Txn) error { //nolint:errcheck // count stays 0 on error
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// Close closes the underlying badger database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
