// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

// Package cache provides the recommendation cache backends: an in-memory
// store (default) and a BadgerDB store that survives restarts. Both
// implement recommend.CacheStore; expiry is always re-checked by the engine
// at read time, so backend TTL support is an optimization, not a
// correctness requirement.
package cache

import (
	"sync"
	"time"

	"github.com/dvenn/commendo/internal/recommend"
)

// MemoryStore is a mutex-guarded map cache bounded by entry count. When
// full, the entry closest to expiry is evicted first.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*recommend.CachedRecommendation
	maxEntries int
}

var _ recommend.CacheStore = (*MemoryStore)(nil)

// NewMemoryStore creates a memory cache holding at most maxEntries entries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &MemoryStore{
		entries:    make(map[string]*recommend.CachedRecommendation),
		maxEntries: maxEntries,
	}
}

// Get returns the entry for key, without checking expiry.
func (s *MemoryStore) Get(key string) (*recommend.CachedRecommendation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	return entry, ok
}

// Put stores an entry, superseding any previous one under the same key and
// evicting the oldest-expiry entry when the cache is full.
func (s *MemoryStore) Put(entry *recommend.CachedRecommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	s.entries[entry.Key] = entry
	return nil
}

// evictOldest removes the entry with the earliest expiry (caller holds mu).
func (s *MemoryStore) evictOldest() {
	var (
		oldestKey string
		oldestExp time.Time
	)
	for key, entry := range s.entries {
		if oldestKey == "" || entry.ExpiresAt.Before(oldestExp) {
			oldestKey = key
			oldestExp = entry.ExpiresAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

// MarkClicked flags the user's cached entries containing the product.
func (s *MemoryStore) MarkClicked(userID, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := false
	for _, entry := range s.entries {
		if entry.UserID != userID {
			continue
		}
		for _, item := range entry.Items {
			if item.ProductID == productID {
				entry.Clicked = true
				marked = true
				break
			}
		}
	}
	return marked
}

// InvalidateAll drops every entry.
func (s *MemoryStore) InvalidateAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*recommend.CachedRecommendation)
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error { return nil }
