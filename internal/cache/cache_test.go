// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvenn/commendo/internal/recommend"
)

func sampleEntry(key, userID string, ttl time.Duration) *recommend.CachedRecommendation {
	now := time.Now()
	return &recommend.CachedRecommendation{
		Key:    key,
		UserID: userID,
		Items: []recommend.ScoredProduct{
			{ProductID: "shoes-red", Score: 0.9, Name: "Red Shoes", Category: "footwear"},
			{ProductID: "blender", Score: 0.4, Name: "Blender", Category: "kitchen"},
		},
		Algorithm:   recommend.AlgorithmContentTFIDF,
		GeneratedAt: now,
		ExpiresAt:   now.Add(ttl),
	}
}

// storeUnderTest runs the shared CacheStore contract against a backend.
func storeUnderTest(t *testing.T, store recommend.CacheStore) {
	t.Helper()

	if _, ok := store.Get("absent"); ok {
		t.Error("Get on empty store should miss")
	}

	entry := sampleEntry("me:u1:10:0", "u1", time.Hour)
	if err := store.Put(entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := store.Get(entry.Key)
	if !ok {
		t.Fatal("Get after Put should hit")
	}
	if got.UserID != "u1" || len(got.Items) != 2 || got.Items[0].ProductID != "shoes-red" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}

	// Feedback only marks entries that contain the product.
	if store.MarkClicked("u1", "toaster") {
		t.Error("MarkClicked should report false for an absent product")
	}
	if !store.MarkClicked("u1", "shoes-red") {
		t.Error("MarkClicked should report true for a cached product")
	}
	got, _ = store.Get(entry.Key)
	if got == nil || !got.Clicked {
		t.Error("entry should be flagged clicked")
	}
	if store.MarkClicked("u2", "shoes-red") {
		t.Error("MarkClicked must not cross user boundaries")
	}

	if err := store.InvalidateAll(); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len after InvalidateAll = %d, want 0", store.Len())
	}
}

func TestMemoryStoreContract(t *testing.T) {
	t.Parallel()
	storeUnderTest(t, NewMemoryStore(100))
}

func TestMemoryStoreEvictsOldestExpiry(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(3)
	for i := 0; i < 3; i++ {
		entry := sampleEntry(fmt.Sprintf("trending::%d:7", i), "", time.Duration(i+1)*time.Hour)
		if err := s.Put(entry); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	// A fourth entry evicts the one closest to expiry (index 0).
	if err := s.Put(sampleEntry("trending::9:7", "", time.Hour)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	if _, ok := s.Get("trending::0:7"); ok {
		t.Error("oldest-expiry entry should have been evicted")
	}
	if _, ok := s.Get("trending::2:7"); !ok {
		t.Error("newest-expiry entry should survive eviction")
	}
}

func TestMemoryStoreOverwriteDoesNotEvict(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(1)
	if err := s.Put(sampleEntry("a", "", time.Hour)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(sampleEntry("a", "", 2*time.Hour)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestBadgerStoreContract(t *testing.T) {
	t.Parallel()

	store, err := NewBadgerStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	defer store.Close()

	storeUnderTest(t, store)
}

func TestBadgerStoreSkipsExpiredPut(t *testing.T) {
	t.Parallel()

	store, err := NewBadgerStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	defer store.Close()

	entry := sampleEntry("stale", "", -time.Minute)
	if err := store.Put(entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := store.Get("stale"); ok {
		t.Error("entry already past its expiry should not be stored")
	}
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := NewBadgerStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	if err := store.Put(sampleEntry("me:u1:10:0", "u1", time.Hour)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBadgerStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("me:u1:10:0")
	if !ok {
		t.Fatal("entry should survive a restart")
	}
	if got.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", got.UserID)
	}
}

func TestFactory(t *testing.T) {
	t.Parallel()

	mem, err := New(BackendMemory, "", 10, zerolog.Nop())
	if err != nil {
		t.Fatalf("New memory: %v", err)
	}
	if _, ok := mem.(*MemoryStore); !ok {
		t.Errorf("backend %q returned %T", BackendMemory, mem)
	}

	bdg, err := New(BackendBadger, t.TempDir(), 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("New badger: %v", err)
	}
	defer bdg.Close()
	if _, ok := bdg.(*BadgerStore); !ok {
		t.Errorf("backend %q returned %T", BackendBadger, bdg)
	}

	if _, err := New("redis", "", 0, zerolog.Nop()); err == nil {
		t.Error("unknown backend should error")
	}
}
