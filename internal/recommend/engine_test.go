// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockProvider implements CatalogProvider and InteractionProvider for tests.
type mockProvider struct {
	mu       sync.Mutex
	products []Product
	users    map[string]bool
	events   map[string][]InteractionEvent
	recent   []InteractionEvent

	listErr error

	// listGate, when non-nil, blocks ListActiveProducts until closed.
	listGate chan struct{}

	listCalls int
}

func (m *mockProvider) ListActiveProducts(ctx context.Context) ([]Product, error) {
	m.mu.Lock()
	m.listCalls++
	gate := m.listGate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.products, nil
}

func (m *mockProvider) GetProduct(ctx context.Context, id string) (*Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, nil
}

func (m *mockProvider) CategoryExists(ctx context.Context, category string) (bool, error) {
	for i := range m.products {
		if m.products[i].Category == category {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProvider) ListInteractions(ctx context.Context, userID string) ([]InteractionEvent, error) {
	if m.events == nil {
		return nil, nil
	}
	return m.events[userID], nil
}

func (m *mockProvider) ListRecentInteractions(ctx context.Context, windowDays int) ([]InteractionEvent, error) {
	return m.recent, nil
}

func (m *mockProvider) UserExists(ctx context.Context, userID string) (bool, error) {
	return m.users[userID], nil
}

// mockCache implements CacheStore with a plain map.
type mockCache struct {
	mu      sync.Mutex
	entries map[string]*CachedRecommendation
	puts    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]*CachedRecommendation)}
}

func (c *mockCache) Get(key string) (*CachedRecommendation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *mockCache) Put(entry *CachedRecommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = entry
	c.puts++
	return nil
}

func (c *mockCache) MarkClicked(userID, productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	marked := false
	for _, e := range c.entries {
		if e.UserID != userID {
			continue
		}
		for _, item := range e.Items {
			if item.ProductID == productID {
				e.Clicked = true
				marked = true
			}
		}
	}
	return marked
}

func (c *mockCache) InvalidateAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CachedRecommendation)
	return nil
}

func (c *mockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *mockCache) Close() error { return nil }

func catalogFixture() []Product {
	return []Product{
		{ID: "shoes-red", Name: "Red Running Shoes", Description: "comfortable red shoes for daily running", Category: "footwear", Rating: 4.2, Active: true},
		{ID: "sneakers-red", Name: "Red Sneakers", Description: "stylish red sneakers for casual running", Category: "footwear", Rating: 4.5, Active: true},
		{ID: "blender", Name: "Kitchen Blender", Description: "powerful blender for smoothies and soups", Category: "kitchen", Rating: 4.0, Active: true},
		{ID: "toaster", Name: "Toaster Oven", Description: "compact toaster oven for the kitchen counter", Category: "kitchen", Rating: 3.8, Active: true},
	}
}

func newTestEngine(t *testing.T, provider *mockProvider) *Engine {
	t.Helper()

	cfg := DefaultConfig()
	cfg.MinSimilarity = 0.01

	e, err := NewEngine(cfg, provider, provider, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func rebuildOrFatal(t *testing.T, e *Engine) {
	t.Helper()
	if _, err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
}

func TestEngineModelUnavailableBeforeFirstRebuild(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture(), users: map[string]bool{"u1": true}}
	e := newTestEngine(t, provider)

	if _, err := e.Similar(context.Background(), "shoes-red", 5); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Similar before rebuild: err = %v, want ErrModelUnavailable", err)
	}
	if _, err := e.Personalized(context.Background(), "u1", 5); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Personalized before rebuild: err = %v, want ErrModelUnavailable", err)
	}
}

func TestEngineSimilar(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture()}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	items, err := e.Similar(context.Background(), "shoes-red", 5)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected similar products for red shoes")
	}
	if items[0].ProductID != "sneakers-red" {
		t.Errorf("top similar product = %s, want sneakers-red", items[0].ProductID)
	}
	for _, item := range items {
		if item.ProductID == "shoes-red" {
			t.Error("product must not be similar to itself")
		}
		if item.Score < 0 || item.Score > 1 {
			t.Errorf("similarity score out of range: %f", item.Score)
		}
	}
}

func TestEngineSimilarUnknownProduct(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture()}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	if _, err := e.Similar(context.Background(), "no-such-product", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEngineLimitValidation(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture(), users: map[string]bool{"u1": true}}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	ctx := context.Background()

	if _, err := e.Similar(ctx, "shoes-red", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Similar with limit 0: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := e.Personalized(ctx, "u1", -1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Personalized with limit -1: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := e.Trending(ctx, 0, 7); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Trending with limit 0: err = %v, want ErrInvalidArgument", err)
	}
}

func TestEngineTrendingWindowValidation(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture()}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	ctx := context.Background()

	if _, err := e.Trending(ctx, 5, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative window: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := e.Trending(ctx, 5, 31); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("oversized window: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := e.Trending(ctx, 5, 0); err != nil {
		t.Errorf("zero window should use the default, got err = %v", err)
	}
}

func TestEnginePersonalizedUnknownUser(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture(), users: map[string]bool{}}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	if _, err := e.Personalized(context.Background(), "stranger", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEngineColdStartFallsBackToTrending(t *testing.T) {
	t.Parallel()

	now := time.Now()
	provider := &mockProvider{
		products: catalogFixture(),
		users:    map[string]bool{"newcomer": true},
		recent: []InteractionEvent{
			{ProductID: "blender", Kind: KindPurchase, OccurredAt: now},
			{ProductID: "shoes-red", Kind: KindView, OccurredAt: now},
		},
	}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	ctx := context.Background()

	personalized, err := e.Personalized(ctx, "newcomer", 5)
	if err != nil {
		t.Fatalf("Personalized: %v", err)
	}
	trending, err := e.Trending(ctx, 5, 0)
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}

	if len(personalized) != len(trending) {
		t.Fatalf("cold-start result length %d != trending length %d", len(personalized), len(trending))
	}
	for i := range personalized {
		if personalized[i].ProductID != trending[i].ProductID {
			t.Errorf("position %d: cold-start %s != trending %s", i, personalized[i].ProductID, trending[i].ProductID)
		}
	}
}

func TestEnginePersonalizedRanking(t *testing.T) {
	t.Parallel()

	now := time.Now()
	provider := &mockProvider{
		products: catalogFixture(),
		users:    map[string]bool{"u1": true},
		events: map[string][]InteractionEvent{
			"u1": {
				{UserID: "u1", ProductID: "shoes-red", Kind: KindLike, OccurredAt: now},
			},
		},
	}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	items, err := e.Personalized(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("Personalized: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected recommendations from a single like")
	}
	if items[0].ProductID != "sneakers-red" {
		t.Errorf("top recommendation = %s, want sneakers-red (closest neighbor of the liked product)", items[0].ProductID)
	}
	for _, item := range items {
		if item.ProductID == "shoes-red" {
			t.Error("liked product should not be recommended back")
		}
	}
}

func TestEnginePersonalizedFallbackUsesProfileCategory(t *testing.T) {
	t.Parallel()

	// The user has purchased the entire catalog, so hybrid scoring excludes
	// every candidate. Their interest still concentrates in the kitchen
	// (two purchases plus a view), so the fallback should serve trending
	// scoped to that category rather than the global ranking.
	now := time.Now()
	provider := &mockProvider{
		products: catalogFixture(),
		users:    map[string]bool{"collector": true},
		events: map[string][]InteractionEvent{
			"collector": {
				{UserID: "collector", ProductID: "shoes-red", Kind: KindPurchase, OccurredAt: now},
				{UserID: "collector", ProductID: "sneakers-red", Kind: KindPurchase, OccurredAt: now},
				{UserID: "collector", ProductID: "blender", Kind: KindPurchase, OccurredAt: now},
				{UserID: "collector", ProductID: "toaster", Kind: KindPurchase, OccurredAt: now},
				{UserID: "collector", ProductID: "blender", Kind: KindView, OccurredAt: now},
			},
		},
		recent: []InteractionEvent{
			{ProductID: "shoes-red", Kind: KindView, OccurredAt: now},
			{ProductID: "shoes-red", Kind: KindLike, OccurredAt: now},
			{ProductID: "blender", Kind: KindView, OccurredAt: now},
			{ProductID: "toaster", Kind: KindView, OccurredAt: now},
		},
	}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	items, err := e.Personalized(context.Background(), "collector", 5)
	if err != nil {
		t.Fatalf("Personalized: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected a category-scoped trending fallback")
	}
	for _, item := range items {
		if item.Category != "kitchen" {
			t.Errorf("fallback item %s outside the user's top category: %s", item.ProductID, item.Category)
		}
	}
}

func TestEngineCategory(t *testing.T) {
	t.Parallel()

	now := time.Now()
	provider := &mockProvider{
		products: catalogFixture(),
		users:    map[string]bool{"u1": true},
		recent: []InteractionEvent{
			{ProductID: "blender", Kind: KindPurchase, OccurredAt: now},
			{ProductID: "toaster", Kind: KindView, OccurredAt: now},
			{ProductID: "shoes-red", Kind: KindView, OccurredAt: now},
		},
	}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	ctx := context.Background()

	items, err := e.Category(ctx, "kitchen", "", 5)
	if err != nil {
		t.Fatalf("Category: %v", err)
	}
	for _, item := range items {
		if item.Category != "kitchen" {
			t.Errorf("item %s outside category: %s", item.ProductID, item.Category)
		}
	}
	if len(items) == 0 {
		t.Error("expected kitchen candidates")
	}

	if _, err := e.Category(ctx, "garden", "", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown category: err = %v, want ErrNotFound", err)
	}
}

func TestEngineRebuildIdempotent(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture()}
	e := newTestEngine(t, provider)

	first, err := e.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	second, err := e.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("second rebuild: %v", err)
	}

	if first.PairsGenerated != second.PairsGenerated {
		t.Errorf("pair count changed across identical rebuilds: %d vs %d", first.PairsGenerated, second.PairsGenerated)
	}
	if second.ModelVersion != first.ModelVersion+1 {
		t.Errorf("model version = %d, want %d", second.ModelVersion, first.ModelVersion+1)
	}
}

func TestEngineRebuildEmptyCatalogKeepsModel(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture()}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	before := e.ModelVersion()

	provider.products = nil
	if _, err := e.Rebuild(context.Background()); !errors.Is(err, ErrRebuildFailed) {
		t.Fatalf("empty-catalog rebuild: err = %v, want ErrRebuildFailed", err)
	}

	if e.ModelVersion() != before {
		t.Error("failed rebuild must not touch the committed model")
	}
	if items, err := e.Similar(context.Background(), "shoes-red", 5); err != nil || len(items) == 0 {
		t.Errorf("previous model should keep serving after a failed rebuild: items=%v err=%v", items, err)
	}
}

func TestEngineConcurrentRebuildSingleCommit(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	provider := &mockProvider{products: catalogFixture(), listGate: gate}
	e := newTestEngine(t, provider)

	done := make(chan error, 1)
	go func() {
		_, err := e.Rebuild(context.Background())
		done <- err
	}()

	// Wait until the first rebuild holds the lock.
	deadline := time.After(2 * time.Second)
	for e.Status().State != RebuildRunning.String() {
		select {
		case <-deadline:
			t.Fatal("first rebuild never started")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := e.Rebuild(context.Background()); !errors.Is(err, ErrRebuildInProgress) {
		t.Errorf("concurrent rebuild: err = %v, want ErrRebuildInProgress", err)
	}

	provider.mu.Lock()
	provider.listGate = nil
	provider.mu.Unlock()
	close(gate)

	if err := <-done; err != nil {
		t.Fatalf("first rebuild failed: %v", err)
	}
	if v := e.ModelVersion(); v != 1 {
		t.Errorf("model version = %d, want 1 (exactly one commit)", v)
	}
}

func TestEngineCacheExpiryAtRead(t *testing.T) {
	t.Parallel()

	now := time.Now()
	provider := &mockProvider{
		products: catalogFixture(),
		users:    map[string]bool{"u1": true},
		events: map[string][]InteractionEvent{
			"u1": {{UserID: "u1", ProductID: "shoes-red", Kind: KindLike, OccurredAt: now}},
		},
	}
	e := newTestEngine(t, provider)
	cache := newMockCache()
	e.SetCache(cache)
	rebuildOrFatal(t, e)

	clock := now
	e.now = func() time.Time { return clock }

	ctx := context.Background()

	if _, err := e.Personalized(ctx, "u1", 5); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := e.Personalized(ctx, "u1", 5); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if cache.puts != 1 {
		t.Fatalf("second call should be a cache hit, got %d puts", cache.puts)
	}
	if e.cacheHits.Load() != 1 {
		t.Errorf("cache hits = %d, want 1", e.cacheHits.Load())
	}

	// Jump past the TTL; the stale entry must behave as a miss.
	clock = clock.Add(e.Config().CacheTTL + time.Minute)

	if _, err := e.Personalized(ctx, "u1", 5); err != nil {
		t.Fatalf("post-expiry call: %v", err)
	}
	if cache.puts != 2 {
		t.Errorf("expired entry should be recomputed and re-stored, got %d puts", cache.puts)
	}
}

func TestEngineRebuildInvalidatesCache(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture()}
	e := newTestEngine(t, provider)
	cache := newMockCache()
	e.SetCache(cache)
	rebuildOrFatal(t, e)

	if _, err := e.Similar(context.Background(), "shoes-red", 5); err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if cache.Len() == 0 {
		t.Fatal("expected a cached entry before the rebuild")
	}

	rebuildOrFatal(t, e)

	if cache.Len() != 0 {
		t.Errorf("rebuild should invalidate the cache, %d entries remain", cache.Len())
	}
}

func TestEngineRecordFeedback(t *testing.T) {
	t.Parallel()

	now := time.Now()
	provider := &mockProvider{
		products: catalogFixture(),
		users:    map[string]bool{"u1": true},
		events: map[string][]InteractionEvent{
			"u1": {{UserID: "u1", ProductID: "shoes-red", Kind: KindLike, OccurredAt: now}},
		},
	}
	e := newTestEngine(t, provider)
	cache := newMockCache()
	e.SetCache(cache)
	rebuildOrFatal(t, e)

	items, err := e.Personalized(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("Personalized: %v", err)
	}

	if !e.RecordFeedback("u1", items[0].ProductID) {
		t.Error("feedback on a cached recommendation should mark it clicked")
	}
	if e.RecordFeedback("u1", "no-such-product") {
		t.Error("feedback on an unknown product should report false")
	}
}

func TestEngineStats(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture()}
	e := newTestEngine(t, provider)
	cache := newMockCache()
	e.SetCache(cache)
	rebuildOrFatal(t, e)

	ctx := context.Background()
	if _, err := e.Similar(ctx, "shoes-red", 5); err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if _, err := e.Similar(ctx, "shoes-red", 5); err != nil {
		t.Fatalf("Similar: %v", err)
	}

	stats, err := e.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.TotalProducts != len(catalogFixture()) {
		t.Errorf("TotalProducts = %d, want %d", stats.TotalProducts, len(catalogFixture()))
	}
	if stats.ModelVersion != 1 {
		t.Errorf("ModelVersion = %d, want 1", stats.ModelVersion)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 1 {
		t.Errorf("cache counters = %d hits / %d misses, want 1/1", stats.CacheHits, stats.CacheMisses)
	}
	if stats.CacheHitRate != 0.5 {
		t.Errorf("CacheHitRate = %f, want 0.5", stats.CacheHitRate)
	}
	if stats.RebuildState != RebuildCommitted.String() {
		t.Errorf("RebuildState = %s, want committed", stats.RebuildState)
	}
}

func TestEngineUpdateConfig(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture()}
	e := newTestEngine(t, provider)

	bad := DefaultConfig()
	bad.TopK = 0
	if err := e.UpdateConfig(bad); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("invalid config: err = %v, want ErrInvalidArgument", err)
	}

	good := DefaultConfig()
	good.TopK = 5
	if err := e.UpdateConfig(good); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if e.Config().TopK != 5 {
		t.Errorf("TopK = %d, want 5", e.Config().TopK)
	}
}

func TestEngineMaxLimitClamped(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{products: catalogFixture()}
	e := newTestEngine(t, provider)
	rebuildOrFatal(t, e)

	items, err := e.Similar(context.Background(), "shoes-red", 10000)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(items) > e.Config().MaxLimit {
		t.Errorf("result exceeds max limit: %d", len(items))
	}
}
