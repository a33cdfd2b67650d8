// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Engine is the recommendation facade: it owns the current similarity model,
// serves the four recommendation modes, coordinates rebuilds, and fronts the
// recommendation cache. It is safe for concurrent use.
type Engine struct {
	logger zerolog.Logger

	config   *Config
	configMu sync.RWMutex

	catalog      CatalogProvider
	interactions InteractionProvider

	// Optional collaborators; nil disables the concern.
	edges     EdgeSink
	snapshots SnapshotStore
	cache     CacheStore

	// model is the single source of truth for reads. Readers load it once
	// per request and use that snapshot throughout.
	model atomic.Pointer[SimilarityModel]

	// rebuildMu gives at-most-one rebuild via TryLock; a losing caller is
	// told RebuildInProgress rather than queued.
	rebuildMu sync.Mutex

	rebuildState atomic.Int32

	statusMu        sync.RWMutex
	lastRebuiltAt   time.Time
	lastDuration    time.Duration
	lastError       string
	lastPairs       int
	productsIndexed int

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	commitHook func(*SimilarityModel, RebuildResult)

	now func() time.Time
}

// NewEngine creates a recommendation engine over the given providers.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, catalog CatalogProvider, interactions InteractionProvider, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog provider is required")
	}
	if interactions == nil {
		return nil, fmt.Errorf("interaction provider is required")
	}

	return &Engine{
		logger:       logger.With().Str("component", "recommend").Logger(),
		config:       cfg.Clone(),
		catalog:      catalog,
		interactions: interactions,
		now:          time.Now,
	}, nil
}

// SetEdgeSink wires the persistence sink for committed similarity edges.
func (e *Engine) SetEdgeSink(s EdgeSink) { e.edges = s }

// SetSnapshotStore wires the model snapshot store for warm starts.
func (e *Engine) SetSnapshotStore(s SnapshotStore) { e.snapshots = s }

// SetCache wires the recommendation cache.
func (e *Engine) SetCache(c CacheStore) { e.cache = c }

// SetCommitHook registers a callback invoked after each committed rebuild,
// outside any engine lock. Used for metrics.
func (e *Engine) SetCommitHook(fn func(*SimilarityModel, RebuildResult)) { e.commitHook = fn }

// Similar returns the products most similar to the given product, straight
// from the current model's neighbor lists. Unknown product yields NotFound;
// a known product without neighbors yields an empty list.
func (e *Engine) Similar(ctx context.Context, productID string, limit int) ([]ScoredProduct, error) {
	cfg := e.Config()
	limit, err := normalizeLimit(limit, cfg)
	if err != nil {
		return nil, err
	}
	if productID == "" {
		return nil, fmt.Errorf("product id is empty: %w", ErrInvalidArgument)
	}

	model := e.model.Load()
	if model == nil {
		return nil, fmt.Errorf("no similarity model built yet: %w", ErrModelUnavailable)
	}

	key := cacheKey("similar", productID, limit, 0)
	if items, ok := e.lookupCache(key); ok {
		return items, nil
	}

	if _, ok := model.Products[productID]; !ok {
		prod, err := e.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("look up product %q: %w", productID, err)
		}
		if prod == nil {
			return nil, fmt.Errorf("product %q: %w", productID, ErrNotFound)
		}
		// Known to the catalog but newer than the model; it has no
		// neighbors until the next rebuild.
		return []ScoredProduct{}, nil
	}

	items := similarProducts(productID, model, limit)
	e.storeCache(key, "", items, AlgorithmContentTFIDF, cfg)
	return items, nil
}

// Personalized returns recommendations for a user based on their interaction
// profile. Unknown user yields NotFound; a user with no history (or whose
// history yields no candidates) falls back to trending, never an error.
func (e *Engine) Personalized(ctx context.Context, userID string, limit int) ([]ScoredProduct, error) {
	cfg := e.Config()
	limit, err := normalizeLimit(limit, cfg)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("user id is empty: %w", ErrInvalidArgument)
	}

	model := e.model.Load()
	if model == nil {
		return nil, fmt.Errorf("no similarity model built yet: %w", ErrModelUnavailable)
	}

	exists, err := e.interactions.UserExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up user %q: %w", userID, err)
	}
	if !exists {
		return nil, fmt.Errorf("user %q: %w", userID, ErrNotFound)
	}

	key := cacheKey("personalized", userID, limit, 0)
	if items, ok := e.lookupCache(key); ok {
		return items, nil
	}

	items, algorithm, err := e.personalizedFor(ctx, userID, model, "", limit, cfg)
	if err != nil {
		return nil, err
	}

	e.storeCache(key, userID, items, algorithm, cfg)
	return items, nil
}

// personalizedFor runs the hybrid scoring path with a trending fallback.
// category, when non-empty, scopes both the hybrid candidates and the
// fallback.
func (e *Engine) personalizedFor(ctx context.Context, userID string, model *SimilarityModel, category string, limit int, cfg *Config) ([]ScoredProduct, string, error) {
	events, err := e.interactions.ListInteractions(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("load interactions for %q: %w", userID, err)
	}

	profile := buildProfile(userID, events, e.now(), cfg)
	if !profile.Empty() {
		items := scorePersonalized(profile, model, category, limit, cfg)
		if len(items) > 0 {
			return items, AlgorithmContentTFIDF, nil
		}
		e.logger.Debug().
			Str("user_id", userID).
			Int("events", len(events)).
			Msg("profile produced no candidates, falling back to trending")

		// An exhausted profile still says what the user cares about: for an
		// unscoped request, try trending within their strongest category
		// before going global.
		if category == "" {
			profile.attachCategories(model.Products)
			if top := profile.topCategory(); top != "" {
				items, err := e.trendingItems(ctx, model, top, limit, cfg.TrendingWindowDays, cfg)
				if err != nil {
					return nil, "", err
				}
				if len(items) > 0 {
					return items, AlgorithmTrending, nil
				}
			}
		}
	}

	items, err := e.trendingItems(ctx, model, category, limit, cfg.TrendingWindowDays, cfg)
	if err != nil {
		return nil, "", err
	}
	return items, AlgorithmTrending, nil
}

// Trending returns the most popular products over a recent window.
// windowDays 0 means the configured default; negative or above the maximum
// is InvalidArgument.
func (e *Engine) Trending(ctx context.Context, limit, windowDays int) ([]ScoredProduct, error) {
	cfg := e.Config()
	limit, err := normalizeLimit(limit, cfg)
	if err != nil {
		return nil, err
	}
	windowDays, err = normalizeWindow(windowDays, cfg)
	if err != nil {
		return nil, err
	}

	model := e.model.Load()
	if model == nil {
		return nil, fmt.Errorf("no similarity model built yet: %w", ErrModelUnavailable)
	}

	key := cacheKey("trending", "", limit, windowDays)
	if items, ok := e.lookupCache(key); ok {
		return items, nil
	}

	items, err := e.trendingItems(ctx, model, "", limit, windowDays, cfg)
	if err != nil {
		return nil, err
	}

	e.storeCache(key, "", items, AlgorithmTrending, cfg)
	return items, nil
}

func (e *Engine) trendingItems(ctx context.Context, model *SimilarityModel, category string, limit, windowDays int, cfg *Config) ([]ScoredProduct, error) {
	events, err := e.interactions.ListRecentInteractions(ctx, windowDays)
	if err != nil {
		return nil, fmt.Errorf("load recent interactions: %w", err)
	}
	return rankTrending(events, model.Products, category, limit, cfg), nil
}

// Category returns recommendations scoped to one category. userID is
// optional; with a resolved user the personalized path runs first and falls
// back to trending within the category, without one the trending ranking is
// served directly. Unknown category yields NotFound.
func (e *Engine) Category(ctx context.Context, category, userID string, limit int) ([]ScoredProduct, error) {
	cfg := e.Config()
	limit, err := normalizeLimit(limit, cfg)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return nil, fmt.Errorf("category is empty: %w", ErrInvalidArgument)
	}

	model := e.model.Load()
	if model == nil {
		return nil, fmt.Errorf("no similarity model built yet: %w", ErrModelUnavailable)
	}

	exists, err := e.catalog.CategoryExists(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("look up category %q: %w", category, err)
	}
	if !exists {
		return nil, fmt.Errorf("category %q: %w", category, ErrNotFound)
	}

	key := cacheKey("category", category+":"+userID, limit, 0)
	if items, ok := e.lookupCache(key); ok {
		return items, nil
	}

	var (
		items     []ScoredProduct
		algorithm = AlgorithmTrending
	)
	if userID != "" {
		known, err := e.interactions.UserExists(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("look up user %q: %w", userID, err)
		}
		if known {
			items, algorithm, err = e.personalizedFor(ctx, userID, model, category, limit, cfg)
			if err != nil {
				return nil, err
			}
		}
	}
	if items == nil {
		items, err = e.trendingItems(ctx, model, category, limit, cfg.TrendingWindowDays, cfg)
		if err != nil {
			return nil, err
		}
	}

	e.storeCache(key, userID, items, algorithm, cfg)
	return items, nil
}

// Stats returns the engine introspection snapshot.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	_ = ctx

	s := &Stats{
		RebuildState: RebuildState(e.rebuildState.Load()).String(),
		CacheHits:    e.cacheHits.Load(),
		CacheMisses:  e.cacheMisses.Load(),
	}

	if model := e.model.Load(); model != nil {
		s.TotalProducts = len(model.Products)
		s.TotalSimilarityPairs = model.PairCount
		s.ModelVersion = model.Version
		s.LastRebuiltAt = model.BuiltAt
	}

	if total := s.CacheHits + s.CacheMisses; total > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(total)
	}
	if e.cache != nil {
		s.CacheEntries = e.cache.Len()
	}

	return s, nil
}

// Status describes the rebuild state machine.
func (e *Engine) Status() *RebuildStatus {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()

	st := &RebuildStatus{
		State:           RebuildState(e.rebuildState.Load()).String(),
		LastRebuiltAt:   e.lastRebuiltAt,
		LastDurationMS:  e.lastDuration.Milliseconds(),
		LastError:       e.lastError,
		PairsGenerated:  e.lastPairs,
		ProductsIndexed: e.productsIndexed,
	}
	if model := e.model.Load(); model != nil {
		st.ModelVersion = model.Version
	}
	return st
}

// Config returns a copy of the current engine configuration.
func (e *Engine) Config() *Config {
	e.configMu.RLock()
	defer e.configMu.RUnlock()
	return e.config.Clone()
}

// UpdateConfig validates and installs a new configuration, then drops the
// cache since cached rankings may no longer reflect the tunables.
func (e *Engine) UpdateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil: %w", ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidArgument)
	}

	e.configMu.Lock()
	e.config = cfg.Clone()
	e.configMu.Unlock()

	e.invalidateCache()
	e.logger.Info().Msg("engine configuration updated")
	return nil
}

// RecordFeedback marks cached recommendations containing the product as
// clicked. Returns false when no cached entry matched.
func (e *Engine) RecordFeedback(userID, productID string) bool {
	if e.cache == nil {
		return false
	}
	return e.cache.MarkClicked(userID, productID)
}

// ModelVersion returns the current model's version, or 0 when none is built.
func (e *Engine) ModelVersion() int {
	if model := e.model.Load(); model != nil {
		return model.Version
	}
	return 0
}

// lookupCache returns a fresh cached result for the key. Expiry is decided
// here, against the engine clock, regardless of backend TTL support.
func (e *Engine) lookupCache(key string) ([]ScoredProduct, bool) {
	if e.cache == nil {
		return nil, false
	}

	cfg := e.Config()
	if !cfg.CacheEnabled {
		return nil, false
	}

	entry, ok := e.cache.Get(key)
	if !ok || entry.Expired(e.now()) {
		e.cacheMisses.Add(1)
		return nil, false
	}

	e.cacheHits.Add(1)
	return entry.Items, true
}

func (e *Engine) storeCache(key, userID string, items []ScoredProduct, algorithm string, cfg *Config) {
	if e.cache == nil || !cfg.CacheEnabled {
		return
	}

	now := e.now()
	entry := &CachedRecommendation{
		Key:         key,
		UserID:      userID,
		Items:       items,
		Algorithm:   algorithm,
		GeneratedAt: now,
		ExpiresAt:   now.Add(cfg.CacheTTL),
	}
	if err := e.cache.Put(entry); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("failed to cache recommendations")
	}
}

func (e *Engine) invalidateCache() {
	if e.cache == nil {
		return
	}
	if err := e.cache.InvalidateAll(); err != nil {
		e.logger.Warn().Err(err).Msg("failed to invalidate recommendation cache")
	}
}

// cacheKey builds the mode:subject:limit:window cache key.
func cacheKey(mode, subject string, limit, window int) string {
	var b strings.Builder
	b.WriteString(mode)
	b.WriteByte(':')
	b.WriteString(subject)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(limit))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(window))
	return b.String()
}

// normalizeLimit rejects non-positive limits and clamps to the maximum.
func normalizeLimit(limit int, cfg *Config) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("limit must be positive, got %d: %w", limit, ErrInvalidArgument)
	}
	if limit > cfg.MaxLimit {
		return cfg.MaxLimit, nil
	}
	return limit, nil
}

// normalizeWindow applies the default window and bounds caller input.
func normalizeWindow(windowDays int, cfg *Config) (int, error) {
	if windowDays == 0 {
		return cfg.TrendingWindowDays, nil
	}
	if windowDays < 0 || windowDays > cfg.MaxWindowDays {
		return 0, fmt.Errorf("window_days must be in [1, %d], got %d: %w", cfg.MaxWindowDays, windowDays, ErrInvalidArgument)
	}
	return windowDays, nil
}
