// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import (
	"fmt"
	"time"
)

// Config contains all tunables for the recommendation engine.
type Config struct {
	// TopK is the number of similarity neighbors retained per product.
	TopK int `json:"top_k" koanf:"top_k"`

	// MinSimilarity is the floor below which an edge is discarded even if
	// it would be in the top-K.
	MinSimilarity float64 `json:"min_similarity" koanf:"min_similarity"`

	// Weights defines the relative contribution of each interaction kind.
	Weights InteractionWeights `json:"weights" koanf:"weights"`

	// DecayHalfLife is the recency half-life applied to interaction
	// weights. An event this old contributes half its base weight.
	DecayHalfLife time.Duration `json:"decay_half_life" koanf:"decay_half_life"`

	// ViewDurationRef is the view duration that yields a full duration
	// bonus step. Longer views saturate at ViewDurationCap times the base
	// weight.
	ViewDurationRef time.Duration `json:"view_duration_ref" koanf:"view_duration_ref"`

	// ViewDurationCap bounds the duration multiplier so one long session
	// cannot dominate the profile.
	ViewDurationCap float64 `json:"view_duration_cap" koanf:"view_duration_cap"`

	// ExcludePurchased removes already-purchased products from
	// personalized candidates. Never relaxed.
	ExcludePurchased bool `json:"exclude_purchased" koanf:"exclude_purchased"`

	// ExcludeLiked removes already-liked products from personalized
	// candidates, relaxed automatically when it would empty the result.
	ExcludeLiked bool `json:"exclude_liked" koanf:"exclude_liked"`

	// TrendingWindowDays is the default trending window.
	TrendingWindowDays int `json:"trending_window_days" koanf:"trending_window_days"`

	// MaxWindowDays bounds the caller-supplied trending window.
	MaxWindowDays int `json:"max_window_days" koanf:"max_window_days"`

	// DefaultLimit is used when the caller passes zero via the API layer.
	DefaultLimit int `json:"default_limit" koanf:"default_limit"`

	// MaxLimit clamps caller-supplied limits.
	MaxLimit int `json:"max_limit" koanf:"max_limit"`

	// CacheTTL is the recommendation cache time-to-live.
	CacheTTL time.Duration `json:"cache_ttl" koanf:"cache_ttl"`

	// CacheEnabled controls whether scorer output is cached.
	CacheEnabled bool `json:"cache_enabled" koanf:"cache_enabled"`

	// InvalidateOnRebuild clears the cache when a rebuild commits.
	InvalidateOnRebuild bool `json:"invalidate_on_rebuild" koanf:"invalidate_on_rebuild"`
}

// InteractionWeights defines the base weight per interaction kind.
// Ordering contract: Purchase > Like > View.
type InteractionWeights struct {
	View     float64 `json:"view" koanf:"view"`
	Like     float64 `json:"like" koanf:"like"`
	Purchase float64 `json:"purchase" koanf:"purchase"`
}

// ForKind returns the base weight for an interaction kind.
func (w InteractionWeights) ForKind(k InteractionKind) float64 {
	switch k {
	case KindPurchase:
		return w.Purchase
	case KindLike:
		return w.Like
	default:
		return w.View
	}
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		TopK:                20,
		MinSimilarity:       0.1,
		Weights:             InteractionWeights{View: 1.0, Like: 2.0, Purchase: 3.0},
		DecayHalfLife:       720 * time.Hour,
		ViewDurationRef:     5 * time.Minute,
		ViewDurationCap:     2.0,
		ExcludePurchased:    true,
		ExcludeLiked:        true,
		TrendingWindowDays:  7,
		MaxWindowDays:       30,
		DefaultLimit:        10,
		MaxLimit:            100,
		CacheTTL:            24 * time.Hour,
		CacheEnabled:        true,
		InvalidateOnRebuild: true,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("min_similarity must be in [0, 1], got %f", c.MinSimilarity)
	}
	if c.Weights.View <= 0 || c.Weights.Like <= 0 || c.Weights.Purchase <= 0 {
		return fmt.Errorf("interaction weights must be positive, got view=%f like=%f purchase=%f",
			c.Weights.View, c.Weights.Like, c.Weights.Purchase)
	}
	if c.Weights.Purchase < c.Weights.Like || c.Weights.Like < c.Weights.View {
		return fmt.Errorf("interaction weights must satisfy purchase >= like >= view, got view=%f like=%f purchase=%f",
			c.Weights.View, c.Weights.Like, c.Weights.Purchase)
	}
	if c.DecayHalfLife <= 0 {
		return fmt.Errorf("decay_half_life must be positive, got %v", c.DecayHalfLife)
	}
	if c.ViewDurationRef <= 0 {
		return fmt.Errorf("view_duration_ref must be positive, got %v", c.ViewDurationRef)
	}
	if c.ViewDurationCap < 0 {
		return fmt.Errorf("view_duration_cap must be non-negative, got %f", c.ViewDurationCap)
	}
	if c.TrendingWindowDays < 1 {
		return fmt.Errorf("trending_window_days must be positive, got %d", c.TrendingWindowDays)
	}
	if c.MaxWindowDays < c.TrendingWindowDays {
		return fmt.Errorf("max_window_days must be >= trending_window_days, got %d < %d",
			c.MaxWindowDays, c.TrendingWindowDays)
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit must be >= default_limit, got %d < %d", c.MaxLimit, c.DefaultLimit)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %v", c.CacheTTL)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All fields are value types.
	out := *c
	return &out
}
