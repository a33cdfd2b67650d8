// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import (
	"context"
	"time"
)

// Note: This package has no dependencies on other internal packages. The
// provider interfaces below allow integration with the database and cache
// layers without creating circular imports.

// InteractionKind classifies user-product interactions.
type InteractionKind int

const (
	// KindView indicates the user viewed a product page.
	KindView InteractionKind = iota
	// KindLike indicates the user liked a product.
	KindLike
	// KindPurchase indicates the user purchased a product.
	KindPurchase
)

// String returns the wire name for the interaction kind.
func (k InteractionKind) String() string {
	switch k {
	case KindView:
		return "view"
	case KindLike:
		return "like"
	case KindPurchase:
		return "purchase"
	default:
		return "unknown"
	}
}

// ParseInteractionKind converts a wire name to an InteractionKind.
// The second return value reports whether the name was recognized.
func ParseInteractionKind(s string) (InteractionKind, bool) {
	switch s {
	case "view":
		return KindView, true
	case "like":
		return KindLike, true
	case "purchase":
		return KindPurchase, true
	default:
		return KindView, false
	}
}

// Product is a catalog item snapshot as seen at rebuild time.
type Product struct {
	// ID is the opaque, stable product identifier.
	ID string `json:"id"`

	// Name is the display name, part of the vectorized text.
	Name string `json:"name"`

	// Description is the free-text description, part of the vectorized text.
	Description string `json:"description,omitempty"`

	// Category is the product category; empty when unset.
	Category string `json:"category,omitempty"`

	// Brand is the product brand; empty when unset.
	Brand string `json:"brand,omitempty"`

	// Price is the unit price, >= 0.
	Price float64 `json:"price"`

	// Rating is the average review rating, 0.0-5.0. Used as a tie-break.
	Rating float64 `json:"rating"`

	// ReviewCount is the number of reviews behind Rating.
	ReviewCount int `json:"review_count,omitempty"`

	// Active indicates the product is visible in the catalog.
	Active bool `json:"active"`
}

// InteractionEvent is a single append-only user-product interaction.
type InteractionEvent struct {
	// ID is the event identifier (UUID).
	ID string `json:"id"`

	// UserID is the user who interacted.
	UserID string `json:"user_id"`

	// ProductID is the product interacted with.
	ProductID string `json:"product_id"`

	// Kind classifies the interaction.
	Kind InteractionKind `json:"kind"`

	// DurationSeconds is the view duration; zero for likes and purchases.
	DurationSeconds int `json:"duration_seconds,omitempty"`

	// Quantity is the purchased quantity; zero for views and likes.
	Quantity int `json:"quantity,omitempty"`

	// UnitPrice is the price paid per unit for purchases.
	UnitPrice float64 `json:"unit_price,omitempty"`

	// OccurredAt is when the interaction happened.
	OccurredAt time.Time `json:"occurred_at"`
}

// FeatureVector is a sparse TF-IDF term->weight map, L2-normalized so that
// cosine similarity of two vectors reduces to their dot product.
type FeatureVector map[string]float64

// Neighbor is one entry in a product's top-K similarity list.
type Neighbor struct {
	// ProductID is the similar product.
	ProductID string `json:"product_id"`

	// Score is the cosine similarity, clamped to [0,1].
	Score float64 `json:"score"`
}

// SimilarityEdge is the persisted form of an unordered similarity pair.
// Invariants: ProductA < ProductB lexicographically, ProductA != ProductB,
// Score in [0,1], at most one edge per pair.
type SimilarityEdge struct {
	ProductA  string  `json:"product_a"`
	ProductB  string  `json:"product_b"`
	Score     float64 `json:"score"`
	Algorithm string  `json:"algorithm"`
}

// AlgorithmContentTFIDF tags edges and recommendations produced by the
// TF-IDF content similarity pipeline.
const AlgorithmContentTFIDF = "content_tfidf"

// AlgorithmTrending tags recommendations produced by the windowed
// popularity ranking, including the cold-start fallback path.
const AlgorithmTrending = "trending"

// SimilarityModel is the immutable aggregate produced by a rebuild: the
// feature vectors, the per-product top-K neighbor lists, and the product
// snapshot they were computed from. Exactly one model is current at any
// instant; readers obtain it via a single atomic pointer load and use that
// snapshot for the whole request.
type SimilarityModel struct {
	// Version increments with each committed rebuild.
	Version int `json:"version"`

	// BuiltAt is when the rebuild that produced this model committed.
	BuiltAt time.Time `json:"built_at"`

	// Vectors holds one feature vector per product.
	Vectors map[string]FeatureVector `json:"vectors"`

	// Neighbors maps product ID to its neighbor list, ordered by score
	// descending then product ID ascending.
	Neighbors map[string][]Neighbor `json:"neighbors"`

	// Products indexes the catalog snapshot by ID.
	Products map[string]Product `json:"products"`

	// PairCount is the number of unordered similarity pairs retained.
	PairCount int `json:"pair_count"`
}

// Edges flattens the neighbor lists into deduplicated unordered edges,
// suitable for persistence. Each pair appears once with ProductA < ProductB.
func (m *SimilarityModel) Edges() []SimilarityEdge {
	seen := make(map[[2]string]struct{}, m.PairCount)
	edges := make([]SimilarityEdge, 0, m.PairCount)

	for id, neighbors := range m.Neighbors {
		for _, n := range neighbors {
			a, b := id, n.ProductID
			if a > b {
				a, b = b, a
			}
			key := [2]string{a, b}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			edges = append(edges, SimilarityEdge{
				ProductA:  a,
				ProductB:  b,
				Score:     n.Score,
				Algorithm: AlgorithmContentTFIDF,
			})
		}
	}

	return edges
}

// UserProfile is the derived, non-durable interest mapping for one user.
type UserProfile struct {
	// UserID is the profiled user.
	UserID string `json:"user_id"`

	// Weights maps product ID to decayed interaction weight.
	Weights map[string]float64 `json:"weights"`

	// Categories aggregates Weights by product category.
	Categories map[string]float64 `json:"categories"`

	// Liked holds products the user has liked.
	Liked map[string]struct{} `json:"-"`

	// Purchased holds products the user has purchased.
	Purchased map[string]struct{} `json:"-"`
}

// Empty reports whether the profile carries no interaction signal
// (cold start).
func (p *UserProfile) Empty() bool {
	return len(p.Weights) == 0
}

// ScoredProduct is one ranked recommendation.
type ScoredProduct struct {
	// ProductID is the recommended product.
	ProductID string `json:"product_id"`

	// Score is the aggregate recommendation score.
	Score float64 `json:"score"`

	// Name, Category, and Rating are denormalized from the model snapshot
	// so the API layer does not need a catalog round-trip per item.
	Name     string  `json:"name,omitempty"`
	Category string  `json:"category,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
}

// RebuildState is the rebuild lifecycle: Idle -> Running -> {Committed, Failed}.
type RebuildState int32

const (
	// RebuildIdle means no rebuild has been attempted yet.
	RebuildIdle RebuildState = iota
	// RebuildRunning means a rebuild is in flight.
	RebuildRunning
	// RebuildCommitted means the last rebuild swapped a new model in.
	RebuildCommitted
	// RebuildFailed means the last rebuild was discarded; the previously
	// committed model, if any, remains current.
	RebuildFailed
)

// String returns a human-readable state name.
func (s RebuildState) String() string {
	switch s {
	case RebuildIdle:
		return "idle"
	case RebuildRunning:
		return "running"
	case RebuildCommitted:
		return "committed"
	case RebuildFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RebuildResult reports the outcome of a committed rebuild.
type RebuildResult struct {
	// Success is true when a new model was committed.
	Success bool `json:"success"`

	// PairsGenerated is the number of similarity pairs in the new model.
	PairsGenerated int `json:"pairs_generated"`

	// RebuiltAt is the commit time.
	RebuiltAt time.Time `json:"rebuilt_at"`

	// ModelVersion is the committed model's version.
	ModelVersion int `json:"model_version"`
}

// Stats is the engine introspection snapshot.
type Stats struct {
	TotalProducts        int       `json:"total_products"`
	TotalSimilarityPairs int       `json:"total_similarity_pairs"`
	ModelVersion         int       `json:"model_version"`
	LastRebuiltAt        time.Time `json:"last_rebuilt_at"`
	RebuildState         string    `json:"rebuild_state"`
	CacheHits            int64     `json:"cache_hits"`
	CacheMisses          int64     `json:"cache_misses"`
	CacheHitRate         float64   `json:"cache_hit_rate"`
	CacheEntries         int       `json:"cache_entries"`
}

// RebuildStatus describes the rebuild state machine for introspection.
type RebuildStatus struct {
	State           string    `json:"state"`
	LastRebuiltAt   time.Time `json:"last_rebuilt_at"`
	LastDurationMS  int64     `json:"last_duration_ms"`
	LastError       string    `json:"last_error,omitempty"`
	ModelVersion    int       `json:"model_version"`
	PairsGenerated  int       `json:"pairs_generated"`
	ProductsIndexed int       `json:"products_indexed"`
}

// CachedRecommendation is one cache entry: the most recent scorer output for
// a (mode, subject, limit, window) key. Expiry is a pure function of
// (now, ExpiresAt) checked at read time; an expired entry behaves as a miss.
type CachedRecommendation struct {
	// Key is the cache key (mode:subject:limit:window).
	Key string `json:"key"`

	// UserID is the subject user, empty for non-personalized modes.
	UserID string `json:"user_id,omitempty"`

	// Items is the ranked recommendation list.
	Items []ScoredProduct `json:"items"`

	// Algorithm tags how Items were produced.
	Algorithm string `json:"algorithm"`

	// GeneratedAt is when the scorer ran.
	GeneratedAt time.Time `json:"generated_at"`

	// ExpiresAt is the hard TTL bound.
	ExpiresAt time.Time `json:"expires_at"`

	// Clicked is set by recommendation feedback.
	Clicked bool `json:"clicked"`
}

// Expired reports whether the entry must be treated as absent at the given
// instant.
func (c *CachedRecommendation) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// CatalogProvider supplies product records. Implemented by the database
// layer.
type CatalogProvider interface {
	// ListActiveProducts returns the full active catalog snapshot.
	ListActiveProducts(ctx context.Context) ([]Product, error)

	// GetProduct returns a product by ID, or (nil, nil) when unknown.
	GetProduct(ctx context.Context, id string) (*Product, error)

	// CategoryExists reports whether any active product carries the
	// category.
	CategoryExists(ctx context.Context, category string) (bool, error)
}

// InteractionProvider supplies interaction events. Implemented by the
// database layer.
type InteractionProvider interface {
	// ListInteractions returns all events for one user, newest first.
	ListInteractions(ctx context.Context, userID string) ([]InteractionEvent, error)

	// ListRecentInteractions returns all users' events within the window.
	ListRecentInteractions(ctx context.Context, windowDays int) ([]InteractionEvent, error)

	// UserExists reports whether the user is known to the store.
	UserExists(ctx context.Context, userID string) (bool, error)
}

// EdgeSink persists the similarity edges of a committed model. Persistence
// failures are non-fatal; the in-memory model is already authoritative.
type EdgeSink interface {
	ReplaceSimilarityEdges(ctx context.Context, edges []SimilarityEdge) error
}

// CacheStore is the recommendation cache consumed by the engine.
// Implemented by the cache package (memory and badger backends).
type CacheStore interface {
	// Get returns the entry for key, or false on miss. Implementations do
	// not need to check expiry; the engine enforces it at read time.
	Get(key string) (*CachedRecommendation, bool)

	// Put stores an entry, superseding any previous one under the same key.
	Put(entry *CachedRecommendation) error

	// MarkClicked flags entries for the user that contain the product.
	// Returns true when at least one entry was updated.
	MarkClicked(userID, productID string) bool

	// InvalidateAll drops every entry.
	InvalidateAll() error

	// Len returns the number of stored entries.
	Len() int

	// Close releases backend resources.
	Close() error
}

// SnapshotStore persists committed models across restarts. Implemented by
// the recommend/storage package.
type SnapshotStore interface {
	// SaveModel persists a committed model under its version.
	SaveModel(ctx context.Context, m *SimilarityModel) error

	// LoadLatestModel returns the newest persisted model, or (nil, nil)
	// when none exists.
	LoadLatestModel(ctx context.Context) (*SimilarityModel, error)
}
