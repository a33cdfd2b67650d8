// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

// Package api provides the HTTP surface: chi routing, the response envelope,
// engine error mapping, and the handlers for catalog browsing, interaction
// recording, and recommendations.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvenn/commendo/internal/auth"
	"github.com/dvenn/commendo/internal/config"
	"github.com/dvenn/commendo/internal/database"
	"github.com/dvenn/commendo/internal/importer"
	"github.com/dvenn/commendo/internal/recommend"
)

// handlerTimeout bounds each handler's downstream work.
const handlerTimeout = 10 * time.Second

// Engine is the recommendation surface consumed by the handlers.
// Implemented by *recommend.Engine.
type Engine interface {
	Similar(ctx context.Context, productID string, limit int) ([]recommend.ScoredProduct, error)
	Personalized(ctx context.Context, userID string, limit int) ([]recommend.ScoredProduct, error)
	Trending(ctx context.Context, limit, windowDays int) ([]recommend.ScoredProduct, error)
	Category(ctx context.Context, category, userID string, limit int) ([]recommend.ScoredProduct, error)
	Rebuild(ctx context.Context) (*recommend.RebuildResult, error)
	Stats(ctx context.Context) (*recommend.Stats, error)
	Status() *recommend.RebuildStatus
	Config() *recommend.Config
	UpdateConfig(cfg *recommend.Config) error
	RecordFeedback(userID, productID string) bool
}

var _ Engine = (*recommend.Engine)(nil)

// Catalog is the product browsing surface consumed by the handlers.
// Implemented by *database.DB.
type Catalog interface {
	ListProducts(ctx context.Context, category string, limit, offset int) ([]recommend.Product, int, error)
	GetProduct(ctx context.Context, id string) (*recommend.Product, error)
	ListCategories(ctx context.Context) ([]database.CategoryCount, error)
	Ping(ctx context.Context) error
}

var _ Catalog = (*database.DB)(nil)

// InteractionPublisher publishes recorded interactions onto the event bus.
type InteractionPublisher interface {
	PublishInteraction(ev *recommend.InteractionEvent) error
}

// CatalogImporter triggers catalog imports. Implemented by
// *importer.Importer.
type CatalogImporter interface {
	Run(ctx context.Context) (*importer.Result, error)
	BreakerState() string
}

// Handler holds the dependencies of all HTTP handlers.
type Handler struct {
	engine    Engine
	catalog   Catalog
	publisher InteractionPublisher
	importer  CatalogImporter

	creds        *auth.AdminCredentials
	jwtManager   *auth.JWTManager
	tokenLimiter *auth.TokenLimiter

	cfg       *config.Config
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandler creates the handler set. importer may be nil when no import
// source is configured.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(
	engine Engine,
	catalog Catalog,
	publisher InteractionPublisher,
	catalogImporter CatalogImporter,
	creds *auth.AdminCredentials,
	jwtManager *auth.JWTManager,
	cfg *config.Config,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		engine:       engine,
		catalog:      catalog,
		publisher:    publisher,
		importer:     catalogImporter,
		creds:        creds,
		jwtManager:   jwtManager,
		tokenLimiter: auth.NewTokenLimiter(cfg.Security.TokenRequestsPerMinute),
		cfg:          cfg,
		logger:       logger.With().Str("component", "api").Logger(),
		startTime:    time.Now(),
	}
}

// handlerContext derives the bounded per-request context.
func handlerContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), handlerTimeout)
}

// limitParam reads the ?limit query parameter, applying the engine's
// configured default result count when the caller omits it. Explicit
// values pass through untouched, so the engine still rejects non-positive
// limits as invalid.
func (h *Handler) limitParam(r *http.Request) int {
	return queryInt(r, "limit", h.engine.Config().DefaultLimit)
}
