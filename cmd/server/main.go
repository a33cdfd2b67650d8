// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

// Package main is the entry point for the Commendo server.
//
// Commendo is a self-hosted content-based product recommendation engine. It
// vectorizes the product catalog with TF-IDF, computes pairwise cosine
// similarities into a top-K neighbor model, and serves personalized,
// similar-item, trending, and category recommendations over a REST API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, config.yaml, env)
//  2. Database: DuckDB catalog, users, interactions, persisted edges
//  3. Cache: recommendation cache (in-memory or BadgerDB)
//  4. Snapshot store: gob+gzip model snapshots for warm restarts
//  5. Engine: the similarity model and scorers
//  6. Event bus: Watermill gochannel for interaction ingestion
//  7. Importer: optional catalog seeding from a remote URL or local file
//  8. HTTP server: chi REST API under a suture supervision tree
//
// # Configuration
//
// Key environment variables (see internal/config for the full set):
//
//	SERVER_PORT       HTTP port (default 8180)
//	DATABASE_PATH     DuckDB file path
//	CACHE_BACKEND     "memory" or "badger"
//	ENGINE_TOP_K      neighbors retained per product
//	REBUILD_INTERVAL  periodic rebuild cadence (default 24h)
//	MOCK_DATA_URL     remote product dataset to import on startup
//	AUTH_MODE         "jwt" (default) or "none" for development
//	JWT_SECRET        32+ character secret, required in production
//	ADMIN_USERNAME    operator account for POST /api/v1/auth/token
//	ADMIN_PASSWORD    operator password (plain or bcrypt hash)
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests (10s timeout), the consumer and scheduler stop, and
// the stores are closed.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvenn/commendo/internal/api"
	"github.com/dvenn/commendo/internal/auth"
	"github.com/dvenn/commendo/internal/cache"
	"github.com/dvenn/commendo/internal/config"
	"github.com/dvenn/commendo/internal/database"
	"github.com/dvenn/commendo/internal/events"
	"github.com/dvenn/commendo/internal/importer"
	"github.com/dvenn/commendo/internal/logging"
	"github.com/dvenn/commendo/internal/metrics"
	"github.com/dvenn/commendo/internal/recommend"
	"github.com/dvenn/commendo/internal/recommend/storage"
	"github.com/dvenn/commendo/internal/supervisor"
	"github.com/dvenn/commendo/internal/supervisor/services"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("cache_backend", cfg.Cache.Backend).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Commendo")

	// Database.
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Recommendation cache.
	cacheStore, err := cache.New(cfg.Cache.Backend, cfg.Cache.Path, cfg.Cache.MaxEntries, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()

	// Model snapshots.
	snapshots, err := storage.NewSnapshotStore(cfg.Storage.SnapshotDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize snapshot store")
	}

	// Engine.
	engineCfg := cfg.Engine
	engine, err := recommend.NewEngine(&engineCfg, db, db, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize engine")
	}
	engine.SetEdgeSink(db)
	engine.SetSnapshotStore(snapshots)
	engine.SetCache(cacheStore)
	engine.SetCommitHook(func(m *recommend.SimilarityModel, _ recommend.RebuildResult) {
		duration := time.Duration(engine.Status().LastDurationMS) * time.Millisecond
		metrics.RecordRebuild("success", duration, m.Version, len(m.Products), m.PairCount)
		metrics.CacheEntries.Set(float64(cacheStore.Len()))
		pruneCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := snapshots.Prune(pruneCtx, cfg.Storage.KeepVersions); err != nil {
			logging.Warn().Err(err).Msg("Snapshot pruning failed")
		}
	})

	startupCtx, startupCancel := context.WithTimeout(context.Background(), cfg.Rebuild.Timeout)
	defer startupCancel()

	// Optional catalog import before the first rebuild.
	var catalogImporter *importer.Importer
	if cfg.Importer.URL != "" || cfg.Importer.SeedFile != "" {
		catalogImporter = importer.New(cfg.Importer.URL, cfg.Importer.SeedFile,
			cfg.Importer.Timeout, db, logging.Logger())
		if cfg.Importer.OnStartup {
			if result, err := catalogImporter.Run(startupCtx); err != nil {
				logging.Warn().Err(err).Msg("Startup catalog import failed")
			} else {
				logging.Info().Int("imported", result.Imported).Str("source", result.Source).
					Msg("Startup catalog import finished")
			}
		}
	}

	// Warm start: a persisted snapshot serves until the first rebuild.
	restored, err := engine.RestoreFromSnapshot(startupCtx)
	if err != nil {
		logging.Warn().Err(err).Msg("Snapshot restore failed, starting cold")
	} else if restored {
		logging.Info().Int("model_version", engine.ModelVersion()).Msg("Model restored from snapshot")
	}

	if cfg.Rebuild.OnStartup {
		if _, err := engine.Rebuild(startupCtx); err != nil {
			// Not fatal: a restored snapshot or a later scheduled rebuild
			// can still bring the model up.
			logging.Warn().Err(err).Msg("Startup rebuild failed")
		}
	}

	// Interaction event bus.
	bus := events.NewBus(logging.Logger())
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	publisher := events.NewPublisher(bus.Publisher())
	consumer := events.NewConsumer(bus.Subscriber(), db, logging.Logger())

	// Auth.
	var creds *auth.AdminCredentials
	if cfg.Security.AdminUsername != "" {
		creds, err = auth.NewAdminCredentials(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			logging.Fatal().Err(err).Msg("Invalid admin credentials")
		}
	}
	jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	if err != nil && cfg.Security.AuthMode != "none" {
		logging.Fatal().Err(err).Msg("Invalid JWT configuration")
	}
	authenticator := auth.NewAuthenticator(cfg.Security.AuthMode, jwtManager)

	// HTTP surface.
	handler := api.NewHandler(engine, db, publisher, importerOrNil(catalogImporter),
		creds, jwtManager, cfg, logging.Logger())
	router := api.NewRouter(handler, authenticator, &cfg.Server)

	server := &http.Server{
		Addr:              cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	// Supervision tree.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewConsumerService(consumer))
	tree.AddEngineService(services.NewRebuildService(engine, cfg.Rebuild.Interval, cfg.Rebuild.Timeout, logging.Logger()))
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logging.Info().Str("addr", server.Addr).Msg("Commendo listening")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor tree terminated")
		os.Exit(1)
	}

	logging.Info().Msg("Shutdown complete")
}

// importerOrNil keeps the typed-nil pointer out of the handler's interface
// field so its nil check works.
func importerOrNil(imp *importer.Importer) api.CatalogImporter {
	if imp == nil {
		return nil
	}
	return imp
}
