// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dvenn/commendo/internal/auth"
	"github.com/dvenn/commendo/internal/config"
)

// NewRouter assembles the chi router: global middleware, public health and
// token endpoints, the authenticated API, and the Prometheus scrape
// endpoint.
func NewRouter(handler *Handler, authenticator *auth.Authenticator, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints stay unauthenticated and generously rate limited so
	// orchestrators can poll them.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, cfg.RateLimitWindow))
		r.Get("/", handler.Health)
		r.Get("/live", handler.HealthLive)
		r.Get("/ready", handler.HealthReady)
	})

	// The token endpoint carries its own per-IP limiter inside the handler.
	r.Post("/api/v1/auth/token", handler.Token)

	r.Route("/api/v1", func(r chi.Router) {
		if !cfg.RateLimitDisabled {
			r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		}
		r.Use(PrometheusMetrics)
		r.Use(authenticator.Middleware)

		r.Get("/products", handler.Products)
		r.Get("/products/{productID}", handler.ProductByID)
		r.Get("/categories", handler.Categories)
		r.Post("/interactions", handler.CreateInteraction)
		r.Get("/stats", handler.Stats)

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/similar/{productID}", handler.Similar)
			r.Get("/me", handler.Me)
			r.Get("/user/{userID}", handler.ForUser)
			r.Get("/trending", handler.Trending)
			r.Get("/category/{categoryID}", handler.ByCategory)
			r.Get("/status", handler.RebuildStatus)
			r.Post("/feedback", handler.Feedback)

			r.With(auth.RequireAdmin).Post("/rebuild", handler.TriggerRebuild)
			r.With(auth.RequireAdmin).Get("/config", handler.EngineConfig)
			r.With(auth.RequireAdmin).Put("/config", handler.UpdateEngineConfig)
		})

		r.With(auth.RequireAdmin).Post("/admin/import", handler.TriggerImport)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
