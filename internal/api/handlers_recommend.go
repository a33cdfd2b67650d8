// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dvenn/commendo/internal/auth"
	"github.com/dvenn/commendo/internal/metrics"
	"github.com/dvenn/commendo/internal/models"
	"github.com/dvenn/commendo/internal/recommend"
)

// Similar returns the neighbors of one product.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := handlerContext(r)
	defer cancel()

	productID := chi.URLParam(r, "productID")
	limit := h.limitParam(r)

	items, err := h.engine.Similar(ctx, productID, limit)
	if err != nil {
		respondEngineError(w, "similar", err)
		return
	}

	metrics.RecordRecommendation("similar", recommend.AlgorithmContentTFIDF, time.Since(started))
	respondSuccess(w, http.StatusOK, models.RecommendationsResponse{
		Items:     items,
		Count:     len(items),
		Algorithm: recommend.AlgorithmContentTFIDF,
		Subject:   productID,
	}, started)
}

// Me returns personalized recommendations for the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"authentication required", nil)
		return
	}
	h.personalized(w, r, identity.Username)
}

// ForUser returns personalized recommendations for an arbitrary user.
// Restricted to the user themselves or an admin.
func (h *Handler) ForUser(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())
	userID := chi.URLParam(r, "userID")

	if identity == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"authentication required", nil)
		return
	}
	if identity.Username != userID && !identity.IsAdmin() {
		respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR",
			"cannot read another user's recommendations", nil)
		return
	}

	h.personalized(w, r, userID)
}

func (h *Handler) personalized(w http.ResponseWriter, r *http.Request, userID string) {
	started := time.Now()
	ctx, cancel := handlerContext(r)
	defer cancel()

	limit := h.limitParam(r)

	items, err := h.engine.Personalized(ctx, userID, limit)
	if err != nil {
		respondEngineError(w, "personalized", err)
		return
	}

	metrics.RecordRecommendation("personalized", "hybrid", time.Since(started))
	respondSuccess(w, http.StatusOK, models.RecommendationsResponse{
		Items:   items,
		Count:   len(items),
		Subject: userID,
	}, started)
}

// Trending returns the windowed popularity ranking.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := handlerContext(r)
	defer cancel()

	limit := h.limitParam(r)
	windowDays := queryInt(r, "window_days", 0)

	items, err := h.engine.Trending(ctx, limit, windowDays)
	if err != nil {
		respondEngineError(w, "trending", err)
		return
	}

	metrics.RecordRecommendation("trending", recommend.AlgorithmTrending, time.Since(started))
	respondSuccess(w, http.StatusOK, models.RecommendationsResponse{
		Items:     items,
		Count:     len(items),
		Algorithm: recommend.AlgorithmTrending,
	}, started)
}

// ByCategory returns recommendations scoped to one category, personalized
// when the caller is a known user.
func (h *Handler) ByCategory(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := handlerContext(r)
	defer cancel()

	category := chi.URLParam(r, "categoryID")
	limit := h.limitParam(r)

	userID := ""
	if identity := auth.IdentityFrom(r.Context()); identity != nil {
		userID = identity.Username
	}

	items, err := h.engine.Category(ctx, category, userID, limit)
	if err != nil {
		respondEngineError(w, "category", err)
		return
	}

	metrics.RecordRecommendation("category", "hybrid", time.Since(started))
	respondSuccess(w, http.StatusOK, models.RecommendationsResponse{
		Items:   items,
		Count:   len(items),
		Subject: category,
	}, started)
}

// TriggerRebuild starts a model rebuild in the background. Answers 202 when
// the rebuild was started and 409 when one is already running.
func (h *Handler) TriggerRebuild(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if h.engine.Status().State == recommend.RebuildRunning.String() {
		respondError(w, http.StatusConflict, "REBUILD_IN_PROGRESS",
			"a rebuild is already running", nil)
		return
	}

	timeout := h.cfg.Rebuild.Timeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := h.engine.Rebuild(ctx); err != nil {
			h.logger.Error().Err(err).Msg("Requested rebuild failed")
		}
	}()

	respondSuccess(w, http.StatusAccepted, map[string]interface{}{
		"started": true,
	}, started)
}

// RebuildStatus reports the rebuild state machine and last outcome.
func (h *Handler) RebuildStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.engine.Status(), time.Now())
}

// EngineConfig returns the current engine tunables.
func (h *Handler) EngineConfig(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.engine.Config(), time.Now())
}

// UpdateEngineConfig replaces the engine tunables at runtime. The new
// configuration applies to subsequent requests; the committed model is
// untouched until the next rebuild.
func (h *Handler) UpdateEngineConfig(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var cfg recommend.Config
	if !decodeAndValidate(w, r, &cfg) {
		return
	}

	if err := h.engine.UpdateConfig(&cfg); err != nil {
		respondEngineError(w, "", err)
		return
	}

	h.logger.Info().Msg("Engine configuration updated")
	respondSuccess(w, http.StatusOK, h.engine.Config(), started)
}

// Feedback marks a cached recommendation as clicked.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	identity := auth.IdentityFrom(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"authentication required", nil)
		return
	}

	var req models.FeedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	marked := h.engine.RecordFeedback(identity.Username, req.ProductID)
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"marked": marked,
	}, started)
}
