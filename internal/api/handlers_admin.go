// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package api

import (
	"net/http"
	"time"
)

// Stats returns the engine introspection snapshot.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := handlerContext(r)
	defer cancel()

	stats, err := h.engine.Stats(ctx)
	if err != nil {
		respondEngineError(w, "", err)
		return
	}

	respondSuccess(w, http.StatusOK, stats, started)
}

// TriggerImport runs a catalog import synchronously and reports the result.
// Admin-only; a rebuild is normally triggered afterwards to pick up the new
// catalog.
func (h *Handler) TriggerImport(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if h.importer == nil {
		respondError(w, http.StatusServiceUnavailable, "IMPORT_UNAVAILABLE",
			"no import source configured", nil)
		return
	}

	ctx, cancel := handlerContext(r)
	defer cancel()

	result, err := h.importer.Run(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Requested import failed")
		respondError(w, http.StatusBadGateway, "IMPORT_FAILED",
			err.Error(), map[string]interface{}{
				"breaker_state": h.importer.BreakerState(),
			})
		return
	}

	respondSuccess(w, http.StatusOK, result, started)
}
