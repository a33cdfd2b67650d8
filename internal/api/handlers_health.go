// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package api

import (
	"net/http"
	"time"
)

// healthStatus is the payload of GET /api/v1/health.
type healthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	ModelAvailable    bool    `json:"model_available"`
	ModelVersion      int     `json:"model_version"`
	RebuildState      string  `json:"rebuild_state"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// Version is the server version reported by the health endpoint.
const Version = "1.0.0"

// Health reports overall health: degraded when the database is unreachable
// or no model has been committed yet.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := handlerContext(r)
	defer cancel()

	dbConnected := h.catalog.Ping(ctx) == nil
	rebuildStatus := h.engine.Status()
	modelAvailable := rebuildStatus.ModelVersion > 0

	status := "healthy"
	if !dbConnected || !modelAvailable {
		status = "degraded"
	}

	respondSuccess(w, http.StatusOK, healthStatus{
		Status:            status,
		Version:           Version,
		DatabaseConnected: dbConnected,
		ModelAvailable:    modelAvailable,
		ModelVersion:      rebuildStatus.ModelVersion,
		RebuildState:      rebuildStatus.State,
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
	}, started)
}

// HealthLive is the liveness probe: 200 whenever the process can answer.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady is the readiness probe: 503 until the database answers.
// Model availability is intentionally not gating; the API degrades to 503
// per-endpoint while the first rebuild runs.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := handlerContext(r)
	defer cancel()

	if err := h.catalog.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY",
			"database not reachable", nil)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{"ready": true}, started)
}
