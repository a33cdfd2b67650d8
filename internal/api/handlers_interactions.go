// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dvenn/commendo/internal/auth"
	"github.com/dvenn/commendo/internal/models"
	"github.com/dvenn/commendo/internal/recommend"
)

// CreateInteraction records one interaction for the authenticated user. The
// event is published to the bus and persisted asynchronously; the handler
// answers 202 as soon as the publish succeeds.
func (h *Handler) CreateInteraction(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	identity := auth.IdentityFrom(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"authentication required", nil)
		return
	}

	var req models.InteractionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	kind, ok := recommend.ParseInteractionKind(req.Kind)
	if !ok {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"unknown interaction kind "+req.Kind, nil)
		return
	}

	ev := &recommend.InteractionEvent{
		ID:              uuid.NewString(),
		UserID:          identity.Username,
		ProductID:       req.ProductID,
		Kind:            kind,
		DurationSeconds: req.DurationSeconds,
		Quantity:        req.Quantity,
		OccurredAt:      time.Now().UTC(),
	}

	if err := h.publisher.PublishInteraction(ev); err != nil {
		h.logger.Error().Err(err).Str("product_id", req.ProductID).
			Msg("Interaction publish failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"interaction could not be recorded", nil)
		return
	}

	respondSuccess(w, http.StatusAccepted, map[string]interface{}{
		"event_id": ev.ID,
		"accepted": true,
	}, started)
}
