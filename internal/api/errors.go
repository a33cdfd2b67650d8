// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package api

import (
	"errors"
	"net/http"

	"github.com/dvenn/commendo/internal/metrics"
	"github.com/dvenn/commendo/internal/recommend"
)

// respondEngineError maps engine sentinel errors to HTTP status and error
// code, falling back to 500 INTERNAL_ERROR.
func respondEngineError(w http.ResponseWriter, mode string, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"

	switch {
	case errors.Is(err, recommend.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, recommend.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, recommend.ErrModelUnavailable):
		status, code = http.StatusServiceUnavailable, "MODEL_UNAVAILABLE"
	case errors.Is(err, recommend.ErrRebuildInProgress):
		status, code = http.StatusConflict, "REBUILD_IN_PROGRESS"
	case errors.Is(err, recommend.ErrRebuildFailed):
		status, code = http.StatusBadGateway, "REBUILD_FAILED"
	}

	if mode != "" {
		metrics.RecordRecommendationError(mode, code)
	}
	respondError(w, status, code, err.Error(), nil)
}
