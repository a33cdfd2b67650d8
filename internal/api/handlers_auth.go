// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package api

import (
	"net/http"
	"time"

	"github.com/dvenn/commendo/internal/auth"
	"github.com/dvenn/commendo/internal/models"
)

// Token exchanges admin credentials for a JWT. Per-IP rate limited; failed
// attempts return a uniform 401 so usernames cannot be probed.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if !h.tokenLimiter.Allow(auth.ClientIP(r)) {
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
			"too many token requests", nil)
		return
	}

	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if h.creds == nil || !h.creds.Verify(req.Username, req.Password) {
		h.logger.Warn().Str("username", req.Username).Str("ip", auth.ClientIP(r)).
			Msg("Failed token request")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"invalid credentials", nil)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(req.Username, auth.RoleAdmin)
	if err != nil {
		h.logger.Error().Err(err).Msg("Token generation failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"token generation failed", nil)
		return
	}

	respondSuccess(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  req.Username,
		Role:      auth.RoleAdmin,
	}, started)
}
