// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dvenn/commendo/internal/models"
)

// Identity is the resolved caller attached to the request context.
type Identity struct {
	Username string
	Role     string
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type contextKey struct{}

// identityKey keys the Identity in the request context.
var identityKey contextKey

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the identity from the context, or nil when the
// request was not authenticated.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// Authenticator resolves request identities according to the configured
// mode.
type Authenticator struct {
	mode string
	jwt  *JWTManager
}

// NewAuthenticator creates an authenticator. Mode "none" resolves every
// request to a development admin identity; mode "jwt" requires a valid
// bearer token.
func NewAuthenticator(mode string, jwtManager *JWTManager) *Authenticator {
	return &Authenticator{mode: mode, jwt: jwtManager}
}

// Middleware authenticates the request and attaches the Identity. Requests
// without a valid identity get 401 with the standard error envelope.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.mode == "none" {
			id := &Identity{Username: "dev", Role: RoleAdmin}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "missing bearer token")
			return
		}

		claims, err := a.jwt.ValidateToken(token)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid or expired token")
			return
		}

		id := &Identity{Username: claims.Username, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin rejects non-admin identities with 403. Must run after
// Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFrom(r.Context())
		if id == nil {
			writeAuthError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "authentication required")
			return
		}
		if !id.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// writeAuthError writes the standard error envelope without importing the
// api package (which imports this one).
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    &models.APIError{Code: code, Message: message},
	}
	_ = json.NewEncoder(w).Encode(resp) //nolint:errcheck // response already committed
}
