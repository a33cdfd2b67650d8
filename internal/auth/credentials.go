// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials verifies the operator account gating the token endpoint.
// The configured password is bcrypt-hashed once at startup so no plaintext
// is kept in memory and per-request hashing cost stays bounded.
type AdminCredentials struct {
	username     string
	passwordHash []byte
}

// NewAdminCredentials hashes the configured password. A password that
// already looks like a bcrypt hash ($2a$/$2b$/$2y$ prefix) is used as-is,
// so operators can configure a pre-hashed secret.
func NewAdminCredentials(username, password string) (*AdminCredentials, error) {
	if username == "" {
		return nil, fmt.Errorf("admin username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("admin password is required")
	}

	if isBcryptHash(password) {
		return &AdminCredentials{username: username, passwordHash: []byte(password)}, nil
	}

	if len(password) < 8 {
		return nil, fmt.Errorf("admin password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	return &AdminCredentials{username: username, passwordHash: hash}, nil
}

// Verify checks a username/password pair. The username comparison is
// constant-time and bcrypt's comparison is timing-safe by design; both run
// unconditionally.
func (c *AdminCredentials) Verify(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// Username returns the configured operator name.
func (c *AdminCredentials) Username() string { return c.username }

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
