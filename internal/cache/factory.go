// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package cache

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvenn/commendo/internal/recommend"
)

// Supported cache backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// New creates a cache store for the configured backend. The path is only
// used by the badger backend; maxEntries only by the memory backend.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(backend, path string, maxEntries int, logger zerolog.Logger) (recommend.CacheStore, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(maxEntries), nil
	case BackendBadger:
		return NewBadgerStore(path, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
