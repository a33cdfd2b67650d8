// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import "errors"

// Sentinel errors returned by engine operations. Callers are expected to
// classify them with errors.Is; the API layer maps each to a status code.
var (
	// ErrNotFound indicates an unknown product, user, or category identifier.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a non-positive limit or a malformed
	// trending window.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrModelUnavailable indicates no successful rebuild has ever
	// completed. Only possible before the first bootstrap.
	ErrModelUnavailable = errors.New("similarity model unavailable")

	// ErrRebuildInProgress indicates a rebuild was requested while another
	// one is still running. The request is rejected, never queued.
	ErrRebuildInProgress = errors.New("rebuild already in progress")

	// ErrRebuildFailed indicates a rebuild attempt failed. The previously
	// committed model remains authoritative; callers may retry later.
	ErrRebuildFailed = errors.New("rebuild failed")
)
