// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dvenn/commendo/internal/metrics"
	"github.com/dvenn/commendo/internal/recommend"
)

var _ recommend.InteractionProvider = (*DB)(nil)

const interactionColumns = `id, user_id, product_id, kind, duration_seconds,
	quantity, unit_price, occurred_at`

func scanInteraction(scanner interface{ Scan(...any) error }) (recommend.InteractionEvent, error) {
	var (
		ev   recommend.InteractionEvent
		kind string
	)
	err := scanner.Scan(&ev.ID, &ev.UserID, &ev.ProductID, &kind,
		&ev.DurationSeconds, &ev.Quantity, &ev.UnitPrice, &ev.OccurredAt)
	if err != nil {
		return ev, err
	}
	ev.Kind, _ = recommend.ParseInteractionKind(kind)
	return ev, nil
}

// InsertInteraction records one interaction event, creating the user row if
// needed. Like events are deduplicated per (user, product): a second like of
// the same product is a no-op rather than a second row. Returns whether a
// row was written.
func (db *DB) InsertInteraction(ctx context.Context, ev *recommend.InteractionEvent) (bool, error) {
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin interaction insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`,
		ev.UserID); err != nil {
		metrics.RecordDBQuery("insert", "users", time.Since(start), err)
		return false, fmt.Errorf("ensure user %s: %w", ev.UserID, err)
	}

	query := `INSERT INTO interactions
		(id, user_id, product_id, kind, duration_seconds, quantity, unit_price, occurred_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?`
	args := []any{ev.ID, ev.UserID, ev.ProductID, ev.Kind.String(),
		ev.DurationSeconds, ev.Quantity, ev.UnitPrice, ev.OccurredAt}

	// A like either exists or it doesn't; repeats must not inflate the
	// profile weight.
	if ev.Kind == recommend.KindLike {
		query += ` WHERE NOT EXISTS (
			SELECT 1 FROM interactions
			WHERE user_id = ? AND product_id = ? AND kind = 'like')`
		args = append(args, ev.UserID, ev.ProductID)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery("insert", "interactions", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("insert interaction: %w", err)
	}
	affected, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit interaction: %w", err)
	}

	return affected > 0, nil
}

// ListInteractions returns all events for one user, newest first.
func (db *DB) ListInteractions(ctx context.Context, userID string) ([]recommend.InteractionEvent, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+interactionColumns+` FROM interactions
		 WHERE user_id = ? ORDER BY occurred_at DESC`, userID)
	metrics.RecordDBQuery("select", "interactions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list interactions for %s: %w", userID, err)
	}
	defer closeQuietly(rows)

	return collectInteractions(rows)
}

// ListRecentInteractions returns all users' events within the window,
// newest first.
func (db *DB) ListRecentInteractions(ctx context.Context, windowDays int) ([]recommend.InteractionEvent, error) {
	start := time.Now()

	cutoff := time.Now().AddDate(0, 0, -windowDays)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+interactionColumns+` FROM interactions
		 WHERE occurred_at >= ? ORDER BY occurred_at DESC`, cutoff)
	metrics.RecordDBQuery("select", "interactions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list recent interactions: %w", err)
	}
	defer closeQuietly(rows)

	return collectInteractions(rows)
}

type rowIterator interface {
	Next() bool
	Scan(...any) error
	Err() error
}

func collectInteractions(rows rowIterator) ([]recommend.InteractionEvent, error) {
	var events []recommend.InteractionEvent
	for rows.Next() {
		ev, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return events, nil
}

// UserExists reports whether the user is known to the store.
func (db *DB) UserExists(ctx context.Context, userID string) (bool, error) {
	start := time.Now()

	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID).Scan(&exists)
	metrics.RecordDBQuery("select", "users", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", userID, err)
	}

	return exists, nil
}

// CountInteractions returns the total number of recorded events.
func (db *DB) CountInteractions(ctx context.Context) (int, error) {
	start := time.Now()

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interactions`).Scan(&n)
	metrics.RecordDBQuery("select", "interactions", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}

	return n, nil
}
