// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

/*
schema.go - Database Schema Management

Tables:
  - products: the catalog (text fields feed the vectorizer; rating is the
    ranking tie-break)
  - users: known users; existence gates personalized recommendations
  - interactions: append-only user-product events (views, likes, purchases)
  - product_similarities: persisted edges of the last committed model,
    one row per unordered pair with product_a < product_b

Schema Strategy:
All columns are defined in the initial CREATE TABLE statements. There are no
versioned migrations yet; the schema is a single source of truth and startup
stays cheap.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema creates the tables and indexes.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			category TEXT,
			brand TEXT,
			price DOUBLE NOT NULL DEFAULT 0,
			rating DOUBLE NOT NULL DEFAULT 0,
			review_count INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS interactions (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL DEFAULT 0,
			unit_price DOUBLE NOT NULL DEFAULT 0,
			occurred_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS product_similarities (
			product_a TEXT NOT NULL,
			product_b TEXT NOT NULL,
			score DOUBLE NOT NULL,
			algorithm TEXT NOT NULL,
			computed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (product_a, product_b)
		)`,

		// Profile building reads one user's history; trending reads a
		// time window across all users.
		`CREATE INDEX IF NOT EXISTS idx_interactions_user
			ON interactions(user_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_occurred
			ON interactions(occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_products_category
			ON products(category)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
