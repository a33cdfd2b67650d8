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

var _ recommend.EdgeSink = (*DB)(nil)

// ReplaceSimilarityEdges replaces the persisted edge set with the edges of a
// newly committed model. Runs in one transaction so readers never observe a
// half-replaced table.
func (db *DB) ReplaceSimilarityEdges(ctx context.Context, edges []recommend.SimilarityEdge) error {
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin edge replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_similarities`); err != nil {
		metrics.RecordDBQuery("delete", "product_similarities", time.Since(start), err)
		return fmt.Errorf("clear similarity edges: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO product_similarities (product_a, product_b, score, algorithm)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range edges {
		e := &edges[i]
		if _, err := stmt.ExecContext(ctx, e.ProductA, e.ProductB, e.Score, e.Algorithm); err != nil {
			metrics.RecordDBQuery("insert", "product_similarities", time.Since(start), err)
			return fmt.Errorf("insert edge %s/%s: %w", e.ProductA, e.ProductB, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordDBQuery("insert", "product_similarities", time.Since(start), err)
		return fmt.Errorf("commit edge replace: %w", err)
	}

	metrics.RecordDBQuery("insert", "product_similarities", time.Since(start), nil)
	return nil
}

// CountSimilarityEdges returns the number of persisted edges.
func (db *DB) CountSimilarityEdges(ctx context.Context) (int, error) {
	start := time.Now()

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM product_similarities`).Scan(&n)
	metrics.RecordDBQuery("select", "product_similarities", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count similarity edges: %w", err)
	}

	return n, nil
}
