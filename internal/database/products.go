// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dvenn/commendo/internal/metrics"
	"github.com/dvenn/commendo/internal/recommend"
)

var _ recommend.CatalogProvider = (*DB)(nil)

const productColumns = `id, name, COALESCE(description, ''), COALESCE(category, ''),
	COALESCE(brand, ''), price, rating, review_count, active`

func scanProduct(scanner interface{ Scan(...any) error }) (recommend.Product, error) {
	var p recommend.Product
	err := scanner.Scan(&p.ID, &p.Name, &p.Description, &p.Category,
		&p.Brand, &p.Price, &p.Rating, &p.ReviewCount, &p.Active)
	return p, err
}

// ListActiveProducts returns the full active catalog snapshot, ordered by ID
// so rebuilds see a deterministic corpus.
func (db *DB) ListActiveProducts(ctx context.Context) ([]recommend.Product, error) {
	start := time.Now()

	query := `SELECT ` + productColumns + ` FROM products WHERE active ORDER BY id`
	rows, err := db.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("select", "products", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer closeQuietly(rows)

	var products []recommend.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// GetProduct returns a product by ID, or (nil, nil) when unknown.
func (db *DB) GetProduct(ctx context.Context, id string) (*recommend.Product, error) {
	start := time.Now()

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	row := db.conn.QueryRowContext(ctx, query, id)

	p, err := scanProduct(row)
	metrics.RecordDBQuery("select", "products", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}

	return &p, nil
}

// CategoryExists reports whether any active product carries the category.
func (db *DB) CategoryExists(ctx context.Context, category string) (bool, error) {
	start := time.Now()

	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE active AND category = ?)`,
		category).Scan(&exists)
	metrics.RecordDBQuery("select", "products", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("check category %s: %w", category, err)
	}

	return exists, nil
}

// ListProducts returns a page of active products, optionally filtered by
// category, plus the total count for the filter.
func (db *DB) ListProducts(ctx context.Context, category string, limit, offset int) ([]recommend.Product, int, error) {
	start := time.Now()

	where := `WHERE active`
	args := []any{}
	if category != "" {
		where += ` AND category = ?`
		args = append(args, category)
	}

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products `+where, args...).Scan(&total)
	if err != nil {
		metrics.RecordDBQuery("select", "products", time.Since(start), err)
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products ` + where +
		` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "products", time.Since(start), err)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer closeQuietly(rows)

	var products []recommend.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	return products, total, nil
}

// ListCategories returns the distinct categories of active products with
// their product counts, ordered by count descending.
func (db *DB) ListCategories(ctx context.Context) ([]CategoryCount, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT category, COUNT(*) AS n FROM products
		 WHERE active AND category IS NOT NULL AND category != ''
		 GROUP BY category ORDER BY n DESC, category`)
	metrics.RecordDBQuery("select", "products", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer closeQuietly(rows)

	var categories []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.ProductCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

// CategoryCount is one category with its active product count.
type CategoryCount struct {
	Category     string `json:"category"`
	ProductCount int    `json:"product_count"`
}

// UpsertProducts inserts or updates catalog rows. Used by the importer.
// Returns the number of rows written.
func (db *DB) UpsertProducts(ctx context.Context, products []recommend.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO products (id, name, description, category, brand, price, rating, review_count, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			brand = excluded.brand,
			price = excluded.price,
			rating = excluded.rating,
			review_count = excluded.review_count,
			active = excluded.active,
			updated_at = now()`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer closeQuietly(stmt)

	written := 0
	for i := range products {
		p := &products[i]
		if p.ID == "" || p.Name == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Description, p.Category,
			p.Brand, p.Price, p.Rating, p.ReviewCount, p.Active); err != nil {
			metrics.RecordDBQuery("upsert", "products", time.Since(start), err)
			return 0, fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordDBQuery("upsert", "products", time.Since(start), err)
		return 0, fmt.Errorf("commit upsert: %w", err)
	}

	metrics.RecordDBQuery("upsert", "products", time.Since(start), nil)
	return written, nil
}
