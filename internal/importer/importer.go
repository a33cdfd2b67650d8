// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

// Package importer seeds the product catalog. It fetches a product dataset
// JSON from a configured URL behind a circuit breaker, falling back to a
// local seed file when the remote source is unavailable or unconfigured.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/dvenn/commendo/internal/metrics"
	"github.com/dvenn/commendo/internal/recommend"
)

// ErrNoSource is returned when neither a remote URL nor a seed file is
// configured.
var ErrNoSource = errors.New("no import source configured")

// CatalogWriter persists imported products. Implemented by the database
// layer.
type CatalogWriter interface {
	UpsertProducts(ctx context.Context, products []recommend.Product) (int, error)
}

// Result describes one completed import run.
type Result struct {
	Source     string    `json:"source"` // "remote" or "seed"
	Fetched    int       `json:"fetched"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	FinishedAt time.Time `json:"finished_at"`
}

// Importer fetches and upserts catalog data.
type Importer struct {
	url      string
	seedFile string
	writer   CatalogWriter
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[[]recommend.Product]
	logger   zerolog.Logger
}

// New creates an importer. url and seedFile may each be empty; Run fails
// with ErrNoSource when both are.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(url, seedFile string, timeout time.Duration, writer CatalogWriter, logger zerolog.Logger) *Importer {
	componentLogger := logger.With().Str("component", "importer").Logger()

	settings := gobreaker.Settings{
		Name:        "catalog-import",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.ImporterBreakerState.Set(float64(to))
			componentLogger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Import breaker state changed")
		},
	}

	return &Importer{
		url:      url,
		seedFile: seedFile,
		writer:   writer,
		client:   &http.Client{Timeout: timeout},
		breaker:  gobreaker.NewCircuitBreaker[[]recommend.Product](settings),
		logger:   componentLogger,
	}
}

// Run performs one import: remote first (when configured), seed file as
// fallback. The upsert is idempotent, so repeated runs converge.
func (i *Importer) Run(ctx context.Context) (*Result, error) {
	if i.url == "" && i.seedFile == "" {
		return nil, ErrNoSource
	}

	var (
		products []recommend.Product
		source   string
		err      error
	)

	if i.url != "" {
		source = "remote"
		products, err = i.breaker.Execute(func() ([]recommend.Product, error) {
			return i.fetchRemote(ctx)
		})
		if err != nil {
			metrics.ImportRuns.WithLabelValues("remote", "failure").Inc()
			i.logger.Warn().Err(err).Str("url", i.url).Msg("Remote import failed")
			products = nil
		}
	}

	if products == nil && i.seedFile != "" {
		source = "seed"
		products, err = i.loadSeedFile()
		if err != nil {
			metrics.ImportRuns.WithLabelValues("seed", "failure").Inc()
			return nil, fmt.Errorf("load seed file: %w", err)
		}
	}
	if products == nil {
		return nil, fmt.Errorf("import from %s: %w", i.url, err)
	}

	imported, err := i.writer.UpsertProducts(ctx, products)
	if err != nil {
		metrics.ImportRuns.WithLabelValues(source, "failure").Inc()
		return nil, fmt.Errorf("upsert imported products: %w", err)
	}

	metrics.ImportRuns.WithLabelValues(source, "success").Inc()
	metrics.ImportedProducts.Add(float64(imported))

	result := &Result{
		Source:     source,
		Fetched:    len(products),
		Imported:   imported,
		Skipped:    len(products) - imported,
		FinishedAt: time.Now(),
	}

	i.logger.Info().
		Str("source", result.Source).
		Int("fetched", result.Fetched).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Msg("Catalog import finished")

	return result, nil
}

// BreakerState returns the current circuit breaker state name.
func (i *Importer) BreakerState() string {
	return i.breaker.State().String()
}

func (i *Importer) fetchRemote(ctx context.Context) ([]recommend.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", i.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", i.url, resp.StatusCode)
	}

	// 32 MiB cap; the dataset is a few thousand products at most.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseDataset(body)
}

func (i *Importer) loadSeedFile() ([]recommend.Product, error) {
	data, err := os.ReadFile(i.seedFile)
	if err != nil {
		return nil, err
	}
	return parseDataset(data)
}

// parseDataset accepts either a bare JSON array of products or an object
// with a "products" array, the two shapes the upstream dataset has used.
func parseDataset(data []byte) ([]recommend.Product, error) {
	var products []recommend.Product
	if err := json.Unmarshal(data, &products); err == nil {
		return normalizeProducts(products), nil
	}

	var wrapper struct {
		Products []recommend.Product `json:"products"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse product dataset: %w", err)
	}

	return normalizeProducts(wrapper.Products), nil
}

func normalizeProducts(products []recommend.Product) []recommend.Product {
	out := products[:0]
	for _, p := range products {
		if p.ID == "" || p.Name == "" {
			continue
		}
		// The upstream dataset has no visibility flag; imports are live.
		p.Active = true
		out = append(out, p)
	}
	return out
}
