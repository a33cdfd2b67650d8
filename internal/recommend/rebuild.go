// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import (
	"context"
	"fmt"
	"time"
)

// Rebuild regenerates the similarity model from the current catalog and
// swaps it in atomically. At most one rebuild runs at a time; a concurrent
// caller gets RebuildInProgress immediately rather than queueing. The build
// is fully out-of-place: readers keep serving the previous model until the
// single pointer swap, and a failed rebuild leaves it untouched.
func (e *Engine) Rebuild(ctx context.Context) (*RebuildResult, error) {
	if !e.rebuildMu.TryLock() {
		return nil, fmt.Errorf("model rebuild already running: %w", ErrRebuildInProgress)
	}
	defer e.rebuildMu.Unlock()

	e.rebuildState.Store(int32(RebuildRunning))
	start := e.now()

	model, err := e.buildModel(ctx)
	if err != nil {
		e.rebuildState.Store(int32(RebuildFailed))
		e.recordRebuild(start, 0, 0, err)
		e.logger.Error().Err(err).Msg("model rebuild failed")
		return nil, fmt.Errorf("%v: %w", err, ErrRebuildFailed)
	}

	// The swap is the only reader-visible mutation of the whole rebuild.
	e.model.Store(model)
	e.rebuildState.Store(int32(RebuildCommitted))
	e.recordRebuild(start, model.PairCount, len(model.Products), nil)

	e.persistModel(ctx, model)

	cfg := e.Config()
	if cfg.InvalidateOnRebuild {
		e.invalidateCache()
	}

	result := RebuildResult{
		Success:        true,
		PairsGenerated: model.PairCount,
		RebuiltAt:      model.BuiltAt,
		ModelVersion:   model.Version,
	}

	if e.commitHook != nil {
		e.commitHook(model, result)
	}

	e.logger.Info().
		Int("model_version", model.Version).
		Int("products", len(model.Products)).
		Int("pairs", model.PairCount).
		Dur("duration", e.now().Sub(start)).
		Msg("model rebuild committed")

	return &result, nil
}

// buildModel assembles a candidate model without touching the current one.
func (e *Engine) buildModel(ctx context.Context) (*SimilarityModel, error) {
	cfg := e.Config()

	products, err := e.catalog.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("catalog has no active products")
	}

	vectors := Vectorize(products)

	neighbors, pairCount, err := buildNeighbors(ctx, vectors, cfg.TopK, cfg.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("compute similarities: %w", err)
	}

	index := make(map[string]Product, len(products))
	for i := range products {
		index[products[i].ID] = products[i]
	}

	return &SimilarityModel{
		Version:   e.ModelVersion() + 1,
		BuiltAt:   e.now(),
		Vectors:   vectors,
		Neighbors: neighbors,
		Products:  index,
		PairCount: pairCount,
	}, nil
}

// persistModel runs the commit's durable side effects. Both are best-effort:
// the in-memory model is already authoritative, so failures downgrade to
// warnings.
func (e *Engine) persistModel(ctx context.Context, model *SimilarityModel) {
	if e.edges != nil {
		if err := e.edges.ReplaceSimilarityEdges(ctx, model.Edges()); err != nil {
			e.logger.Warn().Err(err).
				Int("model_version", model.Version).
				Msg("failed to persist similarity edges")
		}
	}
	if e.snapshots != nil {
		if err := e.snapshots.SaveModel(ctx, model); err != nil {
			e.logger.Warn().Err(err).
				Int("model_version", model.Version).
				Msg("failed to save model snapshot")
		}
	}
}

// recordRebuild updates the status fields behind Status().
func (e *Engine) recordRebuild(start time.Time, pairs, products int, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	e.lastDuration = e.now().Sub(start)
	if err != nil {
		e.lastError = err.Error()
		return
	}
	e.lastError = ""
	e.lastRebuiltAt = e.now()
	e.lastPairs = pairs
	e.productsIndexed = products
}

// RestoreFromSnapshot loads the newest persisted model, if any, and installs
// it so a restart can serve recommendations before the first rebuild.
// Returns true when a model was restored.
func (e *Engine) RestoreFromSnapshot(ctx context.Context) (bool, error) {
	if e.snapshots == nil {
		return false, nil
	}

	model, err := e.snapshots.LoadLatestModel(ctx)
	if err != nil {
		return false, fmt.Errorf("load model snapshot: %w", err)
	}
	if model == nil {
		return false, nil
	}

	e.model.Store(model)
	e.rebuildState.Store(int32(RebuildCommitted))

	e.statusMu.Lock()
	e.lastRebuiltAt = model.BuiltAt
	e.lastPairs = model.PairCount
	e.productsIndexed = len(model.Products)
	e.statusMu.Unlock()

	e.logger.Info().
		Int("model_version", model.Version).
		Int("products", len(model.Products)).
		Time("built_at", model.BuiltAt).
		Msg("restored similarity model from snapshot")

	return true, nil
}
