// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// buildNeighbors computes, for every product, its top-K most similar
// neighbors by cosine similarity, discarding scores below the floor. The
// per-product rows are computed in parallel over the immutable vector set;
// no locking is needed because each goroutine writes a distinct row.
//
// Invariants: no self-pairs, scores clamped to [0,1], neighbor lists ordered
// by score descending then product ID ascending, list length <= topK. A
// product with a zero vector simply gets an empty neighbor list.
func buildNeighbors(ctx context.Context, vectors map[string]FeatureVector, topK int, floor float64) (map[string][]Neighbor, int, error) {
	ids := make([]string, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]Neighbor, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows[i] = neighborRow(id, vectors[id], ids, vectors, topK, floor)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	neighbors := make(map[string][]Neighbor, len(ids))
	pairs := make(map[[2]string]struct{})
	for i, id := range ids {
		neighbors[id] = rows[i]
		for _, n := range rows[i] {
			a, b := id, n.ProductID
			if a > b {
				a, b = b, a
			}
			pairs[[2]string{a, b}] = struct{}{}
		}
	}

	return neighbors, len(pairs), nil
}

// neighborRow computes one product's ordered neighbor list.
func neighborRow(id string, vec FeatureVector, ids []string, vectors map[string]FeatureVector, topK int, floor float64) []Neighbor {
	if len(vec) == 0 {
		return []Neighbor{}
	}

	row := make([]Neighbor, 0, topK)
	for _, other := range ids {
		if other == id {
			continue
		}

		score := clampScore(dotProduct(vec, vectors[other]))
		if score < floor {
			continue
		}
		row = append(row, Neighbor{ProductID: other, Score: score})
	}

	sort.Slice(row, func(i, j int) bool {
		if row[i].Score != row[j].Score {
			return row[i].Score > row[j].Score
		}
		return row[i].ProductID < row[j].ProductID
	})

	if len(row) > topK {
		row = row[:topK]
	}
	return row
}

// clampScore bounds a cosine score to [0,1]. Term weights are non-negative
// so scores already lie there in practice; the clamp guards floating-point
// drift.
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
