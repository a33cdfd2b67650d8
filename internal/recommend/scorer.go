// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import "sort"

// scorePersonalized runs the hybrid accumulation: every product the user has
// interacted with propagates its profile weight across that product's
// similarity neighbors, so score[q] = sum over profile (w_p * sim(p,q)).
//
// Exclusion policy: purchased products are dropped from the candidates and
// that exclusion is never relaxed; liked products are dropped too, but the
// liked exclusion is lifted when it would empty the result (a user who liked
// everything similar to their history still gets recommendations). Viewed
// products remain eligible. When category is non-empty, candidates outside it
// are dropped before exclusion handling.
func scorePersonalized(profile *UserProfile, model *SimilarityModel, category string, limit int, cfg *Config) []ScoredProduct {
	scores := make(map[string]float64)

	for productID, weight := range profile.Weights {
		for _, n := range model.Neighbors[productID] {
			scores[n.ProductID] += weight * n.Score
		}
	}

	if category != "" {
		for id := range scores {
			if prod, ok := model.Products[id]; !ok || prod.Category != category {
				delete(scores, id)
			}
		}
	}

	if cfg.ExcludePurchased {
		for id := range profile.Purchased {
			delete(scores, id)
		}
	}

	if cfg.ExcludeLiked {
		kept := make([]string, 0, len(scores))
		for id := range scores {
			if _, liked := profile.Liked[id]; !liked {
				kept = append(kept, id)
			}
		}
		// Relax the liked exclusion rather than return nothing.
		if len(kept) > 0 {
			filtered := make(map[string]float64, len(kept))
			for _, id := range kept {
				filtered[id] = scores[id]
			}
			scores = filtered
		}
	}

	ranked := make([]ScoredProduct, 0, len(scores))
	for id, score := range scores {
		prod := model.Products[id]
		ranked = append(ranked, ScoredProduct{
			ProductID: id,
			Score:     score,
			Name:      prod.Name,
			Category:  prod.Category,
			Rating:    prod.Rating,
		})
	}

	sortScored(ranked)
	return truncate(ranked, limit)
}

// similarProducts maps a product's neighbor list into scored results using
// the model's product snapshot. A product with no neighbors yields an empty
// list; there is no fallback in this mode.
func similarProducts(productID string, model *SimilarityModel, limit int) []ScoredProduct {
	neighbors := model.Neighbors[productID]
	out := make([]ScoredProduct, 0, len(neighbors))
	for _, n := range neighbors {
		prod := model.Products[n.ProductID]
		out = append(out, ScoredProduct{
			ProductID: n.ProductID,
			Score:     n.Score,
			Name:      prod.Name,
			Category:  prod.Category,
			Rating:    prod.Rating,
		})
	}
	return truncate(out, limit)
}

// sortScored orders recommendations by score descending, then rating
// descending, then product ID ascending. The ID tie-break keeps rankings
// deterministic across runs.
func sortScored(items []ScoredProduct) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].Rating != items[j].Rating {
			return items[i].Rating > items[j].Rating
		}
		return items[i].ProductID < items[j].ProductID
	})
}

func truncate(items []ScoredProduct, limit int) []ScoredProduct {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
