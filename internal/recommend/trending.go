// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

// rankTrending turns a window of all-users interaction events into a
// popularity ranking. Each event contributes its kind weight (view 1,
// like 2, purchase 3 by default) without decay or duration scaling; raw
// volumes are min-max normalized to [0,1]. Products absent from the given
// index (inactive or unknown) are skipped; category, when non-empty,
// restricts the candidates.
func rankTrending(events []InteractionEvent, products map[string]Product, category string, limit int, cfg *Config) []ScoredProduct {
	volumes := make(map[string]float64, len(products))

	for i := range events {
		ev := &events[i]
		prod, ok := products[ev.ProductID]
		if !ok {
			continue
		}
		if category != "" && prod.Category != category {
			continue
		}
		volumes[ev.ProductID] += cfg.Weights.ForKind(ev.Kind)
	}

	if len(volumes) == 0 {
		return []ScoredProduct{}
	}

	minV, maxV := minMax(volumes)
	ranked := make([]ScoredProduct, 0, len(volumes))
	for id, v := range volumes {
		score := 1.0
		if maxV > minV {
			score = (v - minV) / (maxV - minV)
		}
		prod := products[id]
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

func minMax(m map[string]float64) (minV, maxV float64) {
	first := true
	for _, v := range m {
		if first {
			minV, maxV = v, v
			first = false
			continue
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV
}
