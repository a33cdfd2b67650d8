// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import (
	"math"
	"time"
)

// buildProfile aggregates a user's interaction events into a weighted
// interest mapping. Purchase > like > view; view weight scales with view
// duration (capped); every weight decays exponentially with event age.
// A user with zero events yields an empty profile, which is a valid state,
// not an error. Rebuilding from the same event log is idempotent.
func buildProfile(userID string, events []InteractionEvent, now time.Time, cfg *Config) *UserProfile {
	p := &UserProfile{
		UserID:    userID,
		Weights:   make(map[string]float64, len(events)),
		Liked:     make(map[string]struct{}),
		Purchased: make(map[string]struct{}),
	}

	likeSeen := make(map[string]struct{})

	for i := range events {
		ev := &events[i]

		w := cfg.Weights.ForKind(ev.Kind)

		switch ev.Kind {
		case KindView:
			w *= durationMultiplier(ev.DurationSeconds, cfg)
		case KindLike:
			// The store toggles likes rather than appending, but a
			// replayed event log may still carry duplicates; count one
			// like per product.
			if _, ok := likeSeen[ev.ProductID]; ok {
				continue
			}
			likeSeen[ev.ProductID] = struct{}{}
			p.Liked[ev.ProductID] = struct{}{}
		case KindPurchase:
			p.Purchased[ev.ProductID] = struct{}{}
		}

		w *= decayFactor(now.Sub(ev.OccurredAt), cfg.DecayHalfLife)
		p.Weights[ev.ProductID] += w
	}

	return p
}

// attachCategories fills the profile's per-category aggregate from the
// model's product snapshot.
func (p *UserProfile) attachCategories(products map[string]Product) {
	p.Categories = make(map[string]float64)
	for id, w := range p.Weights {
		if prod, ok := products[id]; ok && prod.Category != "" {
			p.Categories[prod.Category] += w
		}
	}
}

// topCategory returns the category with the highest aggregate interest,
// ties broken by name to keep the choice deterministic. Empty when no
// weight maps to a categorized product.
func (p *UserProfile) topCategory() string {
	var (
		best  string
		bestW float64
	)
	for c, w := range p.Categories {
		if best == "" || w > bestW || (w == bestW && c < best) {
			best, bestW = c, w
		}
	}
	return best
}

// durationMultiplier scales a view's weight by its duration:
// 1 + min(duration/ref, cap). A zero duration leaves the base weight.
func durationMultiplier(durationSeconds int, cfg *Config) float64 {
	if durationSeconds <= 0 {
		return 1
	}
	bonus := float64(durationSeconds) / cfg.ViewDurationRef.Seconds()
	if bonus > cfg.ViewDurationCap {
		bonus = cfg.ViewDurationCap
	}
	return 1 + bonus
}

// decayFactor is the exponential half-life decay 0.5^(age/halfLife).
// Monotonic non-increasing with age; future-dated events get no boost.
func decayFactor(age, halfLife time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, age.Hours()/halfLife.Hours())
}
