// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import (
	"testing"
	"time"
)

func TestBuildProfileWeightsOrdering(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	now := time.Now()

	events := []InteractionEvent{
		{UserID: "u1", ProductID: "viewed", Kind: KindView, OccurredAt: now},
		{UserID: "u1", ProductID: "liked", Kind: KindLike, OccurredAt: now},
		{UserID: "u1", ProductID: "bought", Kind: KindPurchase, OccurredAt: now},
	}

	p := buildProfile("u1", events, now, cfg)

	if !(p.Weights["bought"] > p.Weights["liked"] && p.Weights["liked"] > p.Weights["viewed"]) {
		t.Errorf("expected purchase > like > view, got %f / %f / %f",
			p.Weights["bought"], p.Weights["liked"], p.Weights["viewed"])
	}
	if _, ok := p.Liked["liked"]; !ok {
		t.Error("liked set missing the liked product")
	}
	if _, ok := p.Purchased["bought"]; !ok {
		t.Error("purchased set missing the bought product")
	}
}

func TestBuildProfileEmpty(t *testing.T) {
	t.Parallel()

	p := buildProfile("u1", nil, time.Now(), DefaultConfig())
	if !p.Empty() {
		t.Error("profile without events should be empty")
	}
}

func TestBuildProfileLikeDeduplication(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	now := time.Now()

	events := []InteractionEvent{
		{UserID: "u1", ProductID: "p1", Kind: KindLike, OccurredAt: now},
		{UserID: "u1", ProductID: "p1", Kind: KindLike, OccurredAt: now},
		{UserID: "u1", ProductID: "p1", Kind: KindLike, OccurredAt: now},
		{UserID: "u1", ProductID: "p2", Kind: KindLike, OccurredAt: now},
	}

	p := buildProfile("u1", events, now, cfg)

	if p.Weights["p1"] != p.Weights["p2"] {
		t.Errorf("duplicate likes should count once: p1=%f p2=%f", p.Weights["p1"], p.Weights["p2"])
	}
}

func TestDurationMultiplier(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	tests := []struct {
		name            string
		durationSeconds int
		want            float64
	}{
		{"zero duration keeps base weight", 0, 1.0},
		{"reference duration doubles", 300, 2.0},
		{"cap bounds long sessions", 3600, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := durationMultiplier(tt.durationSeconds, cfg); got != tt.want {
				t.Errorf("durationMultiplier(%d) = %f, want %f", tt.durationSeconds, got, tt.want)
			}
		})
	}
}

func TestDecayFactorMonotonic(t *testing.T) {
	t.Parallel()

	halfLife := 720 * time.Hour

	prev := decayFactor(0, halfLife)
	if prev != 1 {
		t.Errorf("decay at age 0 = %f, want 1", prev)
	}

	for _, age := range []time.Duration{time.Hour, 24 * time.Hour, 720 * time.Hour, 3000 * time.Hour} {
		got := decayFactor(age, halfLife)
		if got >= prev {
			t.Errorf("decay not monotonically decreasing at age %v: %f >= %f", age, got, prev)
		}
		prev = got
	}

	half := decayFactor(halfLife, halfLife)
	if diff := half - 0.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("decay at one half-life = %f, want 0.5", half)
	}
}

func TestDecayFactorFutureEvent(t *testing.T) {
	t.Parallel()

	if got := decayFactor(-time.Hour, 720*time.Hour); got != 1 {
		t.Errorf("future-dated event should get no boost, got %f", got)
	}
}

func TestBuildProfileIdempotent(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	now := time.Now()

	events := []InteractionEvent{
		{UserID: "u1", ProductID: "p1", Kind: KindView, DurationSeconds: 120, OccurredAt: now.Add(-48 * time.Hour)},
		{UserID: "u1", ProductID: "p2", Kind: KindPurchase, OccurredAt: now.Add(-24 * time.Hour)},
	}

	a := buildProfile("u1", events, now, cfg)
	b := buildProfile("u1", events, now, cfg)

	for id, w := range a.Weights {
		if b.Weights[id] != w {
			t.Errorf("profile not idempotent for %s: %f vs %f", id, w, b.Weights[id])
		}
	}
}

func TestAttachCategories(t *testing.T) {
	t.Parallel()

	p := &UserProfile{
		UserID: "u1",
		Weights: map[string]float64{
			"p1": 2.0,
			"p2": 1.0,
			"p3": 4.0,
		},
	}

	p.attachCategories(map[string]Product{
		"p1": {ID: "p1", Category: "shoes"},
		"p2": {ID: "p2", Category: "shoes"},
		"p3": {ID: "p3", Category: "kitchen"},
	})

	if p.Categories["shoes"] != 3.0 {
		t.Errorf("shoes aggregate = %f, want 3.0", p.Categories["shoes"])
	}
	if p.Categories["kitchen"] != 4.0 {
		t.Errorf("kitchen aggregate = %f, want 4.0", p.Categories["kitchen"])
	}

	if top := p.topCategory(); top != "kitchen" {
		t.Errorf("topCategory = %q, want kitchen", top)
	}
}

func TestTopCategoryTieBreak(t *testing.T) {
	t.Parallel()

	p := &UserProfile{Categories: map[string]float64{
		"kitchen":  2.0,
		"footwear": 2.0,
	}}

	// Equal aggregates resolve by name so the choice is stable.
	if top := p.topCategory(); top != "footwear" {
		t.Errorf("topCategory = %q, want footwear", top)
	}

	empty := &UserProfile{}
	if top := empty.topCategory(); top != "" {
		t.Errorf("topCategory on empty profile = %q, want empty", top)
	}
}
