// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import (
	"context"
	"math"
	"testing"
)

func testVectors(t *testing.T) map[string]FeatureVector {
	t.Helper()
	return Vectorize([]Product{
		{ID: "shoes-red", Name: "Red Running Shoes", Description: "comfortable red shoes for daily running"},
		{ID: "sneakers-red", Name: "Red Sneakers", Description: "stylish red sneakers for casual running"},
		{ID: "blender", Name: "Kitchen Blender", Description: "powerful blender for smoothies and soups"},
		{ID: "empty", Name: "", Description: ""},
	})
}

func TestBuildNeighborsInvariants(t *testing.T) {
	t.Parallel()

	vectors := testVectors(t)
	neighbors, pairs, err := buildNeighbors(context.Background(), vectors, 20, 0)
	if err != nil {
		t.Fatalf("buildNeighbors: %v", err)
	}

	for id, row := range neighbors {
		for i, n := range row {
			if n.ProductID == id {
				t.Errorf("self-pair for %s", id)
			}
			if n.Score < 0 || n.Score > 1 {
				t.Errorf("score out of [0,1]: %s -> %s = %f", id, n.ProductID, n.Score)
			}
			if i > 0 {
				prev := row[i-1]
				if n.Score > prev.Score {
					t.Errorf("neighbors of %s not ordered by score desc", id)
				}
				if n.Score == prev.Score && n.ProductID < prev.ProductID {
					t.Errorf("neighbors of %s not ordered by ID asc on ties", id)
				}
			}
		}
	}

	if pairs == 0 {
		t.Error("expected at least one similarity pair")
	}
}

func TestBuildNeighborsSymmetry(t *testing.T) {
	t.Parallel()

	vectors := testVectors(t)
	neighbors, _, err := buildNeighbors(context.Background(), vectors, 20, 0)
	if err != nil {
		t.Fatalf("buildNeighbors: %v", err)
	}

	score := func(a, b string) (float64, bool) {
		for _, n := range neighbors[a] {
			if n.ProductID == b {
				return n.Score, true
			}
		}
		return 0, false
	}

	ab, okAB := score("shoes-red", "sneakers-red")
	ba, okBA := score("sneakers-red", "shoes-red")
	if !okAB || !okBA {
		t.Fatal("expected the two red footwear products to be mutual neighbors")
	}
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("similarity asymmetric: %f vs %f", ab, ba)
	}
}

func TestBuildNeighborsContentScenario(t *testing.T) {
	t.Parallel()

	vectors := testVectors(t)
	neighbors, _, err := buildNeighbors(context.Background(), vectors, 20, 0)
	if err != nil {
		t.Fatalf("buildNeighbors: %v", err)
	}

	row := neighbors["shoes-red"]
	if len(row) == 0 {
		t.Fatal("red shoes should have neighbors")
	}
	if row[0].ProductID != "sneakers-red" {
		t.Errorf("red shoes' closest neighbor = %s, want sneakers-red", row[0].ProductID)
	}

	var blenderScore float64
	for _, n := range row {
		if n.ProductID == "blender" {
			blenderScore = n.Score
		}
	}
	if blenderScore >= row[0].Score {
		t.Errorf("blender (%f) should score below red sneakers (%f)", blenderScore, row[0].Score)
	}
}

func TestBuildNeighborsTopKBound(t *testing.T) {
	t.Parallel()

	products := make([]Product, 0, 10)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		products = append(products, Product{ID: id, Name: "widget gadget", Description: "common widget text"})
	}
	vectors := Vectorize(products)

	neighbors, _, err := buildNeighbors(context.Background(), vectors, 3, 0)
	if err != nil {
		t.Fatalf("buildNeighbors: %v", err)
	}

	for id, row := range neighbors {
		if len(row) > 3 {
			t.Errorf("neighbor list for %s exceeds K: %d", id, len(row))
		}
	}
}

func TestBuildNeighborsFloor(t *testing.T) {
	t.Parallel()

	vectors := testVectors(t)
	neighbors, _, err := buildNeighbors(context.Background(), vectors, 20, 0.99)
	if err != nil {
		t.Fatalf("buildNeighbors: %v", err)
	}

	for id, row := range neighbors {
		for _, n := range row {
			if n.Score < 0.99 {
				t.Errorf("edge below floor retained: %s -> %s = %f", id, n.ProductID, n.Score)
			}
		}
	}
}

func TestBuildNeighborsZeroVector(t *testing.T) {
	t.Parallel()

	vectors := testVectors(t)
	neighbors, _, err := buildNeighbors(context.Background(), vectors, 20, 0.01)
	if err != nil {
		t.Fatalf("buildNeighbors: %v", err)
	}

	if len(neighbors["empty"]) != 0 {
		t.Errorf("zero-vector product should have no neighbors, got %v", neighbors["empty"])
	}
	for id, row := range neighbors {
		for _, n := range row {
			if n.ProductID == "empty" {
				t.Errorf("zero-vector product appears as neighbor of %s", id)
			}
		}
	}
}

func TestBuildNeighborsCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := buildNeighbors(ctx, testVectors(t), 20, 0); err == nil {
		t.Error("expected error from canceled context")
	}
}

func TestClampScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want float64
	}{
		{-0.1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.0000001, 1},
	}
	for _, tt := range tests {
		if got := clampScore(tt.in); got != tt.want {
			t.Errorf("clampScore(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
