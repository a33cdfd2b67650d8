// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package recommend

import (
	"math"
	"strings"
	"unicode"
)

// Vectorize turns a catalog snapshot into one L2-normalized TF-IDF feature
// vector per product. Deterministic: the same product set yields the same
// vectors up to floating-point tolerance. An empty product set yields an
// empty map, and a product with no usable text yields a zero (empty) vector;
// neither is an error.
func Vectorize(products []Product) map[string]FeatureVector {
	docs := make(map[string][]string, len(products))
	df := make(map[string]int, 256)

	for i := range products {
		p := &products[i]
		tokens := tokenize(p.Name + " " + p.Description + " " + p.Brand)
		docs[p.ID] = tokens

		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	// Smoothed IDF: ln((1+N)/(1+df)) + 1. Never zero, so a term appearing
	// in a single document is retained rather than dropped.
	n := float64(len(products))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	vectors := make(map[string]FeatureVector, len(products))
	for id, tokens := range docs {
		vectors[id] = buildVector(tokens, idf)
	}

	return vectors
}

// buildVector computes the normalized TF-IDF vector for one document.
func buildVector(tokens []string, idf map[string]float64) FeatureVector {
	vec := make(FeatureVector, len(tokens))
	if len(tokens) == 0 {
		return vec
	}

	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}

	total := float64(len(tokens))
	var sumSquares float64
	for term, count := range counts {
		w := (float64(count) / total) * idf[term]
		vec[term] = w
		sumSquares += w * w
	}

	if sumSquares == 0 {
		return vec
	}

	norm := math.Sqrt(sumSquares)
	for term := range vec {
		vec[term] /= norm
	}

	return vec
}

// tokenize lower-cases the text and splits on anything that is not a letter
// or digit. Tokens shorter than two runes are dropped.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// dotProduct computes the cosine similarity of two L2-normalized sparse
// vectors. Iterates the smaller map.
func dotProduct(a, b FeatureVector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}

	var sum float64
	for term, wa := range a {
		if wb, ok := b[term]; ok {
			sum += wa * wb
		}
	}
	return sum
}
