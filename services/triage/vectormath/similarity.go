// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package vectormath provides cosine similarity and ranked top-k matching
// over embedding vectors. All functions are pure and allocation-light.
package vectormath

import (
	"math"
	"sort"
)

// normEpsilon guards against division by zero when normalizing vectors.
const normEpsilon = 1e-10

// Ranked is one scored candidate from RankBySimilarity.
type Ranked struct {
	// Index is the candidate's position in the input slice.
	Index int

	// Score is the cosine similarity in [0,1].
	Score float64
}

// CosineSimilarity returns the cosine similarity of a and b, clamped
// to [0,1].
//
// # Description
//
// Both vectors are normalized (with a small epsilon added to the norm to
// avoid division by zero) and the dot product of the normalized vectors is
// returned. Negative cosine values clamp to 0: the triage domain never needs
// to distinguish "opposite" from "unrelated".
//
// Returns 0.0 if either vector is empty. Vectors of mismatched dimension
// are a contract violation upstream; here they also score 0.0 rather than
// panicking.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	sim := dot / ((math.Sqrt(normA) + normEpsilon) * (math.Sqrt(normB) + normEpsilon))

	// Clamp to [0,1]
	if sim < 0 {
		return 0.0
	}
	if sim > 1 {
		return 1.0
	}
	return sim
}

// RankBySimilarity scores every candidate against the query and returns
// those at or above threshold, best first.
//
// # Description
//
// The sort is stable and descending by score, so ties keep the original
// candidate order. Returns an empty slice if the query or candidate set is
// empty.
//
// # Inputs
//
//   - query: The query embedding.
//   - candidates: Candidate embeddings. Nil entries score 0 and are
//     excluded by any positive threshold.
//   - threshold: Minimum similarity to include a candidate.
//
// # Outputs
//
//   - []Ranked: Candidates with Score >= threshold, sorted descending.
func RankBySimilarity(query []float32, candidates [][]float32, threshold float64) []Ranked {
	if len(query) == 0 || len(candidates) == 0 {
		return nil
	}

	ranked := make([]Ranked, 0, len(candidates))
	for i, candidate := range candidates {
		score := CosineSimilarity(query, candidate)
		if score >= threshold {
			ranked = append(ranked, Ranked{Index: i, Score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}
