// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectormath

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilaritySelf(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.5, 0.5, 0.5},
		{-1, 2, -3, 4},
	}

	for _, v := range vectors {
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6,
			"cosine of a non-zero vector with itself must be ~1.0")
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 20 {
		a := randomVector(rng, 16)
		b := randomVector(rng, 16)
		assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
	}
}

func TestCosineSimilarityBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 50 {
		a := randomVector(rng, 8)
		b := randomVector(rng, 8)
		score := CosineSimilarity(a, b)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestCosineSimilarityOppositeClampsToZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	assert.Equal(t, 0.0, CosineSimilarity(a, b))
}

func TestCosineSimilarityDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float32{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, nil))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	// Mismatched dimensions score 0 rather than panicking
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	// Zero vectors must not divide by zero
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{0, 0}))
}

func TestRankBySimilarityOrdering(t *testing.T) {
	query := []float32{1, 0, 0}
	candidates := [][]float32{
		{0, 1, 0},          // orthogonal, score 0
		{1, 0.2, 0},        // close
		{1, 0, 0},          // identical
		{0.9, 0.5, 0},      // less close
	}

	ranked := RankBySimilarity(query, candidates, 0.5)
	require.Len(t, ranked, 3)
	assert.Equal(t, 2, ranked[0].Index, "identical vector ranks first")
	assert.Equal(t, 1, ranked[1].Index)
	assert.Equal(t, 3, ranked[2].Index)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestRankBySimilarityTiesKeepInputOrder(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{2, 0},
		{2, 0}, // identical candidates score identically
		{2, 0},
	}

	ranked := RankBySimilarity(query, candidates, 0.0)
	require.Len(t, ranked, 3)
	assert.Equal(t, []int{ranked[0].Index, ranked[1].Index, ranked[2].Index}, []int{0, 1, 2},
		"equal scores must preserve candidate order")
}

func TestRankBySimilarityEmptyInputs(t *testing.T) {
	assert.Empty(t, RankBySimilarity(nil, [][]float32{{1}}, 0))
	assert.Empty(t, RankBySimilarity([]float32{1}, nil, 0))
}

func TestRankBySimilarityThresholdFilters(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{1, 0},   // score ~1
		{0, 1},   // score 0
		{1, 1},   // score ~0.707
	}

	ranked := RankBySimilarity(query, candidates, 0.75)
	require.Len(t, ranked, 1)
	assert.Equal(t, 0, ranked[0].Index)
}

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}
