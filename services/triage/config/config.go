// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config defines the immutable configuration value consumed by the
// triage decision pipeline.
//
// # Description
//
// Every tunable the core components read lives here: similarity thresholds,
// confidence thresholds, scoring weights, cache TTLs, embedding dimension,
// and provider limits. Components receive a Config at construction; none of
// them reads ambient global state.
//
// Validate() must be called at startup. Invalid configuration (weights not
// summing to 1.0, non-positive embedding dimension) is fatal and not
// recoverable per-request.
package config

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is returned by Validate when the configuration cannot
// be used. Wraps a description of the first violation found.
var ErrInvalidConfig = errors.New("invalid triage configuration")

// weightSumTolerance absorbs float32/float64 representation noise when
// checking that the scoring weights sum to 1.0.
const weightSumTolerance = 1e-9

// =============================================================================
// Threshold Groups
// =============================================================================

// SimilarityThresholds groups the cosine-similarity cutoffs.
type SimilarityThresholds struct {
	// Match is the minimum similarity for a project to count as related.
	Match float64

	// Duplicate is the similarity above which consolidation is suggested.
	Duplicate float64

	// Exact is the similarity above which a task is considered a
	// definite duplicate.
	Exact float64
}

// ConfidenceThresholds groups the decision confidence cutoffs.
type ConfidenceThresholds struct {
	// Min is the minimum confidence to make any decision.
	Min float64

	// Filter is the filter-score cutoff: below it the task is filtered out.
	Filter float64
}

// ScoreWeights are the fixed weights of the alignment score model.
//
// The four weights must sum to 1.0. The red-flag weight is applied against
// a constant 1.0 term because red flags are already penalized inside the
// filter sub-score; the weight stays visible here rather than being folded
// into the formula.
type ScoreWeights struct {
	// Context weighs the filter/context-fit sub-score.
	Context float64

	// Similarity weighs the best project similarity.
	Similarity float64

	// Clarity weighs the description clarity sub-score.
	Clarity float64

	// RedFlags weighs the red-flag term.
	RedFlags float64
}

// Sum returns the total of all four weights.
func (w ScoreWeights) Sum() float64 {
	return w.Context + w.Similarity + w.Clarity + w.RedFlags
}

// CacheTTLs groups the expiry policies of the cache tiers.
type CacheTTLs struct {
	// Projects bounds the age of the project catalog in both the
	// in-process and persistent tiers.
	Projects time.Duration

	// Embeddings bounds the age of cached embedding vectors. Long-lived:
	// embeddings for identical text do not change.
	Embeddings time.Duration

	// Decisions bounds retention of audited decisions.
	Decisions time.Duration
}

// =============================================================================
// Config
// =============================================================================

// Config is the full configuration surface of the decision pipeline.
//
// # Thread Safety
//
// Config is treated as immutable after construction. Copy by value.
type Config struct {
	// Similarity holds the cosine-similarity cutoffs.
	Similarity SimilarityThresholds

	// Confidence holds the decision confidence cutoffs.
	Confidence ConfidenceThresholds

	// Weights holds the alignment score weights. Must sum to 1.0.
	Weights ScoreWeights

	// AlignmentThreshold is the alignment score at or above which a task
	// is recommended for addition.
	AlignmentThreshold float64

	// ClarityThreshold is the clarity score below which the engine asks
	// for clarification.
	ClarityThreshold float64

	// DuplicateThreshold is the duplicate score at or above which the
	// engine recommends consolidation.
	DuplicateThreshold float64

	// TTL holds cache expiry policies.
	TTL CacheTTLs

	// EmbeddingDimension is the fixed vector dimension D. Every embedding
	// in the system must share it; comparing mismatched vectors is a
	// contract violation.
	EmbeddingDimension int

	// EmbeddingBatchSize is the provider-imposed maximum texts per
	// batched embedding call.
	EmbeddingBatchSize int

	// MinDescriptionLength is the minimum description length, in
	// characters, below which clarity bottoms out.
	MinDescriptionLength int

	// MaxMatches caps how many similar projects are kept per evaluation.
	MaxMatches int

	// ProviderTimeout bounds each external call (embedding provider,
	// catalog source). No operation in the core blocks indefinitely.
	ProviderTimeout time.Duration

	// ProviderRetries is the number of retry attempts after the first
	// failed external call, with exponential backoff between attempts.
	ProviderRetries int
}

// Default returns the reference configuration.
//
// Values match the documented decision model: match/duplicate/exact
// similarity 0.75/0.80/0.90, filter cutoff 0.40, weights
// 0.40/0.30/0.20/0.10, TTLs 1h/30d/7d, dimension 768, batch size 100.
func Default() Config {
	return Config{
		Similarity: SimilarityThresholds{
			Match:     0.75,
			Duplicate: 0.80,
			Exact:     0.90,
		},
		Confidence: ConfidenceThresholds{
			Min:    0.60,
			Filter: 0.40,
		},
		Weights: ScoreWeights{
			Context:    0.40,
			Similarity: 0.30,
			Clarity:    0.20,
			RedFlags:   0.10,
		},
		AlignmentThreshold: 0.75,
		ClarityThreshold:   0.4,
		DuplicateThreshold: 0.75,
		TTL: CacheTTLs{
			Projects:   time.Hour,
			Embeddings: 30 * 24 * time.Hour,
			Decisions:  7 * 24 * time.Hour,
		},
		EmbeddingDimension:   768,
		EmbeddingBatchSize:   100,
		MinDescriptionLength: 10,
		MaxMatches:           5,
		ProviderTimeout:      30 * time.Second,
		ProviderRetries:      3,
	}
}

// Validate checks the configuration for fatal construction errors.
//
// # Outputs
//
//   - error: Non-nil (wrapping ErrInvalidConfig) on the first violation.
//     A nil return means the configuration is safe to hand to components.
func (c Config) Validate() error {
	if diff := math.Abs(c.Weights.Sum() - 1.0); diff > weightSumTolerance {
		return fmt.Errorf("%w: score weights sum to %.6f, must sum to 1.0",
			ErrInvalidConfig, c.Weights.Sum())
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive, got %d",
			ErrInvalidConfig, c.EmbeddingDimension)
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch size must be positive, got %d",
			ErrInvalidConfig, c.EmbeddingBatchSize)
	}
	for name, v := range map[string]float64{
		"similarity.match":     c.Similarity.Match,
		"similarity.duplicate": c.Similarity.Duplicate,
		"similarity.exact":     c.Similarity.Exact,
		"confidence.min":       c.Confidence.Min,
		"confidence.filter":    c.Confidence.Filter,
		"alignment_threshold":  c.AlignmentThreshold,
		"clarity_threshold":    c.ClarityThreshold,
		"duplicate_threshold":  c.DuplicateThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %f", ErrInvalidConfig, name, v)
		}
	}
	if c.TTL.Projects <= 0 || c.TTL.Embeddings <= 0 || c.TTL.Decisions <= 0 {
		return fmt.Errorf("%w: cache TTLs must be positive", ErrInvalidConfig)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("%w: provider timeout must be positive", ErrInvalidConfig)
	}
	if c.ProviderRetries < 0 {
		return fmt.Errorf("%w: provider retries must not be negative", ErrInvalidConfig)
	}
	return nil
}
