// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"errors"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() should validate, got: %v", err)
	}
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := Default()
	cfg.Weights.Context = 0.50 // sum becomes 1.10

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for weights not summing to 1.0")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error should wrap ErrInvalidConfig, got: %v", err)
	}
}

func TestValidateRejectsZeroDimension(t *testing.T) {
	cfg := Default()
	cfg.EmbeddingDimension = 0

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for zero dimension, got: %v", err)
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := Default()
	cfg.Similarity.Match = 1.5

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for threshold > 1, got: %v", err)
	}
}

func TestValidateRejectsNonPositiveTTL(t *testing.T) {
	cfg := Default()
	cfg.TTL.Projects = 0

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for zero TTL, got: %v", err)
	}
}

func TestWeightSumToleratesFloatNoise(t *testing.T) {
	cfg := Default()
	// 0.1+0.2+0.3+0.4 accumulates representation error but must pass
	cfg.Weights = ScoreWeights{Context: 0.1, Similarity: 0.2, Clarity: 0.3, RedFlags: 0.4}

	if err := cfg.Validate(); err != nil {
		t.Errorf("near-1.0 weight sum should validate, got: %v", err)
	}
}
