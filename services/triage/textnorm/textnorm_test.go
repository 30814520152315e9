// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"lowercase", "Hello World", "hello world"},
		{"collapse whitespace", "a  b\t\tc\n\nd", "a b c d"},
		{"trim", "  padded  ", "padded"},
		{"already normal", "already normal", "already normal"},
		{"only whitespace", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Build  API", "  x  ", "MIXED case\ttext"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestExtractKeywords(t *testing.T) {
	keywords := ExtractKeywords("Build the API server for the database", 0)
	assert.Equal(t, []string{"build", "api", "server", "database"}, keywords)
}

func TestExtractKeywordsDropsShortAndStopWords(t *testing.T) {
	keywords := ExtractKeywords("is a to of it go", 0)
	assert.Empty(t, keywords, "stop words and sub-minimum tokens are dropped")

	keywords = ExtractKeywords("ci cd gitops", 2)
	assert.Equal(t, []string{"ci", "cd", "gitops"}, keywords)
}

func TestExtractKeywordsEmpty(t *testing.T) {
	assert.Nil(t, ExtractKeywords("", 0))
}

func TestJaccardOverlap(t *testing.T) {
	a := KeywordSet("build slack integration", 0)
	b := KeywordSet("slack integration rollout", 0)

	// intersection {slack, integration} = 2, union 4
	assert.InDelta(t, 0.5, JaccardOverlap(a, b), 1e-9)
	assert.Equal(t, 1.0, JaccardOverlap(a, a))
	assert.Equal(t, 0.0, JaccardOverlap(a, nil))
	assert.Equal(t, 0.0, JaccardOverlap(nil, b))
}

func TestIsVague(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty", "", true},
		{"whitespace only", "   \t ", true},
		{"too short", "fix bug", true},
		{"placeholder untitled", "untitled", true},
		{"placeholder tbd", "tbd", true},
		{"fix stuff", "fix stuff", true},
		{"improve stuff prefix pattern", "improves", true},
		{"clear description", "Implement OAuth login for the admin portal", false},
		{"long enough and specific", "Migrate billing exports to BigQuery", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVague(tt.input), "input: %q", tt.input)
		})
	}
}
