// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCategory(t *testing.T) {
	tx := Default()

	tests := []struct {
		name         string
		description  string
		wantCategory string
		wantMatch    bool
	}{
		{"household purchase", "Buy curtain rods and door covers", "personal_household", true},
		{"vague placeholder", "untitled", "generic_vague", true},
		{"wellness", "daily meditation reminder", "outside_scope", true},
		{"in-scope work", "Build Slack MCP server integration", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, ok := tx.FilterCategory(tt.description)
			assert.Equal(t, tt.wantMatch, ok)
			assert.Equal(t, tt.wantCategory, cat)
		})
	}
}

func TestDomain(t *testing.T) {
	tx := Default()

	domain, ok := tx.Domain("Build Slack MCP server integration for mapache.app")
	require.True(t, ok)
	assert.Equal(t, "saas_integrations", domain)

	_, ok = tx.Domain("buy groceries")
	assert.False(t, ok)
}

func TestProjectIndicatorsCreditOncePerCategory(t *testing.T) {
	tx := Default()

	// "api" and "server" are both technical terms; category counts once
	cats := tx.ProjectIndicatorCategories("expose the api from the server")
	assert.Equal(t, []string{"technical"}, cats)
}

func TestTagsSortedAndDeduplicated(t *testing.T) {
	tx := Default()

	tags := tx.Tags("Deploy the semantic embeddings agent to GCP with docker")
	require.NotEmpty(t, tags)
	for i := 1; i < len(tags); i++ {
		assert.Less(t, tags[i-1], tags[i], "tags must be sorted without duplicates")
	}
	assert.Contains(t, tags, "embeddings")
	assert.Contains(t, tags, "deployment")
	assert.Contains(t, tags, "gcp")
}

func TestCountsAreCaseInsensitive(t *testing.T) {
	tx := Default()

	assert.Equal(t, tx.CountInScope("slack agent oauth"), tx.CountInScope("SLACK Agent OAuth"))
	assert.Positive(t, tx.CountRedFlags("Maybe we should, not sure yet"))
}

func TestLoadRoundTrip(t *testing.T) {
	const profile = `
version: "test-1"
in_scope_keywords: ["widget"]
excluded_keywords: ["gadget"]
red_flags: ["perhaps"]
excluded_categories:
  - name: off_topic
    terms: ["lawn"]
domains:
  - name: widgets
    terms: ["widget"]
project_indicators:
  - name: technical
    terms: ["api"]
tech_tags:
  - name: widget
    terms: ["widget"]
`
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profile), 0644))

	tx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-1", tx.Version)

	cat, ok := tx.FilterCategory("mow the lawn")
	require.True(t, ok)
	assert.Equal(t, "off_topic", cat)
	assert.Equal(t, 1, tx.CountInScope("new widget API"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
