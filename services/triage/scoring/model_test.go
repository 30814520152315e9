// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/semantic-triage/services/triage/config"
	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
	"github.com/AleutianAI/semantic-triage/services/triage/taxonomy"
)

func newTestModel() *Model {
	return NewModel(config.Default(), taxonomy.Default())
}

func TestFilterScoreInScopeTask(t *testing.T) {
	model := newTestModel()

	score, category := model.FilterScore("Build Slack MCP server integration for mapache.app")
	assert.Empty(t, category)
	assert.Greater(t, score, 0.7)
}

func TestFilterScoreExcludedCategoryShortCircuits(t *testing.T) {
	model := newTestModel()

	score, category := model.FilterScore("Buy curtain rods and door covers")
	assert.Equal(t, "personal_household", category)
	assert.Less(t, score, 0.3)
}

func TestFilterScorePenalties(t *testing.T) {
	model := newTestModel()

	neutral, _ := model.FilterScore("Draft the quarterly report")
	hedged, _ := model.FilterScore("Draft the quarterly report, not sure it matters")

	assert.Less(t, hedged, neutral, "red flag should lower the score")
}

func TestFilterScoreBounds(t *testing.T) {
	model := newTestModel()

	descriptions := []string{
		"",
		"Build Slack MCP server integration with agent embeddings rag oauth saas orchestration",
		"personal learning shopping household meditation hobby",
		"not sure maybe figure out",
	}
	for _, description := range descriptions {
		score, _ := model.FilterScore(description)
		assert.GreaterOrEqual(t, score, 0.0, "description %q", description)
		assert.LessOrEqual(t, score, 1.0, "description %q", description)
	}
}

func TestClarityScoreShortDescription(t *testing.T) {
	model := newTestModel()

	assert.Equal(t, 0.2, model.ClarityScore(""))
	assert.Equal(t, 0.2, model.ClarityScore("fix api"))
}

func TestClarityScorePlaceholderDescription(t *testing.T) {
	model := newTestModel()

	// Placeholder text padded with whitespace still trims below the
	// minimum length
	assert.Equal(t, 0.2, model.ClarityScore("   fix stuff   "))
	assert.Equal(t, 0.2, model.ClarityScore("untitled      "))
}

func TestClarityScoreRewardsActionAndTech(t *testing.T) {
	model := newTestModel()

	plain := model.ClarityScore("the quarterly report needs numbers soon")
	action := model.ClarityScore("update the quarterly report with numbers")
	technical := model.ClarityScore("update the reporting api with new numbers")

	assert.Greater(t, action, plain)
	assert.Greater(t, technical, action)
}

func TestClarityScorePenalizesHedging(t *testing.T) {
	model := newTestModel()

	committed := model.ClarityScore("deploy the billing service to production")
	hedged := model.ClarityScore("maybe deploy the billing service sometime")

	assert.Greater(t, committed, hedged)
}

func TestDuplicateScoreAveragesSimilarityAndOverlap(t *testing.T) {
	model := newTestModel()
	candidate := datatypes.Project{
		Name:        "Slack Integration",
		Description: "Slack MCP server integration",
	}

	high := model.DuplicateScore("Build Slack MCP server integration", candidate, 0.95)
	low := model.DuplicateScore("Redesign billing invoices", candidate, 0.30)

	assert.Greater(t, high, 0.75)
	assert.Less(t, low, 0.40)
	assert.GreaterOrEqual(t, high, 0.0)
	assert.LessOrEqual(t, high, 1.0)
}

func TestAlignmentScoreReferenceWeights(t *testing.T) {
	model := newTestModel()

	// 0.40*0.5 + 0.30*0.5 + 0.20*0.5 + 0.10*1.0
	assert.InDelta(t, 0.55, model.AlignmentScore(0.5, 0.5, 0.5), 1e-9)
	assert.InDelta(t, 1.0, model.AlignmentScore(1.0, 1.0, 1.0), 1e-9)
	assert.InDelta(t, 0.10, model.AlignmentScore(0, 0, 0), 1e-9)
}

func TestAlignmentScoreMonotonic(t *testing.T) {
	model := newTestModel()

	base := model.AlignmentScore(0.4, 0.4, 0.4)
	assert.GreaterOrEqual(t, model.AlignmentScore(0.6, 0.4, 0.4), base)
	assert.GreaterOrEqual(t, model.AlignmentScore(0.4, 0.6, 0.4), base)
	assert.GreaterOrEqual(t, model.AlignmentScore(0.4, 0.4, 0.6), base)
}
