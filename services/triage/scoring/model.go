// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scoring computes the sub-scores behind a triage decision.
//
// # Description
//
// Four independent scores, each in [0, 1]:
//
//   - FilterScore: how well the task fits the workspace scope, driven by
//     the keyword taxonomy. Hard excluded categories short-circuit to 0.1.
//   - ClarityScore: how actionable the description is.
//   - DuplicateScore: how likely the task duplicates a specific project.
//     Ranking input only, not part of the alignment sum.
//   - AlignmentScore: the weighted combination that gates the Add outcome.
//
// The red-flag weight in AlignmentScore is applied to a constant 1.0
// because red flags already penalize FilterScore. The weight stays in the
// formula so the configured weights always sum to 1.0.
package scoring

import (
	"strings"

	"github.com/AleutianAI/semantic-triage/services/triage/config"
	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
	"github.com/AleutianAI/semantic-triage/services/triage/taxonomy"
	"github.com/AleutianAI/semantic-triage/services/triage/textnorm"
)

// Filter-score increments. The base sits at the midpoint and the keyword
// signals move it in both directions.
const (
	filterBase            = 0.5
	excludedCategoryScore = 0.1
	inScopeCredit         = 0.1
	inScopeCreditCap      = 0.4
	excludedPenalty       = 0.2
	redFlagPenalty        = 0.15
	indicatorCredit       = 0.05
)

// Clarity-score adjustments.
const (
	tooShortClarity  = 0.2
	vagueClarity     = 0.3
	clarityLengthCap = 200.0
	actionVerbBonus  = 0.3
	hedgePenalty     = 0.2
	techNounBonus    = 0.1
)

// actionVerbs signal a concrete, executable request.
var actionVerbs = []string{
	"implement", "build", "create", "deploy", "setup", "configure",
	"add", "remove", "update", "fix", "optimize", "integrate",
}

// hedgeTerms signal the author has not committed to the work.
var hedgeTerms = []string{
	"maybe", "possibly", "think about", "consider", "explore",
}

// techNouns signal the description names a concrete technical surface.
var techNouns = []string{
	"api", "database", "service", "endpoint", "component", "module",
}

// Model computes scores against one taxonomy and one weight set.
// Stateless after construction; safe for concurrent use.
type Model struct {
	cfg config.Config
	tax taxonomy.Taxonomy
}

// NewModel creates a scoring model.
func NewModel(cfg config.Config, tax taxonomy.Taxonomy) *Model {
	return &Model{cfg: cfg, tax: tax}
}

// FilterScore scores how well a description fits the workspace scope.
//
// # Outputs
//
//   - float64: the score in [0, 1].
//   - string: the matched excluded category, or "" when none matched.
func (m *Model) FilterScore(description string) (float64, string) {
	if category, ok := m.tax.FilterCategory(description); ok {
		return excludedCategoryScore, category
	}

	score := filterBase

	inScope := float64(m.tax.CountInScope(description)) * inScopeCredit
	score += min(inScope, inScopeCreditCap)

	score -= float64(m.tax.CountExcluded(description)) * excludedPenalty
	score -= float64(m.tax.CountRedFlags(description)) * redFlagPenalty
	score += float64(len(m.tax.ProjectIndicatorCategories(description))) * indicatorCredit

	return clamp01(score), ""
}

// ClarityScore scores how actionable a description is.
func (m *Model) ClarityScore(description string) float64 {
	trimmed := strings.TrimSpace(description)
	if len(trimmed) < m.cfg.MinDescriptionLength {
		return tooShortClarity
	}
	if textnorm.IsVague(trimmed) {
		return vagueClarity
	}

	score := min(float64(len(trimmed))/clarityLengthCap, 1.0)

	lower := strings.ToLower(trimmed)
	if containsAny(lower, actionVerbs) {
		score += actionVerbBonus
	}
	if containsAny(lower, hedgeTerms) {
		score -= hedgePenalty
	}
	if containsAny(lower, techNouns) {
		score += techNounBonus
	}

	return clamp01(score)
}

// DuplicateScore estimates how likely the task duplicates the candidate:
// the average of the embedding cosine similarity and the keyword Jaccard
// overlap between the description and the candidate's name+description.
func (m *Model) DuplicateScore(description string, candidate datatypes.Project, similarity float64) float64 {
	taskKeywords := textnorm.KeywordSet(description, 0)
	candidateKeywords := textnorm.KeywordSet(candidate.Name+" "+candidate.Description, 0)
	overlap := textnorm.JaccardOverlap(taskKeywords, candidateKeywords)
	return clamp01((similarity + overlap) / 2)
}

// AlignmentScore combines the sub-scores under the configured weights.
// bestSimilarity is the top match similarity, or 0 with an empty catalog.
//
// Monotonic non-decreasing in each input.
func (m *Model) AlignmentScore(filterScore, bestSimilarity, clarityScore float64) float64 {
	w := m.cfg.Weights
	score := w.Context*filterScore +
		w.Similarity*bestSimilarity +
		w.Clarity*clarityScore +
		w.RedFlags*1.0
	return clamp01(score)
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
