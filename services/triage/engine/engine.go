// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine turns scores into triage decisions.
//
// # Description
//
// Evaluate runs the decision state machine. Rules fire in order, first
// match wins:
//
//  1. Filter score below the filter cutoff            -> Filter
//  2. Clarity score below the clarity threshold       -> Clarify
//  3. Rank the catalog by embedding similarity
//  4. Top match duplicate score over the threshold    -> Consolidate
//  5. Alignment score over the alignment threshold    -> Add
//  6. Otherwise                                       -> Clarify
//
// Evaluate never returns an error. Any internal failure (provider down,
// no catalog snapshot) degrades to a Clarify decision with confidence
// 0.0 and the "error" tag, so the caller always receives a well-formed
// Decision.
//
// # Thread Safety
//
// Safe for concurrent use; all mutable state lives in the caches.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/semantic-triage/services/triage/audit"
	"github.com/AleutianAI/semantic-triage/services/triage/catalog"
	"github.com/AleutianAI/semantic-triage/services/triage/config"
	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
	"github.com/AleutianAI/semantic-triage/services/triage/embeddings"
	"github.com/AleutianAI/semantic-triage/services/triage/observability"
	"github.com/AleutianAI/semantic-triage/services/triage/scoring"
	"github.com/AleutianAI/semantic-triage/services/triage/taxonomy"
	"github.com/AleutianAI/semantic-triage/services/triage/textnorm"
	"github.com/AleutianAI/semantic-triage/services/triage/vectormath"
)

// maxClarifyQuestions caps follow-up questions per decision.
const maxClarifyQuestions = 3

// maxIssueTitleLength truncates issue titles derived from descriptions.
const maxIssueTitleLength = 100

// Deps holds the engine's collaborators.
type Deps struct {
	Config     config.Config
	Taxonomy   taxonomy.Taxonomy
	Embeddings *embeddings.Cache
	Catalog    *catalog.Cache
	Audit      audit.DecisionSink
	Logger     *slog.Logger
}

// Engine is the triage decision engine.
type Engine struct {
	cfg      config.Config
	tax      taxonomy.Taxonomy
	model    *scoring.Model
	embedder *embeddings.Cache
	catalog  *catalog.Cache
	sink     audit.DecisionSink
	logger   *slog.Logger
}

// New creates the engine. Audit defaults to a no-op sink and Logger to
// slog.Default().
func New(deps Deps) *Engine {
	if deps.Audit == nil {
		deps.Audit = audit.NoopSink{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Engine{
		cfg:      deps.Config,
		tax:      deps.Taxonomy,
		model:    scoring.NewModel(deps.Config, deps.Taxonomy),
		embedder: deps.Embeddings,
		catalog:  deps.Catalog,
		sink:     deps.Audit,
		logger:   deps.Logger,
	}
}

// Evaluate runs the state machine for one task. Always returns a
// Decision; internal failures degrade to the Clarify/error outcome.
func (e *Engine) Evaluate(ctx context.Context, task datatypes.Task) datatypes.Decision {
	started := time.Now()
	decision := e.evaluate(ctx, task)
	decision.CreatedAt = time.Now()

	e.logger.Info("Task evaluated",
		"task_id", task.ID,
		"source", task.Source,
		"decision", decision.Type,
		"confidence", decision.Confidence,
		"duration", time.Since(started))
	observability.RecordDecision(string(decision.Type), task.Source, time.Since(started))

	e.sink.Record(ctx, task, decision)
	return decision
}

func (e *Engine) evaluate(ctx context.Context, task datatypes.Task) datatypes.Decision {
	description := task.Description

	filterScore, filterCategory := e.model.FilterScore(description)
	e.logger.Debug("Filter score", "task_id", task.ID, "score", filterScore)
	if filterScore < e.cfg.Confidence.Filter {
		return e.filterDecision(filterScore, filterCategory)
	}

	clarityScore := e.model.ClarityScore(description)
	e.logger.Debug("Clarity score", "task_id", task.ID, "score", clarityScore)
	if clarityScore < e.cfg.ClarityThreshold {
		return e.clarifyDecision(description, clarityScore)
	}

	projects, err := e.catalog.GetOrRefresh(ctx)
	if err != nil {
		return e.errorDecision(task, fmt.Errorf("load project catalog: %w", err))
	}

	taskEmbedding, err := e.embedder.GetOrCreate(ctx, description, embeddings.KindQuery)
	if err != nil {
		return e.errorDecision(task, fmt.Errorf("embed task description: %w", err))
	}

	matches := e.findMatches(taskEmbedding, projects)
	e.logger.Debug("Similar projects", "task_id", task.ID, "matches", len(matches))

	if len(matches) > 0 {
		best := matches[0]
		duplicateScore := e.model.DuplicateScore(description, best.Project, best.Similarity)
		e.logger.Debug("Duplicate score",
			"task_id", task.ID, "score", duplicateScore, "best_similarity", best.Similarity)
		if duplicateScore >= e.cfg.DuplicateThreshold {
			return e.consolidateDecision(description, matches, duplicateScore)
		}
	}

	bestSimilarity := 0.0
	if len(matches) > 0 {
		bestSimilarity = matches[0].Similarity
	}
	alignmentScore := e.model.AlignmentScore(filterScore, bestSimilarity, clarityScore)
	e.logger.Debug("Alignment score", "task_id", task.ID, "score", alignmentScore)

	if alignmentScore >= e.cfg.AlignmentThreshold {
		return e.addDecision(description, matches, alignmentScore)
	}
	return e.clarifyDecision(description, clarityScore)
}

// findMatches ranks catalog projects by similarity to the task embedding
// and keeps the configured top N above the match threshold. Projects
// without embeddings are skipped.
func (e *Engine) findMatches(taskEmbedding []float32, projects []datatypes.Project) []datatypes.Match {
	if len(projects) == 0 {
		return nil
	}

	candidates := make([][]float32, 0, len(projects))
	valid := make([]datatypes.Project, 0, len(projects))
	for _, project := range projects {
		if len(project.Embedding) > 0 {
			candidates = append(candidates, project.Embedding)
			valid = append(valid, project)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	ranked := vectormath.RankBySimilarity(taskEmbedding, candidates, e.cfg.Similarity.Match)
	if len(ranked) > e.cfg.MaxMatches {
		ranked = ranked[:e.cfg.MaxMatches]
	}

	matches := make([]datatypes.Match, len(ranked))
	for i, r := range ranked {
		matches[i] = datatypes.Match{
			Project:    valid[r.Index],
			Similarity: r.Score,
			Reason:     fmt.Sprintf("Semantic similarity: %.2f", r.Score),
		}
	}
	return matches
}

// =============================================================================
// Decision Construction
// =============================================================================

func (e *Engine) addDecision(description string, matches []datatypes.Match, alignmentScore float64) datatypes.Decision {
	reasoning := fmt.Sprintf("This task aligns with workspace scope (alignment: %.2f). ", alignmentScore)
	if len(matches) > 0 {
		reasoning += fmt.Sprintf("Found %d related project(s), but no strong duplicate. ", len(matches))
	}

	action := "Create new tracker project/issue"
	if domain, ok := e.tax.Domain(description); ok {
		action += " in domain: " + domain
	}

	decision := datatypes.Decision{
		Type:            datatypes.DecisionAdd,
		Confidence:      min(alignmentScore+0.1, 1.0),
		AlignmentScore:  alignmentScore,
		Reasoning:       reasoning,
		SuggestedAction: action,
		Tags:            e.tax.Tags(description),
	}
	if len(matches) > 0 {
		decision.MappedProject = matches[0].Project.ID
	}
	return decision
}

func (e *Engine) filterDecision(filterScore float64, category string) datatypes.Decision {
	reasoning := fmt.Sprintf("This task does not align with workspace scope (score: %.2f). ", filterScore)
	if category != "" {
		reasoning += fmt.Sprintf("Detected category: %s. ", category)
	}
	reasoning += "Not suitable for the tracker."

	tags := []string{"not_in_scope"}
	if category != "" {
		tags = []string{category}
	}

	return datatypes.Decision{
		Type:            datatypes.DecisionFilter,
		Confidence:      1.0 - filterScore,
		AlignmentScore:  filterScore,
		Reasoning:       reasoning,
		SuggestedAction: "Archive this task; track personal items outside the workspace.",
		Tags:            tags,
	}
}

func (e *Engine) consolidateDecision(description string, matches []datatypes.Match, duplicateScore float64) datatypes.Decision {
	best := matches[0]
	reasoning := fmt.Sprintf(
		"This task is %.0f%% similar to existing project %q (ID: %s). Suggest consolidating instead of creating a duplicate.",
		best.Similarity*100, best.Project.Name, best.Project.ID)

	limit := min(len(matches), 3)
	consolidateWith := make([]string, limit)
	for i := 0; i < limit; i++ {
		consolidateWith[i] = matches[i].Project.ID
	}

	return datatypes.Decision{
		Type:            datatypes.DecisionConsolidate,
		Confidence:      duplicateScore,
		AlignmentScore:  0.90,
		MappedProject:   best.Project.ID,
		ConsolidateWith: consolidateWith,
		Reasoning:       reasoning,
		SuggestedAction: fmt.Sprintf("Link to existing project %s instead of creating new", best.Project.ID),
		Tags:            e.tax.Tags(description),
	}
}

func (e *Engine) clarifyDecision(description string, clarityScore float64) datatypes.Decision {
	reasoning := fmt.Sprintf("Task description needs clarification (clarity: %.2f). ", clarityScore)

	var questions []string
	if len(description) < 20 {
		questions = append(questions, "Can you provide more details about what needs to be done?")
	}
	if len(textnorm.ExtractKeywords(description, 0)) == 0 {
		questions = append(questions, "What is the specific goal or expected outcome?")
	}
	if _, ok := e.tax.Domain(description); !ok {
		questions = append(questions, fmt.Sprintf(
			"Which workspace area does this relate to? (%s)", strings.Join(e.tax.DomainNames(), ", ")))
	}
	if len(questions) == 0 {
		questions = append(questions, "Please provide more context about this task.")
	}
	if len(questions) > maxClarifyQuestions {
		questions = questions[:maxClarifyQuestions]
	}

	return datatypes.Decision{
		Type:                   datatypes.DecisionClarify,
		Confidence:             0.3 + clarityScore*0.3,
		AlignmentScore:         0.5,
		Reasoning:              reasoning,
		SuggestedAction:        "Ask the author for clarification",
		Tags:                   []string{"needs_clarification"},
		ClarificationQuestions: questions,
	}
}

// errorDecision is the absorbing state for internal failures.
func (e *Engine) errorDecision(task datatypes.Task, err error) datatypes.Decision {
	e.logger.Error("Evaluation degraded to clarify",
		"task_id", task.ID, "error", err)

	return datatypes.Decision{
		Type:                   datatypes.DecisionClarify,
		Confidence:             0.0,
		AlignmentScore:         0.0,
		Reasoning:              fmt.Sprintf("Evaluation failed: %v. Please retry or clarify the task.", err),
		SuggestedAction:        "Retry once the service recovers",
		Tags:                   []string{"error"},
		ClarificationQuestions: []string{"Can you re-submit this task in a moment?"},
	}
}

// =============================================================================
// Issue Creation
// =============================================================================

// CreateIssueFromTask files a tracker issue for a task after an Add
// decision. The issue title is the first line of the description,
// truncated.
func (e *Engine) CreateIssueFromTask(ctx context.Context, task datatypes.Task, decision datatypes.Decision) (catalog.Issue, error) {
	title := strings.TrimSpace(task.Description)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if len(title) > maxIssueTitleLength {
		title = strings.TrimSpace(title[:maxIssueTitleLength]) + "..."
	}

	issue, err := e.catalog.CreateIssue(ctx, catalog.IssueRequest{
		Title:       title,
		Description: task.Description,
		ProjectID:   decision.MappedProject,
		Labels:      decision.Tags,
	})
	if err != nil {
		return catalog.Issue{}, fmt.Errorf("create tracker issue: %w", err)
	}

	e.logger.Info("Tracker issue created",
		"task_id", task.ID, "issue_id", issue.ID)
	return issue, nil
}
