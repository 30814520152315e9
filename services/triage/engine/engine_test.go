// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/semantic-triage/services/triage/audit"
	"github.com/AleutianAI/semantic-triage/services/triage/catalog"
	"github.com/AleutianAI/semantic-triage/services/triage/config"
	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
	"github.com/AleutianAI/semantic-triage/services/triage/embeddings"
	"github.com/AleutianAI/semantic-triage/services/triage/taxonomy"
	"github.com/AleutianAI/semantic-triage/services/triage/textnorm"
)

// mapProvider returns preset vectors for known texts and an orthogonal
// default for everything else.
type mapProvider struct {
	vectors map[string][]float32
	fail    bool
}

func (p *mapProvider) Embed(ctx context.Context, text string, kind embeddings.Kind) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text}, kind)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *mapProvider) EmbedBatch(ctx context.Context, texts []string, kind embeddings.Kind) ([][]float32, error) {
	if p.fail {
		return nil, embeddings.ErrProviderUnavailable
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := p.vectors[textnorm.Normalize(text)]; ok {
			out[i] = vec
		} else {
			out[i] = []float32{0, 0, 0, 1}
		}
	}
	return out, nil
}

func (p *mapProvider) Model() string  { return "map" }
func (p *mapProvider) Dimension() int { return 4 }

type staticSource struct {
	projects []datatypes.Project
	err      error
	issues   []catalog.IssueRequest
}

func (s *staticSource) ListProjects(ctx context.Context) ([]datatypes.Project, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.projects, nil
}

func (s *staticSource) CreateIssue(ctx context.Context, req catalog.IssueRequest) (catalog.Issue, error) {
	s.issues = append(s.issues, req)
	return catalog.Issue{ID: "issue-42", Title: req.Title}, nil
}

type recordingSink struct {
	tasks     []datatypes.Task
	decisions []datatypes.Decision
}

func (r *recordingSink) Record(ctx context.Context, task datatypes.Task, decision datatypes.Decision) {
	r.tasks = append(r.tasks, task)
	r.decisions = append(r.decisions, decision)
}

func newTestEngine(source catalog.Source, provider embeddings.Provider, sink audit.DecisionSink) *Engine {
	embedder := embeddings.NewCache(embeddings.CacheConfig{Provider: provider})
	cat := catalog.NewCache(catalog.CacheConfig{
		Source:     source,
		Embeddings: embedder,
		TTL:        time.Hour,
	})
	return New(Deps{
		Config:     config.Default(),
		Taxonomy:   taxonomy.Default(),
		Embeddings: embedder,
		Catalog:    cat,
		Audit:      sink,
	})
}

func TestEvaluateFiltersOutOfScopeTask(t *testing.T) {
	engine := newTestEngine(&staticSource{}, &mapProvider{}, nil)

	decision := engine.Evaluate(context.Background(), datatypes.Task{
		ID: "t1", Description: "Buy curtain rods and door covers",
	})

	assert.Equal(t, datatypes.DecisionFilter, decision.Type)
	assert.Contains(t, decision.Tags, "personal_household")
	assert.InDelta(t, 0.9, decision.Confidence, 1e-9)
	assert.Contains(t, decision.Reasoning, "personal_household")
}

func TestEvaluateClarifiesEmptyDescription(t *testing.T) {
	engine := newTestEngine(&staticSource{}, &mapProvider{}, nil)

	decision := engine.Evaluate(context.Background(), datatypes.Task{ID: "t2", Description: ""})

	assert.Equal(t, datatypes.DecisionClarify, decision.Type)
	assert.NotEmpty(t, decision.ClarificationQuestions)
	assert.LessOrEqual(t, len(decision.ClarificationQuestions), 3)
	assert.InDelta(t, 0.3+0.2*0.3, decision.Confidence, 1e-9)
}

func TestEvaluateConsolidatesNearDuplicate(t *testing.T) {
	description := "Build Slack MCP server integration"
	taskVector := []float32{1, 0, 0, 0}

	source := &staticSource{projects: []datatypes.Project{
		{
			ID:          "proj-slack",
			Name:        "Slack MCP Server Integration",
			Description: "Build Slack MCP server integration",
			Embedding:   taskVector,
		},
	}}
	provider := &mapProvider{vectors: map[string][]float32{
		textnorm.Normalize(description): taskVector,
	}}
	engine := newTestEngine(source, provider, nil)

	decision := engine.Evaluate(context.Background(), datatypes.Task{
		ID: "t3", Description: description,
	})

	require.Equal(t, datatypes.DecisionConsolidate, decision.Type)
	assert.Equal(t, "proj-slack", decision.MappedProject)
	assert.Contains(t, decision.ConsolidateWith, "proj-slack")
	assert.GreaterOrEqual(t, decision.Confidence, 0.75)
	assert.Contains(t, decision.Reasoning, "proj-slack")
}

func TestEvaluateAddsAlignedTask(t *testing.T) {
	description := "Build and deploy the Slack MCP server integration for the workspace " +
		"agent platform, including oauth setup, semantic embeddings cache for the " +
		"api service, and deployment automation across gcp infrastructure environments"
	taskVector := []float32{1, 0, 0, 0}

	// Similar embedding but no keyword overlap, so the duplicate check
	// stays under threshold and rule 5 fires
	source := &staticSource{projects: []datatypes.Project{
		{
			ID:          "proj-pay",
			Name:        "Payments",
			Description: "Crunch quarterly revenue numbers",
			Embedding:   taskVector,
		},
	}}
	provider := &mapProvider{vectors: map[string][]float32{
		textnorm.Normalize(description): taskVector,
	}}
	engine := newTestEngine(source, provider, nil)

	decision := engine.Evaluate(context.Background(), datatypes.Task{
		ID: "t4", Description: description,
	})

	require.Equal(t, datatypes.DecisionAdd, decision.Type)
	assert.GreaterOrEqual(t, decision.AlignmentScore, 0.75)
	assert.Equal(t, "proj-pay", decision.MappedProject)
	assert.GreaterOrEqual(t, decision.Confidence, decision.AlignmentScore)
	assert.NotEmpty(t, decision.Tags)
}

func TestEvaluateAddWithEmptyCatalogFallsToClarify(t *testing.T) {
	description := "Build Slack MCP server integration for mapache.app"
	engine := newTestEngine(&staticSource{}, &mapProvider{}, nil)

	decision := engine.Evaluate(context.Background(), datatypes.Task{
		ID: "t5", Description: description,
	})

	// Without similarity support the alignment stays under threshold
	assert.Equal(t, datatypes.DecisionClarify, decision.Type)
	assert.NotEmpty(t, decision.ClarificationQuestions)
}

func TestEvaluateNeverFailsWhenCollaboratorsAreDown(t *testing.T) {
	source := &staticSource{err: errors.New("tracker timeout")}
	provider := &mapProvider{fail: true}
	engine := newTestEngine(source, provider, nil)

	decision := engine.Evaluate(context.Background(), datatypes.Task{
		ID: "t6", Description: "Build Slack MCP server integration for the agent runtime",
	})

	assert.Equal(t, datatypes.DecisionClarify, decision.Type)
	assert.Equal(t, 0.0, decision.Confidence)
	assert.Contains(t, decision.Tags, "error")
	assert.Contains(t, decision.Reasoning, "tracker timeout")
}

func TestEvaluateRecordsAuditTrail(t *testing.T) {
	sink := &recordingSink{}
	engine := newTestEngine(&staticSource{}, &mapProvider{}, sink)

	engine.Evaluate(context.Background(), datatypes.Task{
		ID: "t7", Description: "Buy curtain rods and door covers",
	})

	require.Len(t, sink.decisions, 1)
	assert.Equal(t, "t7", sink.tasks[0].ID)
	assert.Equal(t, datatypes.DecisionFilter, sink.decisions[0].Type)
	assert.False(t, sink.decisions[0].CreatedAt.IsZero())
}

func TestCreateIssueFromTask(t *testing.T) {
	source := &staticSource{}
	engine := newTestEngine(source, &mapProvider{}, nil)

	task := datatypes.Task{
		ID: "t8",
		Description: "Build the Slack MCP server integration with a really long trailing " +
			"explanation that should not end up in the title verbatim",
	}
	decision := datatypes.Decision{
		Type:          datatypes.DecisionAdd,
		MappedProject: "proj-slack",
		Tags:          []string{"mcp", "integration"},
	}

	issue, err := engine.CreateIssueFromTask(context.Background(), task, decision)
	require.NoError(t, err)
	assert.Equal(t, "issue-42", issue.ID)

	require.Len(t, source.issues, 1)
	filed := source.issues[0]
	assert.LessOrEqual(t, len(filed.Title), maxIssueTitleLength+3)
	assert.Equal(t, "proj-slack", filed.ProjectID)
	assert.Equal(t, []string{"mcp", "integration"}, filed.Labels)
	assert.Equal(t, task.Description, filed.Description)
}
