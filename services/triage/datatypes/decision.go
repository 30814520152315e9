// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// DecisionType is one of the four terminal outcomes of an evaluation.
type DecisionType string

const (
	// DecisionAdd recommends creating new work for the task.
	DecisionAdd DecisionType = "add"

	// DecisionFilter recommends discarding the task as out of scope.
	DecisionFilter DecisionType = "filter"

	// DecisionConsolidate recommends merging the task into an existing
	// project rather than creating a duplicate.
	DecisionConsolidate DecisionType = "consolidate"

	// DecisionClarify asks the submitter for more information.
	DecisionClarify DecisionType = "clarify"
)

// Valid reports whether t is one of the four decision outcomes.
func (t DecisionType) Valid() bool {
	switch t {
	case DecisionAdd, DecisionFilter, DecisionConsolidate, DecisionClarify:
		return true
	}
	return false
}

// Decision is the immutable result of one task evaluation.
//
// Exactly one Decision is created per evaluation and handed to the audit
// sink. Evaluation always produces a Decision; internal failures surface as
// a clarify decision with the "error" tag, never as an error to the caller.
type Decision struct {
	// Type is the decision outcome.
	Type DecisionType `json:"decision"`

	// Confidence is the engine's confidence in the outcome, in [0,1].
	Confidence float64 `json:"confidence"`

	// AlignmentScore is the weighted domain-fit score, in [0,1].
	AlignmentScore float64 `json:"alignment_score"`

	// MappedProject is the most related existing project id, when known.
	// For consolidate decisions it names the merge target; for add
	// decisions it is informational only.
	MappedProject string `json:"mapped_project,omitempty"`

	// ConsolidateWith lists candidate projects to merge into, best first.
	ConsolidateWith []string `json:"consolidate_with,omitempty"`

	// Reasoning is the human-readable rationale for the outcome.
	Reasoning string `json:"reasoning"`

	// SuggestedAction tells the caller what to do next.
	SuggestedAction string `json:"suggested_action"`

	// Tags categorize the task (domain tag, tech tags, or outcome tags
	// like "not_in_scope" and "error").
	Tags []string `json:"tags,omitempty"`

	// ClarificationQuestions are follow-up questions for clarify
	// decisions, at most three.
	ClarificationQuestions []string `json:"clarification_questions,omitempty"`

	// CreatedAt is when the decision was made.
	CreatedAt time.Time `json:"created_at"`
}

// AuditRecord is the durable form of a Decision persisted by the audit
// sink, joined with the task it was made for.
type AuditRecord struct {
	// ID is the generated identifier of the audit entry.
	ID string `json:"id"`

	// TaskID identifies the evaluated task.
	TaskID string `json:"task_id"`

	// TaskDescription is the original description, kept for review.
	TaskDescription string `json:"task_description"`

	// Source names where the task came from.
	Source string `json:"source"`

	// Decision is the outcome that was returned to the caller.
	Decision Decision `json:"decision"`

	// RecordedAt is when the record was written.
	RecordedAt time.Time `json:"recorded_at"`
}
