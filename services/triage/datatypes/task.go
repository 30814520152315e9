// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the data model shared across the triage
// pipeline: tasks, projects, matches, decisions, and the HTTP DTOs.
package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// Task is one incoming work item to evaluate.
//
// A Task is immutable once received and ephemeral: it lives only for the
// duration of one evaluation.
type Task struct {
	// ID identifies the task at its source.
	ID string `json:"id"`

	// Description is the short text describing the work.
	Description string `json:"description"`

	// Source names where the task came from ("slack", "email", "api", ...).
	Source string `json:"source"`

	// Metadata carries source-specific context, passed through untouched.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Priority is an optional source-assigned priority label.
	Priority string `json:"priority,omitempty"`
}

// TaskRequest is the request body of the evaluate endpoint.
type TaskRequest struct {
	Description string            `json:"description" binding:"required"`
	Source      string            `json:"source"`
	ID          string            `json:"id"`
	Metadata    map[string]string `json:"metadata"`
	Priority    string            `json:"priority"`
}

// ToTask converts the request into a Task, generating an id when the
// source did not provide one.
func (r TaskRequest) ToTask() Task {
	id := r.ID
	if id == "" {
		id = uuid.New().String()
	}
	source := r.Source
	if source == "" {
		source = "api"
	}
	return Task{
		ID:          id,
		Description: r.Description,
		Source:      source,
		Metadata:    r.Metadata,
		Priority:    r.Priority,
	}
}

// EvaluationResponse is the response body of the evaluate endpoint: the
// serialized Decision plus processing latency.
type EvaluationResponse struct {
	Decision
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

// HealthStatus is the response body of the health endpoint.
type HealthStatus struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	CatalogSize  int       `json:"catalog_size"`
	CacheValid   bool      `json:"cache_valid"`
	LastSync     time.Time `json:"last_sync,omitempty"`
	StoreHealthy bool      `json:"store_healthy"`
	TaxonomyVer  string    `json:"taxonomy_version"`
}
