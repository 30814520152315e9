// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// Project is one entry of the known-project catalog.
//
// The canonical in-memory collection is owned by the project cache;
// Projects are mutated only by cache-refresh operations (setting Embedding
// and CachedAt). The persistent tier is shared between agent instances, so
// writes are idempotent per project id (last write wins).
type Project struct {
	// ID is the project identifier at the catalog source.
	ID string `json:"id"`

	// Name is the project title.
	Name string `json:"name"`

	// Description is the optional longer project description.
	Description string `json:"description,omitempty"`

	// Status is the lifecycle state reported by the source.
	Status string `json:"status,omitempty"`

	// Embedding is the project's vector. Nil until computed. Every
	// embedding in the system shares the deployment's fixed dimension.
	Embedding []float32 `json:"embedding,omitempty"`

	// AlignmentScore is an optional precomputed domain-fit score.
	AlignmentScore float64 `json:"alignment_score,omitempty"`

	// Domain is the workspace domain the project belongs to, if known.
	Domain string `json:"domain,omitempty"`

	// CachedAt records when this entry was last written to a cache tier.
	CachedAt time.Time `json:"cached_at"`
}

// EmbeddingText is the text a project is embedded from: the name, with the
// description appended as "{name}: {description}" when present.
func (p Project) EmbeddingText() string {
	if p.Description == "" {
		return p.Name
	}
	return p.Name + ": " + p.Description
}

// Match pairs a catalog project with its similarity to the task under
// evaluation. Matches are ephemeral: they exist only inside one evaluation
// and are never persisted.
type Match struct {
	// Project is the matched catalog entry.
	Project Project

	// Similarity is the cosine similarity in [0,1].
	Similarity float64

	// Reason is a human-readable note on why the project matched.
	Reason string
}
