// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
	"github.com/AleutianAI/semantic-triage/services/triage/embeddings"
	"github.com/AleutianAI/semantic-triage/services/triage/observability"
	"github.com/AleutianAI/semantic-triage/services/triage/store"
)

// refreshKey is the singleflight key for catalog refreshes. The catalog
// is a singleton, so one key suffices.
const refreshKey = "projects"

// PersistentTier is the slice of the store the catalog needs. Nil keeps
// the catalog in-process only.
type PersistentTier interface {
	PutProjects(ctx context.Context, projects []datatypes.Project) error
	ProjectsCachedSince(ctx context.Context, cutoff time.Time) ([]datatypes.Project, error)
	UpdateAgentState(ctx context.Context, mutate func(*store.AgentState)) error
}

// CacheConfig configures the project cache.
type CacheConfig struct {
	// Source lists projects from the tracker. Required.
	Source Source

	// Store is the persistent tier. Optional.
	Store PersistentTier

	// Embeddings generates project embeddings. Required.
	Embeddings *embeddings.Cache

	// TTL is how long a fetched catalog stays fresh in both tiers.
	TTL time.Duration

	// Logger receives refresh and degradation events.
	Logger *slog.Logger
}

// Cache is the two-tier project catalog.
//
// # Description
//
// Reads check the in-process snapshot first, then the persistent store,
// then fall back to the tracker. Concurrent refreshes are deduplicated
// with singleflight so a cold start under load makes exactly one tracker
// call. Every project leaving the cache carries an embedding.
//
// # Thread Safety
//
// Safe for concurrent use.
type Cache struct {
	source   Source
	store    PersistentTier
	embedder *embeddings.Cache
	ttl      time.Duration
	logger   *slog.Logger

	flight singleflight.Group

	mu        sync.RWMutex
	snapshot  []datatypes.Project
	fetchedAt time.Time
	lastSync  time.Time
}

// NewCache creates the catalog cache.
func NewCache(cfg CacheConfig) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache{
		source:   cfg.Source,
		store:    cfg.Store,
		embedder: cfg.Embeddings,
		ttl:      cfg.TTL,
		logger:   cfg.Logger,
	}
}

// GetOrRefresh returns the current catalog, refreshing it if the
// in-process snapshot is older than the TTL.
//
// Concurrent callers during a refresh share one result. The returned
// slice must not be mutated.
func (c *Cache) GetOrRefresh(ctx context.Context) ([]datatypes.Project, error) {
	if projects, ok := c.fresh(); ok {
		observability.RecordCacheRequest("projects", "memory", "hit")
		return projects, nil
	}
	observability.RecordCacheRequest("projects", "memory", "miss")

	result, err, _ := c.flight.Do(refreshKey, func() (interface{}, error) {
		// A racing caller may have refreshed while we queued
		if projects, ok := c.fresh(); ok {
			return projects, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]datatypes.Project), nil
}

// ForceRefresh bypasses both cache tiers and reloads from the tracker.
func (c *Cache) ForceRefresh(ctx context.Context) ([]datatypes.Project, error) {
	result, err, _ := c.flight.Do(refreshKey, func() (interface{}, error) {
		return c.fromSource(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]datatypes.Project), nil
}

// Size returns the number of projects in the current snapshot.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshot)
}

// LastSync returns when the catalog was last loaded from the tracker.
// Zero if only cached tiers have been used.
func (c *Cache) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}

// Fresh reports whether the in-process snapshot is within the TTL.
func (c *Cache) Fresh() bool {
	_, ok := c.fresh()
	return ok
}

// CreateIssue files an issue with the tracker.
func (c *Cache) CreateIssue(ctx context.Context, req IssueRequest) (Issue, error) {
	return c.source.CreateIssue(ctx, req)
}

func (c *Cache) fresh() ([]datatypes.Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil || time.Since(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.snapshot, true
}

// refresh tries the persistent tier before going to the tracker.
func (c *Cache) refresh(ctx context.Context) ([]datatypes.Project, error) {
	if c.store != nil {
		cutoff := time.Now().Add(-c.ttl)
		projects, err := c.store.ProjectsCachedSince(ctx, cutoff)
		if err != nil {
			c.logger.Warn("Project store read failed, falling back to tracker", "error", err)
		} else if len(projects) > 0 {
			observability.RecordCacheRequest("projects", "store", "hit")
			projects, err = c.ensureEmbeddings(ctx, projects)
			if err != nil {
				return nil, err
			}
			c.install(projects, false)
			c.logger.Debug("Catalog loaded from persistent tier", "projects", len(projects))
			return projects, nil
		}
		observability.RecordCacheRequest("projects", "store", "miss")
	}
	return c.fromSource(ctx)
}

// fromSource loads the catalog from the tracker and write-through caches it.
func (c *Cache) fromSource(ctx context.Context) ([]datatypes.Project, error) {
	projects, err := c.source.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range projects {
		projects[i].CachedAt = now
	}

	projects, err = c.ensureEmbeddings(ctx, projects)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if err := c.store.PutProjects(ctx, projects); err != nil {
			c.logger.Warn("Project store write failed", "error", err)
		}
		if err := c.store.UpdateAgentState(ctx, func(state *store.AgentState) {
			state.LastSync = now
			state.ProjectsCount = len(projects)
		}); err != nil {
			c.logger.Warn("Agent state update failed", "error", err)
		}
	}

	c.install(projects, true)
	c.logger.Info("Catalog refreshed from tracker", "projects", len(projects))
	return projects, nil
}

// ensureEmbeddings fills in missing project embeddings. Only projects
// whose embeddings were generated here are written back to the store.
func (c *Cache) ensureEmbeddings(ctx context.Context, projects []datatypes.Project) ([]datatypes.Project, error) {
	var missTexts []string
	var missIndexes []int
	for i, project := range projects {
		if len(project.Embedding) == 0 {
			missTexts = append(missTexts, project.EmbeddingText())
			missIndexes = append(missIndexes, i)
		}
	}
	if len(missTexts) == 0 {
		return projects, nil
	}

	vectors, err := c.embedder.GetOrCreateMany(ctx, missTexts, embeddings.KindDocument)
	if err != nil {
		return nil, err
	}

	updated := make([]datatypes.Project, 0, len(missIndexes))
	for j, i := range missIndexes {
		projects[i].Embedding = vectors[j]
		updated = append(updated, projects[i])
	}

	if c.store != nil {
		if err := c.store.PutProjects(ctx, updated); err != nil {
			c.logger.Warn("Embedded project write failed", "error", err)
		}
	}
	return projects, nil
}

func (c *Cache) install(projects []datatypes.Project, synced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = projects
	c.fetchedAt = time.Now()
	if synced {
		c.lastSync = c.fetchedAt
	}
	observability.SetCatalogSize(len(projects))
}
