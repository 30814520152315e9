// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/semantic-triage/services/triage/observability"
	"github.com/AleutianAI/semantic-triage/services/triage/store"
	"github.com/AleutianAI/semantic-triage/services/triage/textnorm"
)

// PersistentTier is the slice of the store the cache needs. Nil disables
// the persistent tier.
type PersistentTier interface {
	GetEmbedding(ctx context.Context, hash string, wantDim int) (store.EmbeddingRecord, bool, error)
	PutEmbedding(ctx context.Context, hash string, record store.EmbeddingRecord, ttl time.Duration) error
}

// CacheKey returns the content hash used as the cache key for a text.
// Texts that normalize identically share one key.
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(textnorm.Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// CacheConfig configures the two-tier embedding cache.
type CacheConfig struct {
	// Provider generates vectors on cache misses. Required.
	Provider Provider

	// Store is the persistent tier. Optional; nil keeps the cache
	// in-process only.
	Store PersistentTier

	// TTL is the persistent-tier retention for cached embeddings.
	TTL time.Duration

	// BatchSize caps how many texts go to the provider per call.
	BatchSize int

	// Logger receives tier-failure warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Cache deduplicates embedding generation across an in-process map and
// the persistent store.
//
// # Thread Safety
//
// Safe for concurrent use. The memory tier is guarded by a RWMutex;
// concurrent misses for the same key may both call the provider, which is
// harmless since writes are idempotent per key.
type Cache struct {
	provider  Provider
	store     PersistentTier
	ttl       time.Duration
	batchSize int
	logger    *slog.Logger

	mu     sync.RWMutex
	memory map[string][]float32
}

// NewCache creates the cache.
func NewCache(cfg CacheConfig) *Cache {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache{
		provider:  cfg.Provider,
		store:     cfg.Store,
		ttl:       cfg.TTL,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger,
		memory:    make(map[string][]float32),
	}
}

// GetOrCreate returns the embedding for one text, generating it only if
// neither tier has it.
func (c *Cache) GetOrCreate(ctx context.Context, text string, kind Kind) ([]float32, error) {
	vectors, err := c.GetOrCreateMany(ctx, []string{text}, kind)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GetOrCreateMany returns embeddings for the texts in input order. Only
// texts missing from both tiers are sent to the provider, chunked by the
// configured batch size. Persistent-tier failures degrade to misses.
func (c *Cache) GetOrCreateMany(ctx context.Context, texts []string, kind Kind) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIndexes []int

	for i, text := range texts {
		keys[i] = CacheKey(text)
		if vec, ok := c.fromMemory(keys[i]); ok {
			observability.RecordCacheRequest("embeddings", "memory", "hit")
			vectors[i] = vec
			continue
		}
		observability.RecordCacheRequest("embeddings", "memory", "miss")
		if vec, ok := c.fromStore(ctx, keys[i]); ok {
			observability.RecordCacheRequest("embeddings", "store", "hit")
			vectors[i] = vec
			c.toMemory(keys[i], vec)
			continue
		}
		observability.RecordCacheRequest("embeddings", "store", "miss")
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	for start := 0; start < len(missTexts); start += c.batchSize {
		end := min(start+c.batchSize, len(missTexts))
		generated, err := c.provider.EmbedBatch(ctx, missTexts[start:end], kind)
		if err != nil {
			observability.RecordProviderCall("error")
			return nil, err
		}
		observability.RecordProviderCall("success")
		for j, vec := range generated {
			i := missIndexes[start+j]
			vectors[i] = vec
			c.toMemory(keys[i], vec)
			c.toStore(ctx, keys[i], vec)
		}
	}

	return vectors, nil
}

// Size returns the number of entries in the memory tier.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}

func (c *Cache) fromMemory(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.memory[key]
	return vec, ok
}

func (c *Cache) toMemory(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory[key] = vec
}

func (c *Cache) fromStore(ctx context.Context, key string) ([]float32, bool) {
	if c.store == nil {
		return nil, false
	}
	record, ok, err := c.store.GetEmbedding(ctx, key, c.provider.Dimension())
	if err != nil {
		c.logger.Warn("Embedding store read failed, treating as miss",
			"key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return record.Vector, true
}

func (c *Cache) toStore(ctx context.Context, key string, vec []float32) {
	if c.store == nil {
		return
	}
	record := store.EmbeddingRecord{
		Vector:    vec,
		Dimension: len(vec),
		Model:     c.provider.Model(),
		StoredAt:  time.Now(),
	}
	if err := c.store.PutEmbedding(ctx, key, record, c.ttl); err != nil {
		c.logger.Warn("Embedding store write failed", "key", key, "error", err)
	}
}
