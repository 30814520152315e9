// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package embeddings generates and caches text embedding vectors.
//
// A Provider turns text into fixed-dimension vectors; the Cache in front
// of it deduplicates work across a fast in-process tier and the shared
// persistent store, keyed by the content hash of the normalized text.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Kind distinguishes what the embedding will be used for. Some providers
// tune vectors differently for stored documents versus lookup queries.
type Kind string

const (
	// KindDocument marks text that will be stored and matched against.
	KindDocument Kind = "document"

	// KindQuery marks text used to search against stored documents.
	KindQuery Kind = "query"
)

// ErrProviderUnavailable wraps embedding-provider failures after retries
// are exhausted.
var ErrProviderUnavailable = errors.New("embedding provider unavailable")

// Provider generates embedding vectors for text.
type Provider interface {
	// Embed returns the embedding for one text.
	Embed(ctx context.Context, text string, kind Kind) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts in input order.
	EmbedBatch(ctx context.Context, texts []string, kind Kind) ([][]float32, error)

	// Model names the model producing the vectors.
	Model() string

	// Dimension is the fixed vector dimension this provider produces.
	Dimension() int
}

// =============================================================================
// OpenAI Provider
// =============================================================================

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	// APIKey authenticates with the OpenAI API. If empty, the constructor
	// falls back to OPENAI_API_KEY and then /run/secrets/openai_api_key.
	APIKey string

	// Model is the embedding model name. Defaults to text-embedding-3-small.
	Model string

	// Dimension is the requested output dimension. Defaults to 768.
	Dimension int

	// Timeout bounds each API call. Defaults to 30s.
	Timeout time.Duration

	// Retries is how many times a failed call is retried with exponential
	// backoff before giving up. Defaults to 3.
	Retries int

	// Logger receives retry and failure events. Defaults to slog.Default().
	Logger *slog.Logger
}

// OpenAIProvider implements Provider backed by the OpenAI embeddings API.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	dimension int
	timeout   time.Duration
	retries   int
	logger    *slog.Logger
}

// retryBaseDelay is the first backoff step; each retry doubles it.
const retryBaseDelay = 500 * time.Millisecond

// NewOpenAIProvider creates the provider, resolving the API key from the
// config, the environment, or the container secret, in that order.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from Podman Secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}

	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 768
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	slog.Info("Initializing OpenAI embedding provider",
		"model", cfg.Model, "dimension", cfg.Dimension)
	return &OpenAIProvider{
		client:    openai.NewClient(apiKey),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		timeout:   cfg.Timeout,
		retries:   cfg.Retries,
		logger:    cfg.Logger,
	}, nil
}

// Model implements Provider.
func (p *OpenAIProvider) Model() string { return p.model }

// Dimension implements Provider.
func (p *OpenAIProvider) Dimension() int { return p.dimension }

// Embed implements Provider.
func (p *OpenAIProvider) Embed(ctx context.Context, text string, kind Kind) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text}, kind)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements Provider. Failed calls retry with exponential
// backoff until the retry budget or the context runs out.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string, kind Kind) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimension,
	}

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			p.logger.Warn("Retrying embedding request",
				"attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		resp, err := p.client.CreateEmbeddings(callCtx, req)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Data) != len(texts) {
			lastErr = fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
			continue
		}

		vectors := make([][]float32, len(texts))
		for _, item := range resp.Data {
			vectors[item.Index] = item.Embedding
		}
		return vectors, nil
	}

	p.logger.Error("Embedding request failed after retries",
		"retries", p.retries, "error", lastErr)
	return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}
