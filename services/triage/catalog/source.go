// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog maintains the project catalog the scoring pipeline
// matches tasks against. Projects come from an external tracker, are
// cached in two tiers, and carry embeddings of their name and
// description.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
)

// ErrSourceUnavailable wraps tracker API failures.
var ErrSourceUnavailable = errors.New("project source unavailable")

// IssueRequest describes an issue to create in the tracker.
type IssueRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ProjectID   string   `json:"project_id,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// Issue is the tracker's record of a created issue.
type Issue struct {
	ID    string `json:"id"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title"`
}

// Source provides projects and accepts new issues.
type Source interface {
	// ListProjects returns the active projects from the tracker.
	ListProjects(ctx context.Context) ([]datatypes.Project, error)

	// CreateIssue files a new issue in the tracker.
	CreateIssue(ctx context.Context, req IssueRequest) (Issue, error)
}

// =============================================================================
// HTTP Source
// =============================================================================

// HTTPSourceConfig configures the HTTP tracker client.
type HTTPSourceConfig struct {
	// BaseURL is the tracker API root, e.g. "https://tracker.internal/api/v1".
	BaseURL string

	// Token is sent as a bearer token when non-empty.
	Token string

	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration
}

// HTTPSource is a Source backed by a JSON-over-HTTP tracker API.
type HTTPSource struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPSource creates the tracker client.
func NewHTTPSource(cfg HTTPSourceConfig) (*HTTPSource, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("tracker base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ListProjects implements Source.
func (s *HTTPSource) ListProjects(ctx context.Context) ([]datatypes.Project, error) {
	var payload struct {
		Projects []datatypes.Project `json:"projects"`
	}
	if err := s.do(ctx, http.MethodGet, "/projects", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Projects, nil
}

// CreateIssue implements Source.
func (s *HTTPSource) CreateIssue(ctx context.Context, req IssueRequest) (Issue, error) {
	var issue Issue
	if err := s.do(ctx, http.MethodPost, "/issues", req, &issue); err != nil {
		return Issue{}, err
	}
	return issue, nil
}

func (s *HTTPSource) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s returned %d: %s",
			ErrSourceUnavailable, method, path, resp.StatusCode, string(snippet))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
		}
	}
	return nil
}
