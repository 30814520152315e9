// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
)

type stubEvaluator struct {
	lastTask datatypes.Task
	decision datatypes.Decision
}

func (s *stubEvaluator) Evaluate(ctx context.Context, task datatypes.Task) datatypes.Decision {
	s.lastTask = task
	return s.decision
}

func newTestRouter(engine Evaluator, health HealthFunc, ready ReadyFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	New(engine, health, ready, nil).Register(router)
	return router
}

func TestEvaluateTaskReturnsDecision(t *testing.T) {
	stub := &stubEvaluator{decision: datatypes.Decision{
		Type:       datatypes.DecisionAdd,
		Confidence: 0.92,
		Reasoning:  "aligned",
	}}
	router := newTestRouter(stub, nil, nil)

	body := `{"description": "Build Slack MCP server integration", "source": "slack"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/evaluate-task", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.EvaluationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, datatypes.DecisionAdd, resp.Decision.Type)
	assert.InDelta(t, 0.92, resp.Decision.Confidence, 1e-9)
	assert.GreaterOrEqual(t, resp.ProcessingTimeMs, 0.0)

	assert.Equal(t, "Build Slack MCP server integration", stub.lastTask.Description)
	assert.Equal(t, "slack", stub.lastTask.Source)
	assert.NotEmpty(t, stub.lastTask.ID, "missing id should be generated")
}

func TestEvaluateTaskRejectsMissingDescription(t *testing.T) {
	router := newTestRouter(&stubEvaluator{}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/evaluate-task", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthReportsStatus(t *testing.T) {
	health := func(ctx context.Context) datatypes.HealthStatus {
		return datatypes.HealthStatus{Status: "healthy", CatalogSize: 7, CacheValid: true}
	}
	router := newTestRouter(&stubEvaluator{}, health, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var status datatypes.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 7, status.CatalogSize)
	assert.True(t, status.CacheValid)
}

func TestHealthDegradedReturns503(t *testing.T) {
	health := func(ctx context.Context) datatypes.HealthStatus {
		return datatypes.HealthStatus{Status: "degraded"}
	}
	router := newTestRouter(&stubEvaluator{}, health, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProbes(t *testing.T) {
	ready := false
	router := newTestRouter(&stubEvaluator{}, nil, func(ctx context.Context) bool { return ready })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = true
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
