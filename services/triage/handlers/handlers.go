// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the triage pipeline over HTTP.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
)

// Evaluator runs the decision pipeline for one task.
type Evaluator interface {
	Evaluate(ctx context.Context, task datatypes.Task) datatypes.Decision
}

// HealthFunc reports current service health for the /health endpoint.
type HealthFunc func(ctx context.Context) datatypes.HealthStatus

// ReadyFunc reports whether the service can take traffic.
type ReadyFunc func(ctx context.Context) bool

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	engine Evaluator
	health HealthFunc
	ready  ReadyFunc
	logger *slog.Logger
}

// New creates the handler set. health and ready may be nil, in which
// case the endpoints report a static healthy state.
func New(engine Evaluator, health HealthFunc, ready ReadyFunc, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{engine: engine, health: health, ready: ready, logger: logger}
}

// Register attaches all routes to the router.
func (h *Handlers) Register(router *gin.Engine) {
	router.POST("/evaluate-task", h.EvaluateTask)
	router.GET("/health", h.Health)
	router.GET("/livez", h.Livez)
	router.GET("/readyz", h.Readyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// EvaluateTask handles POST /evaluate-task.
//
// Accepts a task request and returns the serialized Decision plus the
// processing latency. The engine absorbs internal failures, so this
// endpoint only rejects malformed requests.
func (h *Handlers) EvaluateTask(c *gin.Context) {
	var req datatypes.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Rejected malformed evaluate request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}

	task := req.ToTask()
	started := time.Now()
	decision := h.engine.Evaluate(c.Request.Context(), task)

	c.JSON(http.StatusOK, datatypes.EvaluationResponse{
		Decision:         decision,
		ProcessingTimeMs: float64(time.Since(started).Microseconds()) / 1000,
	})
}

// Health handles GET /health with cache and catalog detail.
func (h *Handlers) Health(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, datatypes.HealthStatus{Status: "healthy"})
		return
	}

	status := h.health(c.Request.Context())
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// Livez handles the liveness probe.
func (h *Handlers) Livez(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readyz handles the readiness probe.
func (h *Handlers) Readyz(c *gin.Context) {
	if h.ready != nil && !h.ready(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
