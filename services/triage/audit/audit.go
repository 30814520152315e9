// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package audit records evaluation outcomes for later review.
//
// Recording is fire-and-forget: the decision has already been made when
// the sink runs, so sink failures are logged and swallowed, never
// surfaced to the evaluation caller.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
)

// DecisionSink records one evaluation outcome.
type DecisionSink interface {
	// Record persists the decision made for a task. Implementations
	// absorb their own failures.
	Record(ctx context.Context, task datatypes.Task, decision datatypes.Decision)
}

// =============================================================================
// Store Sink
// =============================================================================

// Appender is the slice of the store the sink needs.
type Appender interface {
	AppendDecision(ctx context.Context, record datatypes.AuditRecord, ttl time.Duration) error
}

// StoreSink writes audit records to the persistent store with a
// retention TTL.
type StoreSink struct {
	store  Appender
	ttl    time.Duration
	logger *slog.Logger
}

// NewStoreSink creates the sink. A zero ttl defaults to seven days.
func NewStoreSink(store Appender, ttl time.Duration, logger *slog.Logger) *StoreSink {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreSink{store: store, ttl: ttl, logger: logger}
}

// Record implements DecisionSink.
func (s *StoreSink) Record(ctx context.Context, task datatypes.Task, decision datatypes.Decision) {
	record := datatypes.AuditRecord{
		ID:              uuid.NewString(),
		TaskID:          task.ID,
		TaskDescription: task.Description,
		Source:          task.Source,
		Decision:        decision,
		RecordedAt:      time.Now(),
	}
	if err := s.store.AppendDecision(ctx, record, s.ttl); err != nil {
		s.logger.Warn("Audit record write failed",
			"task_id", task.ID, "decision", decision.Type, "error", err)
	}
}

// =============================================================================
// Noop Sink
// =============================================================================

// NoopSink discards every record. Used when no store is configured.
type NoopSink struct{}

// Record implements DecisionSink.
func (NoopSink) Record(ctx context.Context, task datatypes.Task, decision datatypes.Decision) {}
