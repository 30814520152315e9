// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
	"github.com/AleutianAI/semantic-triage/services/triage/store"
)

type failingAppender struct{}

func (failingAppender) AppendDecision(ctx context.Context, record datatypes.AuditRecord, ttl time.Duration) error {
	return errors.New("disk gone")
}

func TestStoreSinkWritesRecord(t *testing.T) {
	persistent, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	defer persistent.Close()

	sink := NewStoreSink(persistent, time.Hour, nil)
	ctx := context.Background()

	task := datatypes.Task{ID: "task-1", Description: "Build Slack integration", Source: "api"}
	decision := datatypes.Decision{Type: datatypes.DecisionAdd, Confidence: 0.9}
	sink.Record(ctx, task, decision)

	records, err := persistent.ListDecisions(ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Build Slack integration", records[0].TaskDescription)
	assert.Equal(t, datatypes.DecisionAdd, records[0].Decision.Type)
	assert.NotEmpty(t, records[0].ID)
}

func TestStoreSinkAbsorbsFailures(t *testing.T) {
	sink := NewStoreSink(failingAppender{}, time.Hour, nil)

	// Must not panic or surface the error
	sink.Record(context.Background(), datatypes.Task{ID: "t"}, datatypes.Decision{Type: datatypes.DecisionFilter})
}

func TestNoopSink(t *testing.T) {
	NoopSink{}.Record(context.Background(), datatypes.Task{}, datatypes.Decision{})
}
