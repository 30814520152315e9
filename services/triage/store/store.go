// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store provides the persistent cache tier backed by BadgerDB.
//
// # Description
//
// BadgerDB gives the agent an embedded, low-latency document store shared
// across restarts. Four key namespaces are used:
//
//	project/<id>      cached catalog entries (range-scanned by cached_at)
//	embedding/<hash>  text embeddings keyed by content hash (native TTL)
//	decision/<id>     append-only audit records (native TTL)
//	state/agent       singleton agent-state document (merge on write)
//
// All values are JSON-encoded. Embedding and decision entries use Badger's
// entry TTL so expired values disappear without a sweeper; project entries
// carry cached_at and are filtered at read time so a stale catalog is never
// served as a hit.
//
// Store failures are expected to be absorbed by callers as cache misses:
// the evaluation path treats this tier as optional.
//
// # Thread Safety
//
// Store is safe for concurrent use; BadgerDB provides snapshot-isolated
// transactions.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
)

// ErrStoreUnavailable wraps persistent-tier failures. Callers degrade to
// cache-miss behavior instead of failing the evaluation.
var ErrStoreUnavailable = errors.New("persistent store unavailable")

// ErrDimensionMismatch is returned when a stored embedding does not match
// the deployment's fixed vector dimension. Treated as a cache miss.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Key namespaces. Keys are "<prefix><identifier>".
const (
	prefixProject   = "project/"
	prefixEmbedding = "embedding/"
	prefixDecision  = "decision/"
	keyAgentState   = "state/agent"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds configuration for the Badger-backed store.
type Config struct {
	// Path is the directory for database files. Required unless InMemory.
	Path string

	// InMemory enables in-memory mode (no disk persistence). For testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. If nil, Badger's
	// internal logging is disabled.
	Logger *slog.Logger

	// GCInterval is how often value-log garbage collection runs.
	// Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio before GC rewrites a
	// value log file.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults: sync writes on, GC every
// five minutes at a 0.5 discard ratio.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests: in-memory, no sync,
// GC disabled.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// =============================================================================
// Store
// =============================================================================

// EmbeddingRecord is the stored form of one cached embedding.
type EmbeddingRecord struct {
	// Vector is the embedding itself.
	Vector []float32 `json:"vector"`

	// Dimension is len(Vector), stored explicitly so reads can reject
	// records produced under a different deployment dimension.
	Dimension int `json:"dimension"`

	// Model names the provider model that produced the vector.
	Model string `json:"model"`

	// StoredAt is when the record was written.
	StoredAt time.Time `json:"stored_at"`
}

// AgentState is the singleton state document describing this agent.
type AgentState struct {
	LastInit      time.Time `json:"last_init,omitempty"`
	LastSync      time.Time `json:"last_sync,omitempty"`
	ProjectsCount int       `json:"projects_count"`
	HealthStatus  string    `json:"health_status,omitempty"`
	Version       string    `json:"version,omitempty"`
}

// Store is the Badger-backed persistent tier.
type Store struct {
	db       *badger.DB
	stopGC   chan struct{}
	doneGC   chan struct{}
	logger   *slog.Logger
	inMemory bool
}

// Open creates and opens the store.
//
// # Inputs
//
//   - cfg: Store configuration. Path is required unless InMemory is true.
//
// # Outputs
//
//   - *Store: The opened store. Caller must call Close() when done.
//   - error: Non-nil if the path is invalid or the database cannot open.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	s := &Store{
		db:       db,
		logger:   cfg.Logger,
		inMemory: cfg.InMemory,
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return s, nil
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
		s.stopGC = nil
	}
	return s.db.Close()
}

// Healthy reports whether the store accepts reads.
func (s *Store) Healthy() bool {
	return !s.db.IsClosed()
}

// =============================================================================
// Projects Namespace
// =============================================================================

// PutProjects upserts catalog entries. Writes are idempotent per project
// id; the whole batch commits in one transaction.
func (s *Store) PutProjects(ctx context.Context, projects []datatypes.Project) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, project := range projects {
			data, err := json.Marshal(project)
			if err != nil {
				return fmt.Errorf("marshal project %s: %w", project.ID, err)
			}
			if err := txn.Set([]byte(prefixProject+project.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: put projects: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ProjectsCachedSince returns every cached project with CachedAt at or
// after the cutoff. Entries cached before the cutoff are skipped, never
// returned as hits.
func (s *Store) ProjectsCachedSince(ctx context.Context, cutoff time.Time) ([]datatypes.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var projects []datatypes.Project
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixProject)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var project datatypes.Project
				if err := json.Unmarshal(val, &project); err != nil {
					// Skip undecodable entries rather than failing the scan
					return nil
				}
				if !project.CachedAt.Before(cutoff) {
					projects = append(projects, project)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan projects: %v", ErrStoreUnavailable, err)
	}
	return projects, nil
}

// GetProject returns one cached project by id.
func (s *Store) GetProject(ctx context.Context, id string) (datatypes.Project, bool, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.Project{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var project datatypes.Project
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixProject + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &project); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return datatypes.Project{}, false, fmt.Errorf("%w: get project: %v", ErrStoreUnavailable, err)
	}
	return project, found, nil
}

// =============================================================================
// Embeddings Namespace
// =============================================================================

// PutEmbedding stores an embedding under its content hash with the given
// TTL. Badger drops the entry once the TTL elapses.
func (s *Store) PutEmbedding(ctx context.Context, hash string, record EmbeddingRecord, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal embedding record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(prefixEmbedding+hash), data).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("%w: put embedding: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetEmbedding returns the cached embedding for a content hash.
//
// A record whose dimension does not match wantDim is a contract violation
// from an older deployment; it is reported as ErrDimensionMismatch and the
// caller regenerates.
func (s *Store) GetEmbedding(ctx context.Context, hash string, wantDim int) (EmbeddingRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return EmbeddingRecord{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var record EmbeddingRecord
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixEmbedding + hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &record); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return EmbeddingRecord{}, false, fmt.Errorf("%w: get embedding: %v", ErrStoreUnavailable, err)
	}
	if found && wantDim > 0 && record.Dimension != wantDim {
		return EmbeddingRecord{}, false, fmt.Errorf("%w: stored %d, want %d",
			ErrDimensionMismatch, record.Dimension, wantDim)
	}
	return record, found, nil
}

// =============================================================================
// Decisions Namespace
// =============================================================================

// AppendDecision writes an audit record with the given retention TTL.
// Records are append-only: keys are unique per record id.
func (s *Store) AppendDecision(ctx context.Context, record datatypes.AuditRecord, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(prefixDecision+record.ID), data).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("%w: append decision: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ListDecisions returns all retained audit records for a task id. An empty
// taskID returns every retained record.
func (s *Store) ListDecisions(ctx context.Context, taskID string) ([]datatypes.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var records []datatypes.AuditRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixDecision)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record datatypes.AuditRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return nil
				}
				if taskID == "" || record.TaskID == taskID {
					records = append(records, record)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list decisions: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}

// =============================================================================
// Agent State Singleton
// =============================================================================

// GetAgentState reads the singleton agent-state document. Returns a zero
// value if none has been written yet.
func (s *Store) GetAgentState(ctx context.Context) (AgentState, error) {
	if err := ctx.Err(); err != nil {
		return AgentState{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var state AgentState
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyAgentState))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if err != nil {
		return AgentState{}, fmt.Errorf("%w: get agent state: %v", ErrStoreUnavailable, err)
	}
	return state, nil
}

// UpdateAgentState merges the given mutation into the stored state inside
// one transaction (read-modify-write).
func (s *Store) UpdateAgentState(ctx context.Context, mutate func(*AgentState)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var state AgentState
		item, err := txn.Get([]byte(keyAgentState))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &state)
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		mutate(&state)

		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyAgentState), data)
	})
	if err != nil {
		return fmt.Errorf("%w: update agent state: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// =============================================================================
// Garbage Collection
// =============================================================================

// runGC periodically triggers value-log garbage collection.
func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.doneGC)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.logger != nil {
				// ErrNoRewrite means no GC was needed, not an error
				s.logger.Warn("badger value log GC error",
					slog.String("error", err.Error()))
			}
		}
	}
}
