// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package triage provides the semantic task triage service.
//
// # Description
//
// The service classifies incoming work items against a catalog of
// existing projects and decides whether to add new work, filter it out,
// consolidate it with an existing project, or ask for clarification.
// This package wires the pipeline together: embedding provider, two-tier
// caches, scoring model, decision engine, audit sink, HTTP routing, and
// observability.
//
// # Usage
//
//	cfg := triage.Config{Port: 12230, TrackerURL: "https://tracker/api/v1"}
//	svc, err := triage.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/semantic-triage/pkg/logging"
	"github.com/AleutianAI/semantic-triage/services/triage/audit"
	"github.com/AleutianAI/semantic-triage/services/triage/catalog"
	"github.com/AleutianAI/semantic-triage/services/triage/config"
	"github.com/AleutianAI/semantic-triage/services/triage/datatypes"
	"github.com/AleutianAI/semantic-triage/services/triage/embeddings"
	"github.com/AleutianAI/semantic-triage/services/triage/engine"
	"github.com/AleutianAI/semantic-triage/services/triage/handlers"
	"github.com/AleutianAI/semantic-triage/services/triage/observability"
	"github.com/AleutianAI/semantic-triage/services/triage/store"
	"github.com/AleutianAI/semantic-triage/services/triage/taxonomy"
)

// Version is the service version reported by /health.
const Version = "0.3.0"

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the triage service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine

	// Evaluate runs the decision pipeline for one task directly,
	// bypassing HTTP. Used by the CLI evaluate command.
	Evaluate(ctx context.Context, task datatypes.Task) datatypes.Decision

	// Close releases resources without running the server.
	Close()
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds triage service configuration.
//
// All fields are optional except TrackerURL; defaults are applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12230
	Port int

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// TrackerURL is the project tracker API root. Required for serve;
	// leave empty only when a Source is injected for testing.
	TrackerURL string

	// TrackerToken authenticates tracker calls. Optional.
	TrackerToken string

	// StorePath is the BadgerDB directory for the persistent cache tier.
	// If empty, the service runs with in-process caches only.
	StorePath string

	// EmbeddingModel overrides the embedding model name.
	EmbeddingModel string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "triage-otel-collector:4317"
	OTelEndpoint string

	// EnableTracing turns on OTLP trace export. Default: false
	EnableTracing bool

	// DisableMetrics turns off Prometheus metric registration.
	DisableMetrics bool

	// AutoCreateIssues files a tracker issue automatically after every
	// Add decision. Default: false (decisions are advisory).
	AutoCreateIssues bool

	// TaxonomyPath loads a workspace taxonomy from YAML. If empty, the
	// compiled-in default profile is used.
	TaxonomyPath string

	// LogDir enables JSON file logging. Optional.
	LogDir string

	// LogLevel sets the minimum log level.
	LogLevel logging.Level

	// Pipeline holds the scoring thresholds, weights, and TTLs. Zero
	// value uses config.Default().
	Pipeline config.Config

	// Source overrides the tracker client. For testing.
	Source catalog.Source

	// Provider overrides the embedding provider. For testing.
	Provider embeddings.Provider
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
type service struct {
	config config.Config
	opts   Config

	logger   *logging.Logger
	router   *gin.Engine
	store    *store.Store
	embedder *embeddings.Cache
	catalog  *catalog.Cache
	engine   *engine.Engine
	tax      taxonomy.Taxonomy

	tracerCleanup func(context.Context)
	startedAt     time.Time
}

// New creates a triage Service with the given configuration.
//
// # Description
//
// New initializes all components in dependency order:
//  1. Applies defaults and validates the pipeline configuration (fatal
//     on invalid weights or thresholds)
//  2. Sets up logging, tracing, and metrics
//  3. Opens the persistent store (degrades to in-process caches on
//     failure)
//  4. Loads the taxonomy profile
//  5. Creates the embedding provider, caches, engine, and routes
//
// # Outputs
//
//   - Service: Ready-to-run triage service
//   - error: Non-nil if configuration is invalid or a required
//     collaborator cannot be constructed
func New(cfg Config) (Service, error) {
	cfg = applyConfigDefaults(cfg)

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline configuration: %w", err)
	}

	s := &service{
		config:    cfg.Pipeline,
		opts:      cfg,
		startedAt: time.Now(),
	}

	s.logger = logging.New(logging.Config{
		Level:   cfg.LogLevel,
		LogDir:  cfg.LogDir,
		Service: "triage",
		JSON:    cfg.LogDir != "",
	})
	slog.SetDefault(s.logger.Slog())

	if cfg.EnableTracing {
		cleanup, err := initTracer(cfg.OTelEndpoint)
		if err != nil {
			s.logger.Warn("Tracer initialization failed, continuing without tracing", "error", err)
		} else {
			s.tracerCleanup = cleanup
		}
	}

	if !cfg.DisableMetrics {
		observability.InitMetrics()
		s.logger.Info("Initialized Prometheus metrics")
	}

	if err := s.initStore(); err != nil {
		s.logger.Warn("Persistent store unavailable, running with in-process caches only",
			"path", cfg.StorePath, "error", err)
	}

	if err := s.initTaxonomy(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	if err := s.initPipeline(); err != nil {
		s.cleanup()
		return nil, err
	}

	s.initRouter()

	if s.store != nil {
		err := s.store.UpdateAgentState(context.Background(), func(state *store.AgentState) {
			state.LastInit = time.Now()
			state.Version = Version
			state.HealthStatus = "healthy"
		})
		if err != nil {
			s.logger.Warn("Agent state init write failed", "error", err)
		}
	}

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.opts.Port)
	s.logger.Info("Starting triage server",
		"port", s.opts.Port, "version", Version, "store", s.store != nil)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Evaluate implements Service. With AutoCreateIssues enabled, an Add
// decision also files a tracker issue; a filing failure is logged but
// does not change the decision.
func (s *service) Evaluate(ctx context.Context, task datatypes.Task) datatypes.Decision {
	decision := s.engine.Evaluate(ctx, task)

	if s.opts.AutoCreateIssues && decision.Type == datatypes.DecisionAdd {
		if _, err := s.engine.CreateIssueFromTask(ctx, task, decision); err != nil {
			s.logger.Warn("Auto issue creation failed",
				"task_id", task.ID, "error", err)
		}
	}
	return decision
}

// Close releases resources without running the server.
func (s *service) Close() {
	s.cleanup()
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12230
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "triage-otel-collector:4317"
	}
	if cfg.Pipeline.EmbeddingDimension == 0 {
		cfg.Pipeline = config.Default()
	}
	return cfg
}

func (s *service) initStore() error {
	if s.opts.StorePath == "" {
		return nil
	}
	st, err := store.Open(store.DefaultConfig(s.opts.StorePath))
	if err != nil {
		return err
	}
	s.store = st
	s.logger.Info("Persistent store opened", "path", s.opts.StorePath)
	return nil
}

func (s *service) initTaxonomy() error {
	if s.opts.TaxonomyPath == "" {
		s.tax = taxonomy.Default()
		return nil
	}
	tax, err := taxonomy.Load(s.opts.TaxonomyPath)
	if err != nil {
		return err
	}
	s.tax = tax
	s.logger.Info("Taxonomy profile loaded",
		"path", s.opts.TaxonomyPath, "version", tax.Version)
	return nil
}

func (s *service) initPipeline() error {
	provider := s.opts.Provider
	if provider == nil {
		p, err := embeddings.NewOpenAIProvider(embeddings.OpenAIConfig{
			Model:     s.opts.EmbeddingModel,
			Dimension: s.config.EmbeddingDimension,
			Timeout:   s.config.ProviderTimeout,
			Retries:   s.config.ProviderRetries,
			Logger:    s.logger.Slog(),
		})
		if err != nil {
			return fmt.Errorf("create embedding provider: %w", err)
		}
		provider = p
	}

	source := s.opts.Source
	if source == nil {
		src, err := catalog.NewHTTPSource(catalog.HTTPSourceConfig{
			BaseURL: s.opts.TrackerURL,
			Token:   s.opts.TrackerToken,
			Timeout: s.config.ProviderTimeout,
		})
		if err != nil {
			return fmt.Errorf("create tracker client: %w", err)
		}
		source = src
	}

	var embedStore embeddings.PersistentTier
	var catalogStore catalog.PersistentTier
	var sink audit.DecisionSink = audit.NoopSink{}
	if s.store != nil {
		embedStore = s.store
		catalogStore = s.store
		sink = audit.NewStoreSink(s.store, s.config.TTL.Decisions, s.logger.Slog())
	}

	s.embedder = embeddings.NewCache(embeddings.CacheConfig{
		Provider:  provider,
		Store:     embedStore,
		TTL:       s.config.TTL.Embeddings,
		BatchSize: s.config.EmbeddingBatchSize,
		Logger:    s.logger.Slog(),
	})

	s.catalog = catalog.NewCache(catalog.CacheConfig{
		Source:     source,
		Store:      catalogStore,
		Embeddings: s.embedder,
		TTL:        s.config.TTL.Projects,
		Logger:     s.logger.Slog(),
	})

	s.engine = engine.New(engine.Deps{
		Config:     s.config,
		Taxonomy:   s.tax,
		Embeddings: s.embedder,
		Catalog:    s.catalog,
		Audit:      sink,
		Logger:     s.logger.Slog(),
	})

	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.opts.GinMode != "" {
		gin.SetMode(s.opts.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("triage-service"))

	handlers.New(s, s.healthStatus, s.ready, s.logger.Slog()).Register(s.router)
}

// healthStatus builds the /health payload.
func (s *service) healthStatus(ctx context.Context) datatypes.HealthStatus {
	status := datatypes.HealthStatus{
		Status:      "healthy",
		Version:     Version,
		CatalogSize: s.catalog.Size(),
		CacheValid:  s.catalog.Fresh(),
		LastSync:    s.catalog.LastSync(),
		TaxonomyVer: s.tax.Version,
	}
	if s.store != nil {
		status.StoreHealthy = s.store.Healthy()
		if !status.StoreHealthy {
			status.Status = "degraded"
		}
	}
	return status
}

// ready reports readiness for the /readyz probe. The service can take
// traffic as soon as routing is up; the caches warm lazily.
func (s *service) ready(ctx context.Context) bool {
	return s.engine != nil
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("Store close error", "error", err)
		}
		s.store = nil
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("triage-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceProvider.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Tracer shutdown error", "error", err)
		}
	}
	return cleanup, nil
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
