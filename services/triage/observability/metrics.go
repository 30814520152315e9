// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the triage service.
//
// # Description
//
// Metrics cover the evaluation pipeline end to end:
//   - Decision counters by outcome and task source
//   - Evaluation latency histograms
//   - Cache hit/miss counters per cache and tier
//   - Embedding provider call counters
//   - Catalog size gauge
//
// Metrics are exposed via the /metrics endpoint. All recording helpers are
// no-ops until InitMetrics runs, so packages can record unconditionally.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "triage"

// Metrics holds all Prometheus metrics for the triage service.
type Metrics struct {
	// DecisionsTotal counts evaluations by outcome and task source.
	// Labels: decision (add, filter, consolidate, clarify), source
	DecisionsTotal *prometheus.CounterVec

	// EvaluationDurationSeconds measures full evaluation latency.
	// Labels: decision
	EvaluationDurationSeconds *prometheus.HistogramVec

	// CacheRequestsTotal counts cache lookups by cache, tier, and result.
	// Labels: cache (embeddings, projects), tier (memory, store), result (hit, miss)
	CacheRequestsTotal *prometheus.CounterVec

	// ProviderCallsTotal counts embedding provider calls by status.
	// Labels: status (success, error)
	ProviderCallsTotal *prometheus.CounterVec

	// CatalogSize tracks the number of projects in the current snapshot.
	CatalogSize prometheus.Gauge
}

// DefaultMetrics is the singleton instance. Initialized by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics creates and registers all metrics against the default
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "decisions_total",
				Help:      "Total evaluations by decision outcome and task source",
			},
			[]string{"decision", "source"},
		),

		EvaluationDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Full evaluation latency by decision outcome",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"decision"},
		),

		CacheRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by cache, tier, and result",
			},
			[]string{"cache", "tier", "result"},
		),

		ProviderCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "provider_calls_total",
				Help:      "Embedding provider calls by status",
			},
			[]string{"status"},
		),

		CatalogSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "catalog_size",
				Help:      "Projects in the current catalog snapshot",
			},
		),
	}
	return DefaultMetrics
}

// =============================================================================
// Recording Helpers
// =============================================================================

// RecordDecision counts one evaluation outcome with its latency.
func RecordDecision(decision, source string, duration time.Duration) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.DecisionsTotal.WithLabelValues(decision, source).Inc()
	DefaultMetrics.EvaluationDurationSeconds.WithLabelValues(decision).Observe(duration.Seconds())
}

// RecordCacheRequest counts one cache lookup.
func RecordCacheRequest(cache, tier, result string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.CacheRequestsTotal.WithLabelValues(cache, tier, result).Inc()
}

// RecordProviderCall counts one embedding provider call.
func RecordProviderCall(status string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.ProviderCallsTotal.WithLabelValues(status).Inc()
}

// SetCatalogSize updates the catalog size gauge.
func SetCatalogSize(n int) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.CatalogSize.Set(float64(n))
}
