// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts ranking requests by terminal state.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankfusion_requests_total",
			Help: "Total ranking requests by terminal pipeline state",
		},
		[]string{"state"},
	)

	// RequestDuration observes end-to-end pipeline latency.
	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rankfusion_request_duration_seconds",
			Help:    "End-to-end ranking pipeline latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// EngineInvocations counts engine invocations by engine and outcome.
	// Status is one of: ok, timeout, internal, unavailable, empty.
	EngineInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankfusion_engine_invocations_total",
			Help: "Engine invocations by engine name and outcome",
		},
		[]string{"engine", "status"},
	)

	// EngineDuration observes per-engine invocation latency.
	EngineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rankfusion_engine_duration_seconds",
			Help:    "Engine invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	// CacheHits counts ensemble cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rankfusion_ensemble_cache_hits_total",
			Help: "Total ensemble cache hits",
		},
	)

	// CacheMisses counts ensemble cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rankfusion_ensemble_cache_misses_total",
			Help: "Total ensemble cache misses",
		},
	)

	// FallbacksTotal counts requests that degraded to the quality-sorted
	// fallback ranking.
	FallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rankfusion_fallbacks_total",
			Help: "Total requests served by the quality-sorted fallback",
		},
	)

	// DiversityScore observes the overall diversity of served lists.
	DiversityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rankfusion_diversity_score",
			Help:    "Overall diversity score of served result lists",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	// PersonalizationDecisions counts personalization gate outcomes.
	// Decision is one of: applied, gated, disabled.
	PersonalizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankfusion_personalization_decisions_total",
			Help: "Personalization gate outcomes",
		},
		[]string{"decision"},
	)

	// ProfileDecayRuns counts background profile decay sweeps.
	ProfileDecayRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rankfusion_profile_decay_runs_total",
			Help: "Total background profile decay sweeps",
		},
	)

	// CacheJanitorEvictions counts entries removed by the cache janitor.
	CacheJanitorEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rankfusion_cache_janitor_evictions_total",
			Help: "Total expired ensemble cache entries removed by the janitor",
		},
	)
)

// ObserveEngine records one engine invocation outcome and latency.
func ObserveEngine(engine, status string, elapsed time.Duration) {
	EngineInvocations.WithLabelValues(engine, status).Inc()
	EngineDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

// ObserveRequest records one pipeline request outcome and latency.
func ObserveRequest(state string, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(state).Inc()
	RequestDuration.Observe(elapsed.Seconds())
}
