// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

// Package ranking implements the core hybrid ranking pipeline: per-candidate
// multi-factor scoring, parallel fan-out to heterogeneous scoring engines,
// weighted rank-vote aggregation with a fingerprint-keyed TTL cache, and a
// deterministic fallback when every engine is unavailable.
//
// The package is a library: it owns no wire protocol and reads no global
// state. Configuration arrives as an explicit *Config, candidates arrive
// pre-scored for quality by upstream collaborators, and the caller receives
// an ordered result list with a per-signal score breakdown.
//
// Control flow for one request:
//
//	ScoringContext -> engines (parallel) -> Aggregator -> Adjuster -> Reranker
//
// Engines are invoked concurrently, each under its own timeout. An engine
// that fails or times out is degraded for the current request only; its
// votes are discarded and remaining engines decide the ranking. If no engine
// produces a vote the aggregator degrades to a quality-sorted fallback
// instead of returning an error.
//
// All scores are normalized to [0, 1] before aggregation and the final merge
// is deterministic given a fixed set of engine results: wall-clock arrival
// order never affects the output.
package ranking
