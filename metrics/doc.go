// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

// Package metrics exposes Prometheus collectors for the ranking pipeline:
// request outcomes by terminal state, per-engine invocation counts and
// latencies, ensemble cache efficiency, fallback activations, diversity of
// served lists, and personalization gate decisions.
//
// Collectors are registered on the default registry via promauto at
// package load; embedders expose them through their own /metrics endpoint.
package metrics
