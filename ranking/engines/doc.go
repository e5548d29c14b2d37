// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

// Package engines provides the built-in scoring engines and the resilience
// adapter that wraps them.
//
// Four engines ship with the module: content (weighted signal matching),
// semantic (query similarity via a pluggable SimilarityProvider),
// collaborative (co-engagement affinity via a pluggable CFProvider) and
// quality (upstream editorial score). Each is wrapped in an Adapter that
// enforces a per-invocation timeout and a circuit breaker, so a misbehaving
// engine degrades gracefully instead of stalling the request.
//
// The Registry maps engine names to adapted instances and is built once at
// startup from configuration.
package engines
