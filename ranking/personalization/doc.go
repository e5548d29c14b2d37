// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

// Package personalization adjusts ensemble scores with per-user preference
// profiles learned from feedback.
//
// Profiles hold preference weights for technologies, content types,
// difficulty levels and source domains, updated by exponential moving
// average on each interaction and decayed periodically so stale interests
// fade. The Adjuster blends a preference bonus into ensemble scores only
// when a profile has both enough interactions and enough confidence; a
// cold or low-confidence profile leaves the ranking byte-for-byte
// untouched.
//
// Profiles live in an in-memory Store. Updates to one user are serialized
// by a per-user mutex; reads take deep-copy snapshots, so ranking requests
// never contend with learning.
package personalization
