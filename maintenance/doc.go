// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

// Package maintenance runs the background housekeeping services under a
// suture supervisor: the periodic preference decay sweep over user
// profiles and the ensemble cache janitor that purges expired entries.
// A crashing service is restarted with backoff instead of taking the
// process down.
package maintenance
