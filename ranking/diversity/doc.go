// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

// Package diversity measures and improves the variety of ranked result
// lists.
//
// Diversity is measured per dimension (content type, technology,
// difficulty, source domain, title vocabulary) as Shannon entropy
// normalized to [0, 1], then combined into an overall score by configured
// dimension weights. The Ranker reranks only when the overall score falls
// below the target: a greedy pass boosts high-quality results that
// introduce new category values, then per-dimension share caps defer
// over-represented results down the list. Results are reordered and
// boosted, never dropped.
package diversity
