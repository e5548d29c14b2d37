// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package diversity

import (
	"math"
	"strings"

	"github.com/tomtom215/rankfusion/ranking"
)

// Metrics is the per-dimension diversity breakdown for a result list.
type Metrics struct {
	// Overall is the weighted combination of dimension scores in [0, 1].
	Overall float64 `json:"overall"`

	// Dimensions maps dimension names to normalized entropy in [0, 1].
	Dimensions map[string]float64 `json:"dimensions"`

	// DistinctValues maps dimension names to the count of distinct
	// category values observed.
	DistinctValues map[string]int `json:"distinct_values"`
}

// Measure computes diversity metrics for a result list. An empty list
// measures as perfectly diverse so the reranker never runs on it.
func Measure(results []ranking.EnsembleResult, weights map[string]float64) Metrics {
	if len(results) == 0 {
		return Metrics{Overall: 1.0, Dimensions: map[string]float64{}, DistinctValues: map[string]int{}}
	}

	dimensions := make(map[string]float64, 5)
	distinct := make(map[string]int, 5)

	for dim, extract := range dimensionExtractors {
		counts := make(map[string]int)
		total := 0
		for i := range results {
			for _, value := range extract(results[i].Candidate) {
				counts[value]++
				total++
			}
		}
		dimensions[dim] = normalizedEntropy(counts, total)
		distinct[dim] = len(counts)
	}

	return Metrics{
		Overall:        combine(dimensions, weights),
		Dimensions:     dimensions,
		DistinctValues: distinct,
	}
}

// dimensionExtractors maps each dimension to the category values a
// candidate contributes. Multi-valued dimensions (technology, title
// vocabulary) contribute one observation per value.
var dimensionExtractors = map[string]func(ranking.Candidate) []string{
	ranking.DimContentType: func(c ranking.Candidate) []string {
		return []string{c.ContentType.String()}
	},
	ranking.DimTechnology: func(c ranking.Candidate) []string {
		if len(c.Technologies) == 0 {
			return []string{"none"}
		}
		return c.Technologies
	},
	ranking.DimDifficulty: func(c ranking.Candidate) []string {
		return []string{c.Difficulty.String()}
	},
	ranking.DimDomain: func(c ranking.Candidate) []string {
		domain := c.Domain()
		if domain == "" {
			domain = "unknown"
		}
		return []string{domain}
	},
	ranking.DimSemantic: titleTokens,
}

// titleTokens treats title vocabulary as a category dimension: lists whose
// titles repeat the same few words measure as semantically uniform.
func titleTokens(c ranking.Candidate) []string {
	fields := strings.Fields(strings.ToLower(c.Title))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.Trim(field, ".,:;!?()[]\"'")
		if len(token) < 3 {
			continue
		}
		tokens = append(tokens, token)
	}
	if len(tokens) == 0 {
		return []string{"untitled"}
	}
	return tokens
}

// normalizedEntropy is Shannon entropy over the category distribution,
// normalized by log2 of the distinct category count. A single category
// scores 1.0: one value cannot be spread any better.
func normalizedEntropy(counts map[string]int, total int) float64 {
	if len(counts) <= 1 || total == 0 {
		return 1.0
	}

	entropy := 0.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}

	return entropy / math.Log2(float64(len(counts)))
}

// combine weight-averages dimension scores. Unknown dimensions in the
// weight map are ignored; missing weights default to zero contribution.
func combine(dimensions, weights map[string]float64) float64 {
	sum := 0.0
	weightTotal := 0.0
	for dim, score := range dimensions {
		w := weights[dim]
		if w <= 0 {
			continue
		}
		sum += score * w
		weightTotal += w
	}
	if weightTotal == 0 {
		return 1.0
	}
	return sum / weightTotal
}
