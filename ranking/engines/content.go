// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package engines

import (
	"context"

	"github.com/tomtom215/rankfusion/ranking"
)

// checkInterval is how often batch loops poll for context cancellation.
const checkInterval = 64

// ContentEngine scores candidates with the weighted signal scorer:
// technology overlap, content-type match, difficulty alignment, quality
// and intent alignment, combined by the resolved context weights.
type ContentEngine struct {
	scorer *ranking.CandidateScorer
}

// NewContentEngine creates the content engine.
func NewContentEngine(cfg ranking.ScoringConfig) *ContentEngine {
	return &ContentEngine{scorer: ranking.NewCandidateScorer(cfg)}
}

// Name returns "content".
func (e *ContentEngine) Name() string {
	return "content"
}

// Score produces one vote per candidate. Confidence reflects how many of
// the five signals carried information for the candidate.
func (e *ContentEngine) Score(ctx context.Context, pool []ranking.Candidate, sctx *ranking.ScoringContext) ([]ranking.EngineVote, error) {
	votes := make([]ranking.EngineVote, 0, len(pool))
	for i, c := range pool {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		score, breakdown := e.scorer.Score(c, sctx)
		votes = append(votes, ranking.EngineVote{
			Engine:      e.Name(),
			CandidateID: c.ID,
			Score:       score,
			Confidence:  signalCoverage(breakdown),
		})
	}
	return votes, nil
}

// signalCoverage is the fraction of sub-scores that carried any signal.
func signalCoverage(breakdown map[string]float64) float64 {
	if len(breakdown) == 0 {
		return 0
	}
	informative := 0
	for _, v := range breakdown {
		if v > 0 {
			informative++
		}
	}
	return float64(informative) / float64(len(breakdown))
}
