// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package engines

import (
	"context"

	"github.com/tomtom215/rankfusion/ranking"
)

// QualityEngine votes by the upstream editorial quality score alone. It
// anchors the ensemble: even when every contextual engine disagrees, high
// quality content keeps a floor vote.
type QualityEngine struct{}

// NewQualityEngine creates the quality engine.
func NewQualityEngine() *QualityEngine {
	return &QualityEngine{}
}

// Name returns "quality".
func (e *QualityEngine) Name() string {
	return "quality"
}

// Score maps the 1-10 quality score to [0, 1] with full confidence; the
// score is precomputed upstream and carries no request-time uncertainty.
func (e *QualityEngine) Score(ctx context.Context, pool []ranking.Candidate, _ *ranking.ScoringContext) ([]ranking.EngineVote, error) {
	votes := make([]ranking.EngineVote, 0, len(pool))
	for i, c := range pool {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		votes = append(votes, ranking.EngineVote{
			Engine:      e.Name(),
			CandidateID: c.ID,
			Score:       clampUnit(float64(c.Quality) / 10.0),
			Confidence:  1.0,
		})
	}
	return votes, nil
}
