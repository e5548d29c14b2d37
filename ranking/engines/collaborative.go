// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package engines

import (
	"context"

	"github.com/tomtom215/rankfusion/ranking"
)

// CFProvider supplies collaborative-filtering affinity scores for
// candidates, keyed by candidate ID, in [0, 1]. Candidates absent from the
// returned map receive no vote.
//
// The provider owns its data source (co-engagement matrix, item-item
// similarity index); this engine only consumes scores.
type CFProvider interface {
	Affinities(ctx context.Context, ids []string) (map[string]float64, error)
}

// collaborativeConfidence is the fixed vote confidence for affinity
// scores. Co-engagement signal is noisy for sparse catalogs.
const collaborativeConfidence = 0.6

// CollaborativeEngine votes by co-engagement affinity from a CFProvider.
type CollaborativeEngine struct {
	provider CFProvider
}

// NewCollaborativeEngine creates the collaborative engine. A nil provider
// yields an engine that never votes, which the aggregator treats as an
// empty (not failed) engine.
func NewCollaborativeEngine(provider CFProvider) *CollaborativeEngine {
	if provider == nil {
		provider = StaticAffinities(nil)
	}
	return &CollaborativeEngine{provider: provider}
}

// Name returns "collaborative".
func (e *CollaborativeEngine) Name() string {
	return "collaborative"
}

// Score produces one vote per candidate the provider knows about.
func (e *CollaborativeEngine) Score(ctx context.Context, pool []ranking.Candidate, _ *ranking.ScoringContext) ([]ranking.EngineVote, error) {
	ids := make([]string, 0, len(pool))
	for _, c := range pool {
		ids = append(ids, c.ID)
	}

	affinities, err := e.provider.Affinities(ctx, ids)
	if err != nil {
		return nil, err
	}

	votes := make([]ranking.EngineVote, 0, len(affinities))
	for _, c := range pool {
		affinity, ok := affinities[c.ID]
		if !ok {
			continue
		}

		votes = append(votes, ranking.EngineVote{
			Engine:      e.Name(),
			CandidateID: c.ID,
			Score:       clampUnit(affinity),
			Confidence:  collaborativeConfidence,
		})
	}
	return votes, nil
}

// StaticAffinities is a fixed in-memory CFProvider, useful for tests and
// for bootstrapping before a real co-engagement source exists.
type StaticAffinities map[string]float64

// Affinities returns the stored scores for the requested IDs.
func (s StaticAffinities) Affinities(_ context.Context, ids []string) (map[string]float64, error) {
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		if affinity, ok := s[id]; ok {
			out[id] = affinity
		}
	}
	return out, nil
}
