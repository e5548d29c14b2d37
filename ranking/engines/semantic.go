// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package engines

import (
	"context"
	"strings"

	"github.com/tomtom215/rankfusion/ranking"
)

// SimilarityProvider computes query-to-candidate similarity in [0, 1].
// A negative similarity means the provider has no opinion about the
// candidate and it receives no vote.
//
// Implementations back this with whatever they have: an embedding index,
// a search service, or the built-in lexical provider.
type SimilarityProvider interface {
	Similarity(ctx context.Context, query string, c ranking.Candidate) (float64, error)
}

// semanticConfidence is the fixed vote confidence for similarity scores.
// Lexical or embedding similarity is a softer signal than direct metadata
// matching.
const semanticConfidence = 0.7

// SemanticEngine votes by query similarity from a SimilarityProvider.
type SemanticEngine struct {
	provider SimilarityProvider
}

// NewSemanticEngine creates the semantic engine. A nil provider falls back
// to the built-in lexical provider.
func NewSemanticEngine(provider SimilarityProvider) *SemanticEngine {
	if provider == nil {
		provider = LexicalSimilarity{}
	}
	return &SemanticEngine{provider: provider}
}

// Name returns "semantic".
func (e *SemanticEngine) Name() string {
	return "semantic"
}

// Score produces one vote per candidate the provider has an opinion about.
// A provider error fails the whole invocation; partial votes are never
// returned.
func (e *SemanticEngine) Score(ctx context.Context, pool []ranking.Candidate, sctx *ranking.ScoringContext) ([]ranking.EngineVote, error) {
	votes := make([]ranking.EngineVote, 0, len(pool))
	for _, c := range pool {
		sim, err := e.provider.Similarity(ctx, sctx.Query, c)
		if err != nil {
			return nil, err
		}
		if sim < 0 {
			continue
		}

		votes = append(votes, ranking.EngineVote{
			Engine:      e.Name(),
			CandidateID: c.ID,
			Score:       clampUnit(sim),
			Confidence:  semanticConfidence,
		})
	}
	return votes, nil
}

// LexicalSimilarity is the built-in similarity provider: token overlap
// between the query and the candidate's title and technology tags. It is
// the zero-infrastructure default; production deployments substitute an
// embedding-backed provider.
type LexicalSimilarity struct{}

// Similarity returns the Jaccard overlap between query tokens and the
// candidate's title and technology tokens. An empty query yields a neutral
// 0.5 for every candidate.
func (LexicalSimilarity) Similarity(_ context.Context, query string, c ranking.Candidate) (float64, error) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0.5, nil
	}

	candidateTokens := tokenize(c.Title)
	for _, tech := range c.Technologies {
		for tok := range tokenize(tech) {
			candidateTokens[tok] = struct{}{}
		}
	}
	if len(candidateTokens) == 0 {
		return 0, nil
	}

	intersection := 0
	for tok := range queryTokens {
		if _, ok := candidateTokens[tok]; ok {
			intersection++
		}
	}
	union := len(queryTokens) + len(candidateTokens) - intersection
	return float64(intersection) / float64(union), nil
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		tokens[field] = struct{}{}
	}
	return tokens
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
