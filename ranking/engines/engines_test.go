// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package engines

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rankfusion/ranking"
)

func enginePool() []ranking.Candidate {
	return []ranking.Candidate{
		{ID: "a", Title: "Learn Go Concurrency", Technologies: []string{"go"},
			ContentType: ranking.ContentTutorial, Difficulty: ranking.DifficultyBeginner, Quality: 8},
		{ID: "b", Title: "React Hooks Deep Dive", Technologies: []string{"react"},
			ContentType: ranking.ContentVideo, Difficulty: ranking.DifficultyAdvanced, Quality: 6},
	}
}

func engineContext(t *testing.T, params ranking.ContextParams) *ranking.ScoringContext {
	t.Helper()
	sctx, err := ranking.NewScoringContext(params, ranking.DefaultConfig())
	if err != nil {
		t.Fatalf("NewScoringContext() error = %v", err)
	}
	return sctx
}

func TestContentEngineVotes(t *testing.T) {
	t.Parallel()

	eng := NewContentEngine(ranking.DefaultConfig().Scoring)
	sctx := engineContext(t, ranking.ContextParams{Technologies: []string{"go"}, Intent: ranking.IntentLearning})

	votes, err := eng.Score(context.Background(), enginePool(), sctx)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("len(votes) = %d, want one per candidate", len(votes))
	}

	for _, v := range votes {
		if v.Engine != "content" {
			t.Errorf("Engine = %q, want content", v.Engine)
		}
		if v.Score < 0 || v.Score > 1 {
			t.Errorf("Score = %f, want [0, 1]", v.Score)
		}
		if v.Confidence < 0 || v.Confidence > 1 {
			t.Errorf("Confidence = %f, want [0, 1]", v.Confidence)
		}
	}
	if votes[0].Score <= votes[1].Score {
		t.Errorf("matching candidate scored %f vs %f, want higher", votes[0].Score, votes[1].Score)
	}
}

func TestContentEngineHonorsCancellation(t *testing.T) {
	t.Parallel()

	eng := NewContentEngine(ranking.DefaultConfig().Scoring)
	sctx := engineContext(t, ranking.ContextParams{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := eng.Score(ctx, enginePool(), sctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Score() error = %v, want context.Canceled", err)
	}
}

func TestSemanticEngineSkipsNoOpinion(t *testing.T) {
	t.Parallel()

	provider := similarityFunc(func(_ context.Context, _ string, c ranking.Candidate) (float64, error) {
		if c.ID == "b" {
			return -1, nil
		}
		return 0.8, nil
	})

	eng := NewSemanticEngine(provider)
	sctx := engineContext(t, ranking.ContextParams{Query: "go concurrency"})

	votes, err := eng.Score(context.Background(), enginePool(), sctx)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(votes) != 1 || votes[0].CandidateID != "a" {
		t.Fatalf("votes = %+v, want a single vote for a", votes)
	}
	if votes[0].Confidence != semanticConfidence {
		t.Errorf("Confidence = %f, want %f", votes[0].Confidence, semanticConfidence)
	}
}

func TestSemanticEngineProviderError(t *testing.T) {
	t.Parallel()

	provider := similarityFunc(func(context.Context, string, ranking.Candidate) (float64, error) {
		return 0, errors.New("index offline")
	})

	eng := NewSemanticEngine(provider)
	sctx := engineContext(t, ranking.ContextParams{Query: "go"})

	if _, err := eng.Score(context.Background(), enginePool(), sctx); err == nil {
		t.Error("Score() succeeded, want provider error to fail the invocation")
	}
}

// similarityFunc adapts a closure to SimilarityProvider.
type similarityFunc func(ctx context.Context, query string, c ranking.Candidate) (float64, error)

func (f similarityFunc) Similarity(ctx context.Context, query string, c ranking.Candidate) (float64, error) {
	return f(ctx, query, c)
}

func TestLexicalSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		candidate ranking.Candidate
		want      float64
	}{
		{
			name:      "empty_query_neutral",
			query:     "",
			candidate: ranking.Candidate{Title: "Anything"},
			want:      0.5,
		},
		{
			name:      "no_candidate_tokens",
			query:     "go",
			candidate: ranking.Candidate{},
			want:      0,
		},
		{
			name:      "full_overlap",
			query:     "go concurrency",
			candidate: ranking.Candidate{Title: "Go Concurrency"},
			want:      1.0,
		},
		{
			// query {go}, candidate {learn, go, patterns}: 1 / 3.
			name:      "partial_overlap",
			query:     "go",
			candidate: ranking.Candidate{Title: "Learn Go Patterns"},
			want:      1.0 / 3.0,
		},
		{
			// technology tags join the candidate token set.
			name:      "technology_tokens_count",
			query:     "kubernetes",
			candidate: ranking.Candidate{Title: "Cluster Guide", Technologies: []string{"kubernetes"}},
			want:      1.0 / 3.0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := LexicalSimilarity{}.Similarity(context.Background(), tt.query, tt.candidate)
			if err != nil {
				t.Fatalf("Similarity() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCollaborativeEngine(t *testing.T) {
	t.Parallel()

	eng := NewCollaborativeEngine(StaticAffinities{"a": 0.9, "unknown": 0.4})
	sctx := engineContext(t, ranking.ContextParams{})

	votes, err := eng.Score(context.Background(), enginePool(), sctx)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(votes) != 1 || votes[0].CandidateID != "a" {
		t.Fatalf("votes = %+v, want a single vote for a", votes)
	}
	if votes[0].Score != 0.9 || votes[0].Confidence != collaborativeConfidence {
		t.Errorf("vote = %+v, want score 0.9 confidence %f", votes[0], collaborativeConfidence)
	}
}

func TestCollaborativeEngineNilProvider(t *testing.T) {
	t.Parallel()

	eng := NewCollaborativeEngine(nil)
	sctx := engineContext(t, ranking.ContextParams{})

	votes, err := eng.Score(context.Background(), enginePool(), sctx)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(votes) != 0 {
		t.Errorf("len(votes) = %d, want 0 from nil provider", len(votes))
	}
}

func TestQualityEngine(t *testing.T) {
	t.Parallel()

	eng := NewQualityEngine()
	sctx := engineContext(t, ranking.ContextParams{})

	pool := []ranking.Candidate{
		{ID: "high", Quality: 10},
		{ID: "mid", Quality: 6},
		{ID: "overflow", Quality: 15},
	}
	votes, err := eng.Score(context.Background(), pool, sctx)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	want := map[string]float64{"high": 1.0, "mid": 0.6, "overflow": 1.0}
	for _, v := range votes {
		if math.Abs(v.Score-want[v.CandidateID]) > 1e-9 {
			t.Errorf("Score(%s) = %f, want %f", v.CandidateID, v.Score, want[v.CandidateID])
		}
		if v.Confidence != 1.0 {
			t.Errorf("Confidence(%s) = %f, want 1.0", v.CandidateID, v.Confidence)
		}
	}
}

func TestRegistryDuplicate(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if err := registry.Register(NewQualityEngine()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := registry.Register(NewQualityEngine()); err == nil {
		t.Error("Register() accepted duplicate name")
	}
}

func TestRegistrySelectOrder(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	for _, e := range []ranking.Engine{
		NewContentEngine(ranking.DefaultConfig().Scoring),
		NewSemanticEngine(nil),
		NewQualityEngine(),
	} {
		if err := registry.Register(e); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	// Selection preserves registration order, not request order, and skips
	// unknown names.
	selected := registry.Select([]string{"quality", "content", "ghost"})
	if len(selected) != 2 {
		t.Fatalf("len(selected) = %d, want 2", len(selected))
	}
	if selected[0].Name() != "content" || selected[1].Name() != "quality" {
		t.Errorf("selection order = [%s %s], want [content quality]",
			selected[0].Name(), selected[1].Name())
	}
}

func TestBuildRegistry(t *testing.T) {
	t.Parallel()

	cfg := ranking.DefaultConfig()
	registry, err := BuildRegistry(cfg, zerolog.Nop(), nil, nil)
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}

	for _, name := range cfg.Engines.Enabled {
		eng, ok := registry.Get(name)
		if !ok {
			t.Errorf("engine %q not registered", name)
			continue
		}
		if _, isAdapter := eng.(*Adapter); !isAdapter {
			t.Errorf("engine %q not wrapped in Adapter", name)
		}
	}
}

func TestBuildRegistryUnknownEngine(t *testing.T) {
	t.Parallel()

	cfg := ranking.DefaultConfig()
	cfg.Engines.Enabled = append(cfg.Engines.Enabled, "telepathy")
	if _, err := BuildRegistry(cfg, zerolog.Nop(), nil, nil); err == nil {
		t.Error("BuildRegistry() accepted unknown engine name")
	}
}
