// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package ranking

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubEngine is a scripted engine for aggregator tests.
type stubEngine struct {
	name  string
	votes []EngineVote
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Score(ctx context.Context, _ []Candidate, _ *ScoringContext) ([]EngineVote, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return append([]EngineVote(nil), s.votes...), nil
}

// stuckEngine sleeps through context cancellation, exercising the
// abandonment path.
type stuckEngine struct {
	name  string
	sleep time.Duration
}

func (s *stuckEngine) Name() string { return s.name }

func (s *stuckEngine) Score(context.Context, []Candidate, *ScoringContext) ([]EngineVote, error) {
	time.Sleep(s.sleep)
	return []EngineVote{{Engine: s.name, CandidateID: "x", Score: 1.0}}, nil
}

func vote(engine, id string, score float64) EngineVote {
	return EngineVote{Engine: engine, CandidateID: id, Score: score, Confidence: 1.0}
}

func testPool(ids ...string) []Candidate {
	pool := make([]Candidate, 0, len(ids))
	for i, id := range ids {
		pool = append(pool, Candidate{ID: id, Title: id, Quality: 5 + i%5})
	}
	return pool
}

func newTestAggregator(t *testing.T, mutate func(*Config)) *Aggregator {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	agg, err := NewAggregator(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}
	return agg
}

func testScoringContext(t *testing.T) *ScoringContext {
	t.Helper()
	sctx, err := NewScoringContext(ContextParams{Query: "test"}, DefaultConfig())
	if err != nil {
		t.Fatalf("NewScoringContext() error = %v", err)
	}
	return sctx
}

func TestAggregateSingleEngineMerge(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(t, func(cfg *Config) { cfg.Cache.Enabled = false })
	eng := &stubEngine{name: "alpha", votes: []EngineVote{
		vote("alpha", "x", 1.0),
		vote("alpha", "y", 0.5),
	}}

	ensemble, err := agg.Aggregate(context.Background(), testPool("x", "y"), testScoringContext(t), []Engine{eng})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if ensemble.State != StateAggregating {
		t.Errorf("State = %v, want StateAggregating", ensemble.State)
	}
	if len(ensemble.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(ensemble.Results))
	}

	// RankWeight 0.6: top-ranked vote scores 0.6*1 + 0.4*score, second
	// scores 0.6*0.5 + 0.4*score.
	if got := ensemble.Results[0]; got.CandidateID != "x" || math.Abs(got.Score-1.0) > 1e-9 {
		t.Errorf("Results[0] = %s/%f, want x/1.0", got.CandidateID, got.Score)
	}
	if got := ensemble.Results[1]; got.CandidateID != "y" || math.Abs(got.Score-0.5) > 1e-9 {
		t.Errorf("Results[1] = %s/%f, want y/0.5", got.CandidateID, got.Score)
	}
	if ensemble.Results[0].Rank != 1 || ensemble.Results[1].Rank != 2 {
		t.Errorf("ranks = %d, %d, want 1, 2", ensemble.Results[0].Rank, ensemble.Results[1].Rank)
	}
	if ensemble.VoteCounts["alpha"] != 2 {
		t.Errorf("VoteCounts[alpha] = %d, want 2", ensemble.VoteCounts["alpha"])
	}
}

func TestAggregateDeterministic(t *testing.T) {
	t.Parallel()

	pool := testPool("a", "b", "c", "d")
	sctx := testScoringContext(t)

	run := func() *Ensemble {
		agg := newTestAggregator(t, func(cfg *Config) { cfg.Cache.Enabled = false })
		engines := []Engine{
			&stubEngine{name: "gamma", delay: 2 * time.Millisecond, votes: []EngineVote{
				vote("gamma", "c", 0.9), vote("gamma", "a", 0.4),
			}},
			&stubEngine{name: "alpha", votes: []EngineVote{
				vote("alpha", "a", 0.8), vote("alpha", "b", 0.8), vote("alpha", "d", 0.1),
			}},
			&stubEngine{name: "beta", delay: time.Millisecond, votes: []EngineVote{
				vote("beta", "b", 0.7), vote("beta", "c", 0.6),
			}},
		}
		ensemble, err := agg.Aggregate(context.Background(), pool, sctx, engines)
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		return ensemble
	}

	first := run()
	for i := 0; i < 5; i++ {
		next := run()
		if len(next.Results) != len(first.Results) {
			t.Fatalf("run %d: len(Results) = %d, want %d", i, len(next.Results), len(first.Results))
		}
		for j := range first.Results {
			if next.Results[j].CandidateID != first.Results[j].CandidateID {
				t.Fatalf("run %d: Results[%d] = %s, want %s",
					i, j, next.Results[j].CandidateID, first.Results[j].CandidateID)
			}
			if math.Abs(next.Results[j].Score-first.Results[j].Score) > 1e-12 {
				t.Fatalf("run %d: Results[%d].Score = %v, want %v",
					i, j, next.Results[j].Score, first.Results[j].Score)
			}
		}
	}
}

func TestAggregateEngineFailureDegrades(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(t, func(cfg *Config) { cfg.Cache.Enabled = false })
	engines := []Engine{
		&stubEngine{name: "alpha", votes: []EngineVote{vote("alpha", "x", 0.9)}},
		&stubEngine{name: "broken", err: errors.New("boom")},
	}

	ensemble, err := agg.Aggregate(context.Background(), testPool("x"), testScoringContext(t), engines)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if len(ensemble.Degraded) != 1 || ensemble.Degraded[0] != "broken" {
		t.Errorf("Degraded = %v, want [broken]", ensemble.Degraded)
	}
	if len(ensemble.EnginesUsed) != 1 || ensemble.EnginesUsed[0] != "alpha" {
		t.Errorf("EnginesUsed = %v, want [alpha]", ensemble.EnginesUsed)
	}
	if len(ensemble.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1", len(ensemble.Results))
	}
}

func TestAggregateFallback(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(t, func(cfg *Config) { cfg.Cache.Enabled = false })
	engines := []Engine{
		&stubEngine{name: "alpha", err: errors.New("down")},
		&stubEngine{name: "beta", err: errors.New("down")},
	}

	pool := []Candidate{
		{ID: "c3", Quality: 3},
		{ID: "c9", Quality: 9},
		{ID: "c7", Quality: 7},
		{ID: "c9b", Quality: 9},
		{ID: "c1", Quality: 1},
	}

	ensemble, err := agg.Aggregate(context.Background(), pool, testScoringContext(t), engines)
	if err != nil {
		t.Fatalf("Aggregate() error = %v, fallback must not fail", err)
	}

	if ensemble.State != StateFallback {
		t.Fatalf("State = %v, want StateFallback", ensemble.State)
	}
	wantOrder := []string{"c9", "c9b", "c7", "c3", "c1"}
	for i, want := range wantOrder {
		if ensemble.Results[i].CandidateID != want {
			t.Errorf("Results[%d] = %s, want %s", i, ensemble.Results[i].CandidateID, want)
		}
	}
	for i := 1; i < len(ensemble.Results); i++ {
		if ensemble.Results[i].Candidate.Quality > ensemble.Results[i-1].Candidate.Quality {
			t.Errorf("fallback not quality-ordered at %d", i)
		}
	}
}

func TestAggregateCorroborationRaisesScore(t *testing.T) {
	t.Parallel()

	pool := testPool("x", "y")
	sctx := testScoringContext(t)

	base := newTestAggregator(t, func(cfg *Config) { cfg.Cache.Enabled = false })
	single, err := base.Aggregate(context.Background(), pool, sctx, []Engine{
		&stubEngine{name: "alpha", votes: []EngineVote{vote("alpha", "x", 0.5)}},
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	both, err := base.Aggregate(context.Background(), pool, sctx, []Engine{
		&stubEngine{name: "alpha", votes: []EngineVote{vote("alpha", "x", 0.5)}},
		&stubEngine{name: "zeta", votes: []EngineVote{vote("zeta", "x", 1.0)}},
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	// The corroborating engine ranks x first with a maximal score, so its
	// contribution is at least x's prior average and the mean cannot drop.
	if both.Results[0].Score < single.Results[0].Score {
		t.Errorf("corroborated score %f < single-engine score %f",
			both.Results[0].Score, single.Results[0].Score)
	}
	if both.Results[0].Confidence != 1.0 {
		t.Errorf("Confidence = %f, want 1.0 with both engines voting", both.Results[0].Confidence)
	}
}

func TestAggregateTrustWeight(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(t, func(cfg *Config) {
		cfg.Cache.Enabled = false
		cfg.Engines.TrustWeights = map[string]float64{"alpha": 0.5}
	})

	ensemble, err := agg.Aggregate(context.Background(), testPool("x"), testScoringContext(t), []Engine{
		&stubEngine{name: "alpha", votes: []EngineVote{vote("alpha", "x", 1.0)}},
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if got := ensemble.Results[0].Score; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Score = %f, want 0.5 with trust weight 0.5", got)
	}
}

func TestAggregateIgnoresBogusVotes(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(t, func(cfg *Config) { cfg.Cache.Enabled = false })
	eng := &stubEngine{name: "alpha", votes: []EngineVote{
		vote("alpha", "ghost", 1.0), // not in pool
		vote("alpha", "x", 0.9),
		vote("alpha", "x", 0.2), // duplicate, lower score dropped
	}}

	ensemble, err := agg.Aggregate(context.Background(), testPool("x"), testScoringContext(t), []Engine{eng})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if len(ensemble.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(ensemble.Results))
	}
	if len(ensemble.Results[0].Votes) != 1 {
		t.Errorf("len(Votes) = %d, want 1 after dedupe", len(ensemble.Results[0].Votes))
	}
	// The surviving vote is the higher-scored duplicate at rank position 0.
	if got := ensemble.Results[0].Score; math.Abs(got-(0.6*1.0+0.4*0.9)) > 1e-9 {
		t.Errorf("Score = %f, want %f", got, 0.6*1.0+0.4*0.9)
	}
}

func TestAggregateCache(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(t, nil)
	eng := &stubEngine{name: "alpha", votes: []EngineVote{vote("alpha", "x", 0.9)}}
	pool := testPool("x")
	sctx := testScoringContext(t)

	first, err := agg.Aggregate(context.Background(), pool, sctx, []Engine{eng})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if first.CacheHit {
		t.Error("first call CacheHit = true, want false")
	}

	second, err := agg.Aggregate(context.Background(), pool, sctx, []Engine{eng})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if !second.CacheHit {
		t.Error("second call CacheHit = false, want true")
	}
	if got := eng.calls.Load(); got != 1 {
		t.Errorf("engine calls = %d, want 1 (second call served from cache)", got)
	}

	stats := agg.CacheStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("CacheStats = %+v, want 1 hit, 1 miss", stats)
	}
}

func TestAggregateFallbackNotCached(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(t, nil)
	eng := &stubEngine{name: "alpha", err: errors.New("down")}
	pool := testPool("x")
	sctx := testScoringContext(t)

	if _, err := agg.Aggregate(context.Background(), pool, sctx, []Engine{eng}); err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if _, err := agg.Aggregate(context.Background(), pool, sctx, []Engine{eng}); err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if got := eng.calls.Load(); got != 2 {
		t.Errorf("engine calls = %d, want 2 (fallback results must not be cached)", got)
	}
}

func TestAggregateAbandonsStragglers(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(t, func(cfg *Config) {
		cfg.Cache.Enabled = false
		cfg.Limits.RequestTimeout = 30 * time.Millisecond
	})

	engines := []Engine{
		&stubEngine{name: "alpha", votes: []EngineVote{vote("alpha", "x", 0.9)}},
		&stuckEngine{name: "stuck", sleep: 300 * time.Millisecond},
	}

	start := time.Now()
	ensemble, err := agg.Aggregate(context.Background(), testPool("x"), testScoringContext(t), engines)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Aggregate() took %v, want well under the straggler's sleep", elapsed)
	}

	if len(ensemble.EnginesUsed) != 1 || ensemble.EnginesUsed[0] != "alpha" {
		t.Errorf("EnginesUsed = %v, want [alpha]", ensemble.EnginesUsed)
	}
	found := false
	for _, name := range ensemble.Degraded {
		if name == "stuck" {
			found = true
		}
	}
	if !found {
		t.Errorf("Degraded = %v, want to include stuck", ensemble.Degraded)
	}
}

func TestAggregateInputValidation(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(t, nil)
	sctx := testScoringContext(t)

	if _, err := agg.Aggregate(context.Background(), testPool("x"), sctx, nil); !errors.Is(err, ErrNoEngines) {
		t.Errorf("no engines: error = %v, want ErrNoEngines", err)
	}

	if _, err := agg.Aggregate(context.Background(), testPool("x"), nil, []Engine{&stubEngine{name: "a"}}); !errors.Is(err, ErrInvalidContext) {
		t.Errorf("nil context: error = %v, want ErrInvalidContext", err)
	}

	ensemble, err := agg.Aggregate(context.Background(), nil, sctx, []Engine{&stubEngine{name: "a"}})
	if err != nil {
		t.Fatalf("empty pool: error = %v", err)
	}
	if len(ensemble.Results) != 0 {
		t.Errorf("empty pool: len(Results) = %d, want 0", len(ensemble.Results))
	}
}

func TestAggregatePoolTruncation(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(t, func(cfg *Config) {
		cfg.Cache.Enabled = false
		cfg.Limits.MaxCandidates = 2
	})

	eng := &stubEngine{name: "alpha", votes: []EngineVote{
		vote("alpha", "a", 0.9), vote("alpha", "b", 0.8), vote("alpha", "c", 0.7),
	}}

	ensemble, err := agg.Aggregate(context.Background(), testPool("a", "b", "c"), testScoringContext(t), []Engine{eng})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(ensemble.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2 after pool truncation", len(ensemble.Results))
	}
}
