// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/rankfusion/metrics"
)

// Pipeline drives one ranking request through the full lifecycle:
// context resolution, ensemble aggregation, personalization and
// diversification, then truncation to the requested limit.
//
// The adjuster and reranker stages are optional; a nil stage is skipped
// and the corresponding Meta flag stays false.
type Pipeline struct {
	cfg        *Config
	logger     zerolog.Logger
	aggregator *Aggregator
	engines    []Engine
	adjuster   Adjuster
	reranker   Reranker
}

// Measurer reports the overall diversity of a result list. Rerankers that
// also implement Measurer get their score recorded in response metadata.
type Measurer interface {
	Measure(results []EnsembleResult) float64
}

// PipelineOption customizes pipeline construction.
type PipelineOption func(*Pipeline)

// WithAdjuster installs the personalization stage.
func WithAdjuster(a Adjuster) PipelineOption {
	return func(p *Pipeline) { p.adjuster = a }
}

// WithReranker installs the diversification stage.
func WithReranker(r Reranker) PipelineOption {
	return func(p *Pipeline) { p.reranker = r }
}

// NewPipeline wires a pipeline over the given engines.
func NewPipeline(cfg *Config, logger zerolog.Logger, engines []Engine, opts ...PipelineOption) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if len(engines) == 0 {
		return nil, ErrNoEngines
	}

	agg, err := NewAggregator(cfg, logger)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:        cfg,
		logger:     logger.With().Str("component", "pipeline").Logger(),
		aggregator: agg,
		engines:    engines,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Aggregator exposes the underlying aggregator, mainly so embedders can
// hand its cache to the maintenance janitor.
func (p *Pipeline) Aggregator() *Aggregator {
	return p.aggregator
}

// Rank executes one request end to end.
//
// userID selects the personalization profile; an empty userID skips the
// adjuster stage. The returned Meta records which stages ran, which
// engines contributed and the terminal state. Rank returns an error only
// for invalid input; engine failures degrade inside the aggregator.
func (p *Pipeline) Rank(ctx context.Context, params ContextParams, pool []Candidate, userID string) (*Ranked, error) {
	start := time.Now()
	requestID := uuid.NewString()

	logger := p.logger.With().
		Str("request_id", requestID).
		Str("user_id", userID).
		Logger()

	sctx, err := NewScoringContext(params, p.cfg)
	if err != nil {
		metrics.ObserveRequest(StateReceived.String(), time.Since(start))
		return nil, fmt.Errorf("resolving scoring context: %w", err)
	}

	logger.Debug().
		Str("query", sctx.Query).
		Strs("technologies", sctx.Technologies).
		Int("candidates", len(pool)).
		Msg("ranking request received")

	engines := p.selectEngines(sctx)
	if len(engines) == 0 {
		metrics.ObserveRequest(StateReceived.String(), time.Since(start))
		return nil, fmt.Errorf("%w: no requested engine is registered", ErrNoEngines)
	}

	ensemble, err := p.aggregator.Aggregate(ctx, pool, sctx, engines)
	if err != nil {
		metrics.ObserveRequest(StateScoring.String(), time.Since(start))
		return nil, fmt.Errorf("aggregating: %w", err)
	}

	state := ensemble.State
	results := ensemble.Results

	meta := Meta{
		RequestID:       requestID,
		UserID:          userID,
		EnginesUsed:     ensemble.EnginesUsed,
		Degraded:        ensemble.Degraded,
		CacheHit:        ensemble.CacheHit,
		TotalCandidates: len(pool),
		Timestamp:       start.UTC(),
	}

	// Fallback results skip personalization and diversification: the raw
	// quality ordering is the contract when every engine is down.
	if state != StateFallback {
		if p.adjuster != nil && sctx.PersonalizationEnabled && userID != "" {
			state = StatePersonalizing
			adjusted := p.adjuster.Adjust(results, userID)
			meta.Personalized = !sameResults(results, adjusted)
			results = adjusted
		}

		if p.reranker != nil && sctx.DiversityEnabled {
			state = StateDiversifying
			results = p.reranker.Rerank(ctx, results, sctx)
			meta.Diversified = true
			if m, ok := p.reranker.(Measurer); ok {
				meta.DiversityScore = m.Measure(results)
				metrics.DiversityScore.Observe(meta.DiversityScore)
			}
		}

		state = StateFinalized
	}

	if len(results) > sctx.MaxRecommendations {
		results = results[:sctx.MaxRecommendations]
	}
	assignRanks(results)

	meta.State = state
	meta.LatencyMS = time.Since(start).Milliseconds()
	metrics.ObserveRequest(state.String(), time.Since(start))

	logger.Info().
		Str("state", state.String()).
		Int("results", len(results)).
		Strs("engines_used", meta.EnginesUsed).
		Bool("cache_hit", meta.CacheHit).
		Strs("degraded", meta.Degraded).
		Bool("personalized", meta.Personalized).
		Bool("diversified", meta.Diversified).
		Int64("latency_ms", meta.LatencyMS).
		Msg("ranking request completed")

	return &Ranked{Results: results, Meta: meta}, nil
}

// selectEngines filters the registered engines down to the set the
// resolved context asked for, preserving registration order.
func (p *Pipeline) selectEngines(sctx *ScoringContext) []Engine {
	requested := make(map[string]struct{}, len(sctx.Engines))
	for _, name := range sctx.Engines {
		requested[name] = struct{}{}
	}

	selected := make([]Engine, 0, len(p.engines))
	for _, eng := range p.engines {
		if _, ok := requested[eng.Name()]; ok {
			selected = append(selected, eng)
		}
	}
	return selected
}

// sameResults reports whether two result slices share the same backing
// array, which is how a gated adjuster signals it changed nothing.
func sameResults(a, b []EnsembleResult) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
