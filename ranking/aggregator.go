// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/rankfusion/metrics"
)

// Aggregator fans out to scoring engines in parallel, merges their votes
// via weighted rank-voting, and caches results by query fingerprint. Safe
// for concurrent use; the ensemble cache is the only state shared across
// requests.
type Aggregator struct {
	cfg    *Config
	logger zerolog.Logger
	cache  *ensembleCache

	// sem is the global cap on concurrently executing engine invocations
	// across all requests.
	sem *semaphore.Weighted
}

// NewAggregator creates an aggregator from a validated configuration.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAggregator(cfg *Config, logger zerolog.Logger) (*Aggregator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Aggregator{
		cfg:    cfg,
		logger: logger.With().Str("component", "aggregator").Logger(),
		cache:  newEnsembleCache(cfg.Cache),
		sem:    semaphore.NewWeighted(int64(cfg.Limits.MaxConcurrentEngines)),
	}, nil
}

// CacheStats returns a snapshot of the ensemble cache counters.
func (a *Aggregator) CacheStats() CacheStats {
	return a.cache.snapshot()
}

// PurgeExpiredCache removes expired cache entries and returns how many were
// removed. Called by the maintenance janitor.
func (a *Aggregator) PurgeExpiredCache() int {
	return a.cache.PurgeExpired()
}

// engineOutcome is the result of one engine invocation.
type engineOutcome struct {
	name    string
	votes   []EngineVote
	err     error
	elapsed time.Duration
}

// Aggregate merges votes from all requested engines into one ordered
// result list.
//
// Engines run concurrently, each under the adapter's own timeout and the
// aggregator's global concurrency cap; engines still running when the
// request deadline elapses are abandoned and contribute no votes. Engine
// failures degrade that engine for this request only. If no engine
// produces any vote, the ensemble degrades to a deterministic ranking by
// raw quality score instead of returning an error.
//
// The merge is deterministic given a fixed set of successful engine
// results: arrival order never affects the output.
func (a *Aggregator) Aggregate(ctx context.Context, pool []Candidate, sctx *ScoringContext, engines []Engine) (*Ensemble, error) {
	if sctx == nil {
		return nil, fmt.Errorf("%w: nil context", ErrInvalidContext)
	}
	if err := checkWeightSum(sctx.Weights); err != nil {
		return nil, err
	}
	if len(engines) == 0 {
		return nil, ErrNoEngines
	}

	if len(pool) == 0 {
		return &Ensemble{
			Results:     []EnsembleResult{},
			State:       StateAggregating,
			EnginesUsed: []string{},
		}, nil
	}

	if len(pool) > a.cfg.Limits.MaxCandidates {
		pool = pool[:a.cfg.Limits.MaxCandidates]
	}

	names := engineNames(engines)
	fingerprint := Fingerprint(sctx, names, pool)

	if a.cfg.Cache.Enabled {
		if cached, ok := a.cache.get(fingerprint); ok {
			metrics.CacheHits.Inc()
			cached.CacheHit = true
			a.logger.Debug().Str("fingerprint", fingerprint).Msg("ensemble cache hit")
			return cached, nil
		}
		metrics.CacheMisses.Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Limits.RequestTimeout)
	defer cancel()

	outcomes := a.fanOut(ctx, pool, sctx, engines)
	ensemble := a.merge(pool, sctx, outcomes)
	ensemble.Fingerprint = fingerprint

	// Fallback ensembles are not cached: the next request with the same
	// fingerprint retries the engines.
	if a.cfg.Cache.Enabled && ensemble.State != StateFallback {
		a.cache.put(fingerprint, ensemble)
	}

	return ensemble, nil
}

// fanOut invokes every engine concurrently and gathers outcomes until all
// report or the request deadline elapses. Engines that never report are
// recorded as timed out; their eventual votes are discarded.
func (a *Aggregator) fanOut(ctx context.Context, pool []Candidate, sctx *ScoringContext, engines []Engine) []engineOutcome {
	ch := make(chan engineOutcome, len(engines))
	for _, eng := range engines {
		go func(eng Engine) {
			ch <- a.invoke(ctx, eng, pool, sctx)
		}(eng)
	}

	outcomes := make([]engineOutcome, 0, len(engines))
	seen := make(map[string]struct{}, len(engines))

gather:
	for range engines {
		select {
		case out := <-ch:
			outcomes = append(outcomes, out)
			seen[out.name] = struct{}{}
		case <-ctx.Done():
			break gather
		}
	}

	for _, eng := range engines {
		if _, ok := seen[eng.Name()]; !ok {
			outcomes = append(outcomes, engineOutcome{
				name: eng.Name(),
				err:  NewEngineError(eng.Name(), EngineTimeout, ctx.Err()),
			})
		}
	}

	return outcomes
}

// invoke runs one engine under the global concurrency cap.
func (a *Aggregator) invoke(ctx context.Context, eng Engine, pool []Candidate, sctx *ScoringContext) engineOutcome {
	name := eng.Name()
	start := time.Now()

	if err := a.sem.Acquire(ctx, 1); err != nil {
		metrics.ObserveEngine(name, "timeout", time.Since(start))
		return engineOutcome{name: name, err: NewEngineError(name, EngineTimeout, err)}
	}
	defer a.sem.Release(1)

	votes, err := eng.Score(ctx, pool, sctx)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		metrics.ObserveEngine(name, engineStatus(err), elapsed)
	case len(votes) == 0:
		metrics.ObserveEngine(name, "empty", elapsed)
	default:
		metrics.ObserveEngine(name, "ok", elapsed)
	}

	return engineOutcome{name: name, votes: votes, err: err, elapsed: elapsed}
}

// engineStatus maps an engine error to a metrics label.
func engineStatus(err error) string {
	if ee, ok := IsEngineError(err); ok {
		return ee.Kind.String()
	}
	return "internal"
}

// merge combines engine outcomes into the final ensemble. Outcomes are
// processed in engine-name order so floating-point accumulation is
// independent of arrival order.
func (a *Aggregator) merge(pool []Candidate, sctx *ScoringContext, outcomes []engineOutcome) *Ensemble {
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].name < outcomes[j].name })

	byID := make(map[string]Candidate, len(pool))
	for _, c := range pool {
		byID[c.ID] = c
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	components := make(map[string]map[string]float64)
	votesByID := make(map[string][]EngineVote)
	voteCounts := make(map[string]int)

	used := make([]string, 0, len(outcomes))
	degraded := make([]string, 0)

	for _, out := range outcomes {
		if out.err != nil {
			a.logger.Warn().
				Str("engine", out.name).
				Err(out.err).
				Msg("engine degraded for this request")
			degraded = append(degraded, out.name)
			continue
		}
		if len(out.votes) == 0 {
			continue
		}

		used = append(used, out.name)
		trust := a.cfg.Engines.TrustWeight(out.name)
		a.tallyEngine(out, trust, byID, sums, counts, components, votesByID, voteCounts)
	}

	if len(used) == 0 {
		a.logger.Warn().
			Int("candidates", len(pool)).
			Strs("degraded", degraded).
			Msg("all engines failed, serving quality-sorted fallback")
		metrics.FallbacksTotal.Inc()
		return a.fallback(pool, degraded)
	}

	results := make([]EnsembleResult, 0, len(sums))
	for id, sum := range sums {
		results = append(results, EnsembleResult{
			CandidateID: id,
			Candidate:   byID[id],
			Score:       clamp01(sum / float64(counts[id])),
			Components:  components[id],
			Votes:       votesByID[id],
			Confidence:  float64(counts[id]) / float64(len(used)),
		})
	}

	sortResults(results)
	assignRanks(results)

	return &Ensemble{
		Results:     results,
		State:       StateAggregating,
		EnginesUsed: used,
		Degraded:    degraded,
		VoteCounts:  voteCounts,
	}
}

// tallyEngine folds one engine's votes into the accumulators. Within an
// engine, votes are ordered by its own ranking (raw score descending, then
// candidate ID for determinism); the rank-derived score decays as
// 1/(1+position).
func (a *Aggregator) tallyEngine(
	out engineOutcome,
	trust float64,
	byID map[string]Candidate,
	sums map[string]float64,
	counts map[string]int,
	components map[string]map[string]float64,
	votesByID map[string][]EngineVote,
	voteCounts map[string]int,
) {
	votes := append([]EngineVote(nil), out.votes...)
	sort.Slice(votes, func(i, j int) bool {
		if votes[i].Score != votes[j].Score {
			return votes[i].Score > votes[j].Score
		}
		return votes[i].CandidateID < votes[j].CandidateID
	})

	rankWeight := a.cfg.Engines.RankWeight
	seen := make(map[string]struct{}, len(votes))

	pos := 0
	for _, vote := range votes {
		if _, ok := byID[vote.CandidateID]; !ok {
			continue // engines must not invent candidates
		}
		if _, dup := seen[vote.CandidateID]; dup {
			continue
		}
		seen[vote.CandidateID] = struct{}{}

		rankScore := 1.0 / float64(1+pos)
		pos++

		score := clamp01(vote.Score)
		contribution := (rankWeight*rankScore + (1-rankWeight)*score) * trust

		id := vote.CandidateID
		sums[id] += contribution
		counts[id]++
		if components[id] == nil {
			components[id] = make(map[string]float64)
		}
		components[id][out.name] = contribution
		votesByID[id] = append(votesByID[id], vote)
		voteCounts[out.name]++
	}
}

// fallback ranks the pool by raw quality score, descending, with candidate
// ID as the tie-break. Never fails.
func (a *Aggregator) fallback(pool []Candidate, degraded []string) *Ensemble {
	results := make([]EnsembleResult, 0, len(pool))
	seen := make(map[string]struct{}, len(pool))
	for _, c := range pool {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		results = append(results, EnsembleResult{
			CandidateID: c.ID,
			Candidate:   c,
			Score:       qualityScore(c),
			Components:  map[string]float64{SignalQuality: qualityScore(c)},
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Candidate.Quality != results[j].Candidate.Quality {
			return results[i].Candidate.Quality > results[j].Candidate.Quality
		}
		return results[i].CandidateID < results[j].CandidateID
	})
	assignRanks(results)

	return &Ensemble{
		Results:     results,
		State:       StateFallback,
		EnginesUsed: []string{},
		Degraded:    degraded,
	}
}

// sortResults applies the deterministic tie-break order: score descending,
// quality descending, candidate ID ascending.
func sortResults(results []EnsembleResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Candidate.Quality != results[j].Candidate.Quality {
			return results[i].Candidate.Quality > results[j].Candidate.Quality
		}
		return results[i].CandidateID < results[j].CandidateID
	})
}

// assignRanks sets 1-based rank positions after a sort.
func assignRanks(results []EnsembleResult) {
	for i := range results {
		results[i].Rank = i + 1
	}
}

// engineNames extracts engine identifiers.
func engineNames(engines []Engine) []string {
	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.Name())
	}
	return names
}
