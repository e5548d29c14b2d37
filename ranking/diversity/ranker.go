// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package diversity

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rankfusion/ranking"
)

// boostComponent is the breakdown key recording a diversity boost.
const boostComponent = "diversity_boost"

// Ranker improves list variety when it falls below the configured target.
// It implements ranking.Reranker and ranking.Measurer. Stateless and safe
// for concurrent use.
type Ranker struct {
	cfg    ranking.DiversityConfig
	logger zerolog.Logger
}

// NewRanker creates a diversity ranker. The config supplies the dimension
// weights for standalone Measure calls; per-request thresholds come from
// the scoring context snapshot.
func NewRanker(cfg ranking.DiversityConfig, logger zerolog.Logger) *Ranker {
	return &Ranker{
		cfg:    cfg,
		logger: logger.With().Str("component", "diversity").Logger(),
	}
}

// Name returns "diversity".
func (r *Ranker) Name() string {
	return "diversity"
}

// Measure returns the overall diversity of a result list in [0, 1].
func (r *Ranker) Measure(results []ranking.EnsembleResult) float64 {
	return Measure(results, r.cfg.DimensionWeights).Overall
}

// Rerank returns the results reordered for variety. Lists already at or
// above the target threshold come back unchanged. Otherwise a greedy pass
// boosts high-quality results that introduce new category values, the list
// is re-sorted, and per-dimension share caps defer over-represented
// results toward the tail. No result is ever dropped.
func (r *Ranker) Rerank(_ context.Context, results []ranking.EnsembleResult, sctx *ranking.ScoringContext) []ranking.EnsembleResult {
	if len(results) < 2 {
		return results
	}

	cfg := sctx.Diversity
	metrics := Measure(results, cfg.DimensionWeights)
	if metrics.Overall >= cfg.TargetThreshold {
		return results
	}

	r.logger.Debug().
		Float64("overall", metrics.Overall).
		Float64("target", cfg.TargetThreshold).
		Int("results", len(results)).
		Msg("diversity below target, reranking")

	reranked := r.greedyBoost(results, cfg)
	sortByScore(reranked)
	return enforceShares(reranked, cfg, sctx.MaxRecommendations)
}

// greedyBoost walks the list in score order and boosts results that
// introduce category values not yet seen above them. Only results whose
// original score clears the quality floor are boosted; variety never
// promotes weak content.
func (r *Ranker) greedyBoost(results []ranking.EnsembleResult, cfg ranking.DiversityConfig) []ranking.EnsembleResult {
	out := make([]ranking.EnsembleResult, len(results))
	copy(out, results)

	seen := map[string]map[string]struct{}{
		ranking.DimContentType: {},
		ranking.DimTechnology:  {},
		ranking.DimDifficulty:  {},
		ranking.DimDomain:      {},
	}

	for i := range out {
		novel := 0
		for dim, values := range seen {
			for _, value := range categoryValues(out[i].Candidate, dim) {
				if _, ok := values[value]; !ok {
					values[value] = struct{}{}
					novel++
				}
			}
		}

		if novel == 0 || out[i].Score < cfg.PreserveQuality {
			continue
		}

		boost := cfg.BoostPerNewCategory * float64(novel)
		boosted := out[i].Score + boost
		if boosted > 1 {
			boosted = 1
		}

		components := make(map[string]float64, len(out[i].Components)+1)
		for k, v := range out[i].Components {
			components[k] = v
		}
		components[boostComponent] = boosted - out[i].Score

		out[i].Score = boosted
		out[i].Components = components
	}

	return out
}

// categoryValues returns a candidate's values for one capped dimension.
// Technology uses the full tag set for novelty but only the primary tag
// for share accounting (see primaryValue).
func categoryValues(c ranking.Candidate, dim string) []string {
	switch dim {
	case ranking.DimContentType:
		return []string{c.ContentType.String()}
	case ranking.DimTechnology:
		if len(c.Technologies) == 0 {
			return []string{"none"}
		}
		return c.Technologies
	case ranking.DimDifficulty:
		return []string{c.Difficulty.String()}
	case ranking.DimDomain:
		domain := c.Domain()
		if domain == "" {
			domain = "unknown"
		}
		return []string{domain}
	default:
		return nil
	}
}

// primaryValue is the single value a candidate counts against a dimension
// share cap.
func primaryValue(c ranking.Candidate, dim string) string {
	values := categoryValues(c, dim)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// enforceShares defers results whose category already saturates a
// dimension's share cap. Deferred results keep their relative order and
// are appended after the compliant ones; nothing is dropped.
//
// The caps apply to the list the caller will actually serve: servedLimit
// is the truncation point the pipeline applies after reranking, so the
// limits are computed over min(servedLimit, len(results)), not the full
// pre-truncation pool.
func enforceShares(results []ranking.EnsembleResult, cfg ranking.DiversityConfig, servedLimit int) []ranking.EnsembleResult {
	if len(cfg.MaxShare) == 0 {
		return results
	}

	served := len(results)
	if servedLimit > 0 && servedLimit < served {
		served = servedLimit
	}

	limits := make(map[string]int, len(cfg.MaxShare))
	for dim, share := range cfg.MaxShare {
		limits[dim] = int(math.Ceil(share * float64(served)))
	}

	counts := make(map[string]map[string]int, len(limits))
	for dim := range limits {
		counts[dim] = make(map[string]int)
	}

	kept := make([]ranking.EnsembleResult, 0, len(results))
	deferred := make([]ranking.EnsembleResult, 0)

	for i := range results {
		over := false
		for dim, limit := range limits {
			value := primaryValue(results[i].Candidate, dim)
			if counts[dim][value] >= limit {
				over = true
				break
			}
		}

		if over {
			deferred = append(deferred, results[i])
			continue
		}

		for dim := range limits {
			counts[dim][primaryValue(results[i].Candidate, dim)]++
		}
		kept = append(kept, results[i])
	}

	return append(kept, deferred...)
}

// sortByScore applies the deterministic order: score descending, quality
// descending, candidate ID ascending.
func sortByScore(results []ranking.EnsembleResult) {
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
