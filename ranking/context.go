// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ContextParams are the request parameters a ScoringContext is built from.
type ContextParams struct {
	// Query is the free-text query, used for fingerprinting and by the
	// semantic engine.
	Query string

	// Technologies are the technologies the requester cares about.
	Technologies []string

	// Intent describes what the requester is trying to accomplish.
	Intent Intent

	// Skill is the requester's skill level.
	Skill Difficulty

	// MaxRecommendations caps the final list size. Zero selects the
	// configured default.
	MaxRecommendations int

	// Engines overrides the configured engine list. Empty selects the
	// configured default.
	Engines []string

	// DisablePersonalization turns the personalization stage off for this
	// request even when globally enabled.
	DisablePersonalization bool

	// DisableDiversity turns the diversity stage off for this request even
	// when globally enabled.
	DisableDiversity bool
}

// ScoringContext is the immutable, context-derived weight table plus
// thresholds for one request. It is created once per request, read-only
// thereafter, and never shared across requests.
type ScoringContext struct {
	// Query is the normalized free-text query.
	Query string

	// Technologies are the lowercased requested technologies.
	Technologies []string

	// Intent is the request intent.
	Intent Intent

	// Skill is the requester's skill level.
	Skill Difficulty

	// Weights is the resolved per-signal weight table. Sums to 1.0 within
	// tolerance; enforced at construction.
	Weights map[string]float64

	// Engines is the resolved engine list for this request.
	Engines []string

	// MaxRecommendations is the final list size cap.
	MaxRecommendations int

	// Diversity is the diversity configuration snapshot for this request.
	Diversity DiversityConfig

	// PersonalizationEnabled reports whether the personalization stage
	// runs for this request.
	PersonalizationEnabled bool

	// DiversityEnabled reports whether the diversity stage runs for this
	// request.
	DiversityEnabled bool
}

// intentOverrides maps each intent to multiplicative emphasis applied on
// top of the base weights before renormalization. Signals not listed keep
// their base weight.
var intentOverrides = map[Intent]map[string]float64{
	IntentLearning: {
		SignalDifficulty: 1.5,
		SignalIntent:     1.4,
		SignalTechnology: 0.9,
	},
	IntentProject: {
		SignalTechnology: 1.6,
		SignalQuality:    1.1,
		SignalIntent:     0.8,
	},
	IntentTask: {
		SignalContentType: 1.5,
		SignalTechnology:  1.2,
		SignalDifficulty:  0.7,
	},
	IntentResearch: {
		SignalQuality:    1.5,
		SignalIntent:     1.2,
		SignalDifficulty: 0.8,
	},
	IntentPractice: {
		SignalIntent:     1.5,
		SignalDifficulty: 1.2,
		SignalQuality:    0.9,
	},
}

// skillAdjustments maps each skill level to multiplicative adjustments
// applied after the intent override.
var skillAdjustments = map[Difficulty]map[string]float64{
	DifficultyBeginner: {
		SignalDifficulty: 1.3,
		SignalQuality:    1.1,
	},
	DifficultyIntermediate: {},
	DifficultyAdvanced: {
		SignalTechnology: 1.2,
		SignalDifficulty: 0.8,
	},
}

// NewScoringContext resolves the weight table for the request and builds an
// immutable ScoringContext. Resolution order: base weights, intent
// override, skill-level adjustment, renormalization to sum 1.0.
//
// Construction fails with an ErrInvalidContext-wrapped error if the signal
// set is empty or any weight is negative after normalization; nothing else
// is invoked on a rejected context.
func NewScoringContext(params ContextParams, cfg *Config) (*ScoringContext, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	weights, err := resolveWeights(cfg.Weights, params.Intent, params.Skill)
	if err != nil {
		return nil, err
	}

	limit := params.MaxRecommendations
	if limit <= 0 {
		limit = cfg.Limits.DefaultLimit
	}
	if limit > cfg.Limits.MaxLimit {
		limit = cfg.Limits.MaxLimit
	}

	engines := params.Engines
	if len(engines) == 0 {
		engines = cfg.Engines.Enabled
	}
	if len(engines) == 0 {
		return nil, fmt.Errorf("%w: empty engine list", ErrInvalidContext)
	}

	return &ScoringContext{
		Query:                  strings.TrimSpace(params.Query),
		Technologies:           normalizeTechnologies(params.Technologies),
		Intent:                 params.Intent,
		Skill:                  params.Skill,
		Weights:                weights,
		Engines:                append([]string(nil), engines...),
		MaxRecommendations:     limit,
		Diversity:              snapshotDiversity(cfg.Diversity),
		PersonalizationEnabled: cfg.Personalization.Enabled && !params.DisablePersonalization,
		DiversityEnabled:       cfg.Diversity.Enabled && !params.DisableDiversity,
	}, nil
}

// resolveWeights applies the intent and skill lookup tables to the base
// weights and renormalizes the result.
func resolveWeights(base SignalWeights, intent Intent, skill Difficulty) (map[string]float64, error) {
	weights := base.Normalize().ToMap()
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: empty signal set", ErrInvalidContext)
	}

	for signal, mult := range intentOverrides[intent] {
		weights[signal] *= mult
	}
	for signal, mult := range skillAdjustments[skill] {
		weights[signal] *= mult
	}

	var sum float64
	for signal, v := range weights {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: signal %s resolved to %f", ErrInvalidContext, signal, v)
		}
		sum += v
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: weight table sums to %f", ErrInvalidContext, sum)
	}

	for signal := range weights {
		weights[signal] /= sum
	}

	if err := checkWeightSum(weights); err != nil {
		return nil, err
	}
	return weights, nil
}

// checkWeightSum verifies the normalized table sums to 1.0 within
// tolerance.
func checkWeightSum(weights map[string]float64) error {
	var sum float64
	for _, v := range weights {
		sum += v
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: normalized weights sum to %f", ErrInvalidContext, sum)
	}
	return nil
}

// normalizeTechnologies lowercases, trims and deduplicates technology tags,
// preserving a deterministic order.
func normalizeTechnologies(techs []string) []string {
	seen := make(map[string]struct{}, len(techs))
	out := make([]string, 0, len(techs))
	for _, t := range techs {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// snapshotDiversity deep-copies the diversity configuration so later config
// reloads cannot leak into an in-flight request.
func snapshotDiversity(d DiversityConfig) DiversityConfig {
	d.DimensionWeights = copyFloatMap(d.DimensionWeights)
	d.MaxShare = copyFloatMap(d.MaxShare)
	return d
}
