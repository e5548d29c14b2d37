// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package ranking

import (
	"fmt"
	"time"
)

// weightSumTolerance is the allowed deviation from 1.0 for a normalized
// weight table.
const weightSumTolerance = 0.01

// Config contains all configuration for the ranking pipeline. It is
// constructed once at startup (see the config package for file/env
// loading), validated, and never mutated afterwards.
type Config struct {
	// Weights defines the base per-signal weights. They are normalized at
	// context construction, so they don't need to sum to 1.0.
	Weights SignalWeights `json:"weights" koanf:"weights"`

	// Scoring contains candidate scorer match parameters.
	Scoring ScoringConfig `json:"scoring" koanf:"scoring"`

	// Engines contains engine enablement, trust and isolation parameters.
	Engines EnginesConfig `json:"engines" koanf:"engines"`

	// Personalization contains per-user adjustment parameters.
	Personalization PersonalizationConfig `json:"personalization" koanf:"personalization"`

	// Diversity contains diversity measurement and reranking parameters.
	Diversity DiversityConfig `json:"diversity" koanf:"diversity"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Cache contains ensemble cache parameters.
	Cache CacheConfig `json:"cache" koanf:"cache"`
}

// SignalWeights defines the relative contribution of each scoring signal.
type SignalWeights struct {
	// Technology is the weight for technology-overlap matching.
	Technology float64 `json:"technology" koanf:"technology" validate:"gte=0"`

	// ContentType is the weight for content-type matching.
	ContentType float64 `json:"content_type" koanf:"content_type" validate:"gte=0"`

	// Difficulty is the weight for difficulty alignment.
	Difficulty float64 `json:"difficulty" koanf:"difficulty" validate:"gte=0"`

	// Quality is the weight for the upstream quality score.
	Quality float64 `json:"quality" koanf:"quality" validate:"gte=0"`

	// Intent is the weight for intent alignment.
	Intent float64 `json:"intent" koanf:"intent" validate:"gte=0"`
}

// Normalize returns a copy with weights scaled to sum to 1.0.
// All-zero weights normalize to an equal split.
func (w SignalWeights) Normalize() SignalWeights {
	sum := w.Technology + w.ContentType + w.Difficulty + w.Quality + w.Intent
	if sum == 0 {
		const equal = 1.0 / 5.0
		return SignalWeights{
			Technology: equal, ContentType: equal, Difficulty: equal,
			Quality: equal, Intent: equal,
		}
	}
	return SignalWeights{
		Technology:  w.Technology / sum,
		ContentType: w.ContentType / sum,
		Difficulty:  w.Difficulty / sum,
		Quality:     w.Quality / sum,
		Intent:      w.Intent / sum,
	}
}

// ToMap returns the weights as a signal-name-keyed map.
func (w SignalWeights) ToMap() map[string]float64 {
	return map[string]float64{
		SignalTechnology:  w.Technology,
		SignalContentType: w.ContentType,
		SignalDifficulty:  w.Difficulty,
		SignalQuality:     w.Quality,
		SignalIntent:      w.Intent,
	}
}

// ScoringConfig contains candidate scorer match parameters. These were ad
// hoc constants in earlier revisions; they are configuration on purpose.
type ScoringConfig struct {
	// ContentTypeFamilyScore is awarded when the candidate's content type
	// is in the same family as the preferred type (e.g. tutorial/example).
	// Default: 0.8.
	ContentTypeFamilyScore float64 `json:"content_type_family_score" koanf:"content_type_family_score" validate:"gte=0,lte=1"`

	// ContentTypeMismatchScore is awarded when the content type is
	// unrelated to the preferred type. Default: 0.4.
	ContentTypeMismatchScore float64 `json:"content_type_mismatch_score" koanf:"content_type_mismatch_score" validate:"gte=0,lte=1"`

	// DifficultyNearScore is awarded one difficulty level away.
	// Default: 0.7.
	DifficultyNearScore float64 `json:"difficulty_near_score" koanf:"difficulty_near_score" validate:"gte=0,lte=1"`

	// DifficultyFarScore is awarded two or more levels away. Default: 0.4.
	DifficultyFarScore float64 `json:"difficulty_far_score" koanf:"difficulty_far_score" validate:"gte=0,lte=1"`

	// ExpandSynonyms controls technology synonym expansion ("js" matches
	// "javascript"). Default: true.
	ExpandSynonyms bool `json:"expand_synonyms" koanf:"expand_synonyms"`
}

// EnginesConfig contains engine enablement, trust and isolation parameters.
type EnginesConfig struct {
	// Enabled lists the engines invoked per request, in registry order.
	// Default: content, semantic, collaborative, quality.
	Enabled []string `json:"enabled" koanf:"enabled"`

	// TrustWeights maps engine names to trust multipliers applied to their
	// votes. Missing engines default to 1.0.
	TrustWeights map[string]float64 `json:"trust_weights" koanf:"trust_weights"`

	// Timeout is the per-engine invocation deadline. Default: 5s.
	Timeout time.Duration `json:"timeout" koanf:"timeout" validate:"gt=0"`

	// BreakerFailureThreshold is the number of consecutive failures that
	// opens an engine's circuit breaker. Default: 5.
	BreakerFailureThreshold uint32 `json:"breaker_failure_threshold" koanf:"breaker_failure_threshold" validate:"gte=1"`

	// BreakerOpenTimeout is how long an open breaker waits before probing
	// the engine again. Default: 30s.
	BreakerOpenTimeout time.Duration `json:"breaker_open_timeout" koanf:"breaker_open_timeout" validate:"gt=0"`

	// RankWeight is the share of a vote derived from the engine's own
	// ordering; the remainder comes from the normalized raw score.
	// Default: 0.6.
	RankWeight float64 `json:"rank_weight" koanf:"rank_weight" validate:"gte=0,lte=1"`
}

// TrustWeight returns the trust multiplier for an engine, defaulting to 1.0.
func (e EnginesConfig) TrustWeight(name string) float64 {
	if w, ok := e.TrustWeights[name]; ok && w >= 0 {
		return w
	}
	return 1.0
}

// PersonalizationConfig contains per-user adjustment parameters.
type PersonalizationConfig struct {
	// Enabled controls whether the pipeline runs the adjuster at all.
	// Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// MinInteractions is the minimum recorded interactions before a
	// profile may influence ranking. Default: 3.
	MinInteractions int `json:"min_interactions" koanf:"min_interactions" validate:"gte=0"`

	// ConfidenceThreshold is the minimum profile confidence before a
	// profile may influence ranking. Default: 0.3.
	ConfidenceThreshold float64 `json:"confidence_threshold" koanf:"confidence_threshold" validate:"gte=0,lte=1"`

	// MaxBoostFactor caps the blend factor between the base score and the
	// preference-boosted score. Default: 0.2.
	MaxBoostFactor float64 `json:"max_boost_factor" koanf:"max_boost_factor" validate:"gte=0,lte=1"`

	// LearningRate is the EMA alpha applied on feedback. Default: 0.1.
	LearningRate float64 `json:"learning_rate" koanf:"learning_rate" validate:"gt=0,lte=1"`

	// DecayFactor is the multiplicative decay applied periodically to all
	// preference weights. Default: 0.95.
	DecayFactor float64 `json:"decay_factor" koanf:"decay_factor" validate:"gt=0,lte=1"`

	// DecayInterval is the number of interactions between decay passes on
	// a profile. Default: 10.
	DecayInterval int `json:"decay_interval" koanf:"decay_interval" validate:"gte=1"`

	// MinPreference prunes preference entries that decay below it.
	// Default: 0.01.
	MinPreference float64 `json:"min_preference" koanf:"min_preference" validate:"gte=0"`
}

// DiversityConfig contains diversity measurement and reranking parameters.
// The numeric defaults are tunables, not derived constants.
type DiversityConfig struct {
	// Enabled controls whether the pipeline runs the reranker at all.
	// Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TargetThreshold is the overall diversity score below which greedy
	// reranking kicks in. Default: 0.7.
	TargetThreshold float64 `json:"target_threshold" koanf:"target_threshold" validate:"gte=0,lte=1"`

	// PreserveQuality is the minimum original score a result must have to
	// receive a diversity boost. Low-quality content is never boosted
	// purely for variety. Default: 0.7.
	PreserveQuality float64 `json:"preserve_quality" koanf:"preserve_quality" validate:"gte=0,lte=1"`

	// BoostPerNewCategory is the boost added per newly introduced category
	// value during greedy reranking. Default: 0.05.
	BoostPerNewCategory float64 `json:"boost_per_new_category" koanf:"boost_per_new_category" validate:"gte=0"`

	// DimensionWeights combines per-dimension entropies into the overall
	// score. Keys: content_type, technology, difficulty, domain, semantic.
	DimensionWeights map[string]float64 `json:"dimension_weights" koanf:"dimension_weights"`

	// MaxShare caps the fraction of the final list a single category value
	// may occupy per dimension. Keys: content_type, technology, domain.
	MaxShare map[string]float64 `json:"max_share" koanf:"max_share"`
}

// Diversity dimension names.
const (
	DimContentType = "content_type"
	DimTechnology  = "technology"
	DimDifficulty  = "difficulty"
	DimDomain      = "domain"
	DimSemantic    = "semantic"
)

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// MaxCandidates is the maximum pool size scored per request.
	// Default: 1000.
	MaxCandidates int `json:"max_candidates" koanf:"max_candidates" validate:"gte=1"`

	// DefaultLimit is the number of results returned when the request does
	// not specify one. Default: 20.
	DefaultLimit int `json:"default_limit" koanf:"default_limit" validate:"gte=1"`

	// MaxLimit caps the requested result count. Default: 100.
	MaxLimit int `json:"max_limit" koanf:"max_limit" validate:"gte=1"`

	// RequestTimeout is the overall per-request deadline. Engines still
	// running when it elapses are abandoned. Default: 10s.
	RequestTimeout time.Duration `json:"request_timeout" koanf:"request_timeout" validate:"gt=0"`

	// MaxConcurrentEngines is the global cap on concurrently executing
	// engine invocations across requests. Default: 16.
	MaxConcurrentEngines int `json:"max_concurrent_engines" koanf:"max_concurrent_engines" validate:"gte=1"`
}

// CacheConfig contains ensemble cache parameters.
type CacheConfig struct {
	// Enabled controls whether aggregation results are cached.
	// Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is the cache entry time-to-live. Entries expire by TTL, never by
	// manual invalidation. Default: 5m.
	TTL time.Duration `json:"ttl" koanf:"ttl" validate:"gt=0"`

	// MaxEntries is the maximum number of cached ensembles. Default: 4096.
	MaxEntries int `json:"max_entries" koanf:"max_entries" validate:"gte=1"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: SignalWeights{
			Technology:  0.30,
			ContentType: 0.15,
			Difficulty:  0.15,
			Quality:     0.25,
			Intent:      0.15,
		},
		Scoring: ScoringConfig{
			ContentTypeFamilyScore:   0.8,
			ContentTypeMismatchScore: 0.4,
			DifficultyNearScore:      0.7,
			DifficultyFarScore:       0.4,
			ExpandSynonyms:           true,
		},
		Engines: EnginesConfig{
			Enabled:                 []string{"content", "semantic", "collaborative", "quality"},
			TrustWeights:            map[string]float64{},
			Timeout:                 5 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerOpenTimeout:      30 * time.Second,
			RankWeight:              0.6,
		},
		Personalization: PersonalizationConfig{
			Enabled:             true,
			MinInteractions:     3,
			ConfidenceThreshold: 0.3,
			MaxBoostFactor:      0.2,
			LearningRate:        0.1,
			DecayFactor:         0.95,
			DecayInterval:       10,
			MinPreference:       0.01,
		},
		Diversity: DiversityConfig{
			Enabled:             true,
			TargetThreshold:     0.7,
			PreserveQuality:     0.7,
			BoostPerNewCategory: 0.05,
			DimensionWeights: map[string]float64{
				DimContentType: 0.20,
				DimTechnology:  0.25,
				DimDifficulty:  0.15,
				DimDomain:      0.20,
				DimSemantic:    0.20,
			},
			MaxShare: map[string]float64{
				DimContentType: 0.6,
				DimTechnology:  0.9,
				DimDomain:      0.8,
			},
		},
		Limits: LimitsConfig{
			MaxCandidates:        1000,
			DefaultLimit:         20,
			MaxLimit:             100,
			RequestTimeout:       10 * time.Second,
			MaxConcurrentEngines: 16,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 4096,
		},
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	w := c.Weights
	for name, v := range w.ToMap() {
		if v < 0 {
			return fmt.Errorf("%w: weights.%s must be non-negative, got %f", ErrInvalidConfig, name, v)
		}
	}

	if len(c.Engines.Enabled) == 0 {
		return fmt.Errorf("%w: engines.enabled must not be empty", ErrInvalidConfig)
	}
	if c.Engines.Timeout <= 0 {
		return fmt.Errorf("%w: engines.timeout must be positive, got %v", ErrInvalidConfig, c.Engines.Timeout)
	}
	if c.Engines.RankWeight < 0 || c.Engines.RankWeight > 1 {
		return fmt.Errorf("%w: engines.rank_weight must be in [0, 1], got %f", ErrInvalidConfig, c.Engines.RankWeight)
	}
	for name, tw := range c.Engines.TrustWeights {
		if tw < 0 {
			return fmt.Errorf("%w: engines.trust_weights.%s must be non-negative, got %f", ErrInvalidConfig, name, tw)
		}
	}

	if c.Personalization.ConfidenceThreshold < 0 || c.Personalization.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: personalization.confidence_threshold must be in [0, 1], got %f",
			ErrInvalidConfig, c.Personalization.ConfidenceThreshold)
	}
	if c.Personalization.MaxBoostFactor < 0 || c.Personalization.MaxBoostFactor > 1 {
		return fmt.Errorf("%w: personalization.max_boost_factor must be in [0, 1], got %f",
			ErrInvalidConfig, c.Personalization.MaxBoostFactor)
	}
	if c.Personalization.LearningRate <= 0 || c.Personalization.LearningRate > 1 {
		return fmt.Errorf("%w: personalization.learning_rate must be in (0, 1], got %f",
			ErrInvalidConfig, c.Personalization.LearningRate)
	}
	if c.Personalization.DecayFactor <= 0 || c.Personalization.DecayFactor > 1 {
		return fmt.Errorf("%w: personalization.decay_factor must be in (0, 1], got %f",
			ErrInvalidConfig, c.Personalization.DecayFactor)
	}

	if c.Diversity.TargetThreshold < 0 || c.Diversity.TargetThreshold > 1 {
		return fmt.Errorf("%w: diversity.target_threshold must be in [0, 1], got %f",
			ErrInvalidConfig, c.Diversity.TargetThreshold)
	}
	if c.Diversity.PreserveQuality < 0 || c.Diversity.PreserveQuality > 1 {
		return fmt.Errorf("%w: diversity.preserve_quality must be in [0, 1], got %f",
			ErrInvalidConfig, c.Diversity.PreserveQuality)
	}
	for dim, share := range c.Diversity.MaxShare {
		if share <= 0 || share > 1 {
			return fmt.Errorf("%w: diversity.max_share.%s must be in (0, 1], got %f", ErrInvalidConfig, dim, share)
		}
	}

	if c.Limits.MaxCandidates < 1 {
		return fmt.Errorf("%w: limits.max_candidates must be positive, got %d", ErrInvalidConfig, c.Limits.MaxCandidates)
	}
	if c.Limits.DefaultLimit < 1 {
		return fmt.Errorf("%w: limits.default_limit must be positive, got %d", ErrInvalidConfig, c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("%w: limits.max_limit must be >= limits.default_limit, got %d < %d",
			ErrInvalidConfig, c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}
	if c.Limits.MaxConcurrentEngines < 1 {
		return fmt.Errorf("%w: limits.max_concurrent_engines must be positive, got %d",
			ErrInvalidConfig, c.Limits.MaxConcurrentEngines)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache.ttl must be positive, got %v", ErrInvalidConfig, c.Cache.TTL)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("%w: cache.max_entries must be positive, got %d", ErrInvalidConfig, c.Cache.MaxEntries)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c

	out.Engines.Enabled = append([]string(nil), c.Engines.Enabled...)
	out.Engines.TrustWeights = copyFloatMap(c.Engines.TrustWeights)
	out.Diversity.DimensionWeights = copyFloatMap(c.Diversity.DimensionWeights)
	out.Diversity.MaxShare = copyFloatMap(c.Diversity.MaxShare)

	return &out
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
