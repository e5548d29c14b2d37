// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package ranking

import (
	"context"
	"strings"
	"time"
)

// ContentType classifies a candidate item.
type ContentType int

const (
	// ContentOther is the default for unclassified content.
	ContentOther ContentType = iota
	// ContentTutorial is step-by-step instructional content.
	ContentTutorial
	// ContentDocumentation is reference documentation.
	ContentDocumentation
	// ContentExample is sample code or worked examples.
	ContentExample
	// ContentArticle is long-form editorial content.
	ContentArticle
	// ContentVideo is video content.
	ContentVideo
)

// String returns a human-readable name for the content type.
func (t ContentType) String() string {
	switch t {
	case ContentTutorial:
		return "tutorial"
	case ContentDocumentation:
		return "documentation"
	case ContentExample:
		return "example"
	case ContentArticle:
		return "article"
	case ContentVideo:
		return "video"
	case ContentOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseContentType converts a string to a ContentType.
// Unrecognized values map to ContentOther.
func ParseContentType(s string) ContentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tutorial":
		return ContentTutorial
	case "documentation", "docs", "reference":
		return ContentDocumentation
	case "example", "sample":
		return ContentExample
	case "article", "blog":
		return ContentArticle
	case "video":
		return ContentVideo
	default:
		return ContentOther
	}
}

// Difficulty is a three-level difficulty scale. It doubles as the user
// skill level in ScoringContext since both use the same scale.
type Difficulty int

const (
	// DifficultyBeginner is entry-level content.
	DifficultyBeginner Difficulty = iota
	// DifficultyIntermediate is mid-level content.
	DifficultyIntermediate
	// DifficultyAdvanced is expert-level content.
	DifficultyAdvanced
)

// String returns a human-readable difficulty name.
func (d Difficulty) String() string {
	switch d {
	case DifficultyBeginner:
		return "beginner"
	case DifficultyIntermediate:
		return "intermediate"
	case DifficultyAdvanced:
		return "advanced"
	default:
		return "unknown"
	}
}

// ParseDifficulty converts a string to a Difficulty.
// Unrecognized values map to DifficultyIntermediate.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner", "basic", "easy":
		return DifficultyBeginner
	case "advanced", "expert", "hard":
		return DifficultyAdvanced
	default:
		return DifficultyIntermediate
	}
}

// Intent describes what the requester is trying to accomplish.
// It selects the weight-table override applied during context construction.
type Intent int

const (
	// IntentLearning favors tutorials and difficulty alignment.
	IntentLearning Intent = iota
	// IntentProject favors technology match and examples.
	IntentProject
	// IntentTask favors documentation and quick answers.
	IntentTask
	// IntentResearch favors articles and quality.
	IntentResearch
	// IntentPractice favors examples and exercises.
	IntentPractice
)

// String returns a human-readable intent name.
func (i Intent) String() string {
	switch i {
	case IntentLearning:
		return "learning"
	case IntentProject:
		return "project"
	case IntentTask:
		return "task"
	case IntentResearch:
		return "research"
	case IntentPractice:
		return "practice"
	default:
		return "unknown"
	}
}

// ParseIntent converts a string to an Intent.
// Unrecognized values map to IntentLearning.
func ParseIntent(s string) Intent {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "project":
		return IntentProject
	case "task":
		return IntentTask
	case "research":
		return IntentResearch
	case "practice":
		return IntentPractice
	default:
		return IntentLearning
	}
}

// Signal names used as keys in weight tables and score breakdowns.
const (
	SignalTechnology  = "technology"
	SignalContentType = "content_type"
	SignalDifficulty  = "difficulty"
	SignalQuality     = "quality"
	SignalIntent      = "intent"
)

// Candidate is one content item eligible for ranking in a request.
// Candidates are immutable once handed to the pipeline and are owned by
// the request; nothing in this package mutates them.
type Candidate struct {
	// ID uniquely identifies the candidate within a request.
	ID string `json:"id"`

	// Title is the content title.
	Title string `json:"title"`

	// URL is the content location. The host (minus a www. prefix) is the
	// candidate's domain for diversity and personalization purposes.
	URL string `json:"url"`

	// Technologies are case-normalized technology tags.
	Technologies []string `json:"technologies"`

	// ContentType classifies the item.
	ContentType ContentType `json:"content_type"`

	// Difficulty is the item's difficulty level.
	Difficulty Difficulty `json:"difficulty"`

	// Quality is the precomputed quality score (1-10), supplied by the
	// upstream content store.
	Quality int `json:"quality"`

	// Metadata is an opaque pass-through map for collaborators.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Domain returns the candidate's URL host with any www. prefix stripped.
// Returns an empty string when the URL has no recognizable host.
func (c Candidate) Domain() string {
	u := c.URL
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.IndexAny(u, "/?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, ':'); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimPrefix(strings.ToLower(u), "www.")
	return u
}

// EngineVote is one engine's opinion about one candidate.
// Votes are produced by exactly one engine invocation and are immutable.
type EngineVote struct {
	// Engine is the name of the engine that produced the vote.
	Engine string `json:"engine"`

	// CandidateID identifies the candidate the vote is for.
	CandidateID string `json:"candidate_id"`

	// Score is the engine's raw relevance score in [0, 1].
	Score float64 `json:"score"`

	// Confidence is the engine's confidence in the score in [0, 1].
	Confidence float64 `json:"confidence"`
}

// EnsembleResult is the merged outcome for one candidate. The aggregator
// emits at most one result per candidate ID.
type EnsembleResult struct {
	// CandidateID identifies the candidate.
	CandidateID string `json:"candidate_id"`

	// Candidate is the full candidate record.
	Candidate Candidate `json:"candidate"`

	// Score is the final combined score in [0, 1].
	Score float64 `json:"score"`

	// Components maps contributing signal or engine names to their
	// individual contributions before combination.
	Components map[string]float64 `json:"components,omitempty"`

	// Votes lists the engine votes that contributed to the score.
	Votes []EngineVote `json:"votes,omitempty"`

	// Confidence is the fraction of usable engines that voted for this
	// candidate. Fewer corroborating engines means a less confident, not
	// necessarily lower, score.
	Confidence float64 `json:"confidence"`

	// Rank is the 1-based position in the final ordering.
	Rank int `json:"rank"`
}

// Engine is an independent source of relevance signal for candidates.
// Implementations must be stateless with respect to requests and safe for
// concurrent use; they must never mutate the candidate pool.
type Engine interface {
	// Name returns the engine identifier (e.g. "content", "semantic").
	Name() string

	// Score produces one vote per candidate the engine can score.
	// Candidates the engine has no opinion about are simply omitted; an
	// error means the engine produced nothing usable for this request.
	Score(ctx context.Context, pool []Candidate, sctx *ScoringContext) ([]EngineVote, error)
}

// Adjuster applies per-user score adjustments to ensemble results.
// Implemented by the personalization subpackage.
type Adjuster interface {
	// Name returns the adjuster identifier.
	Name() string

	// Adjust returns the results with per-user adjustments applied. When
	// the adjuster's gate is closed it returns its input unchanged.
	Adjust(results []EnsembleResult, userID string) []EnsembleResult
}

// Reranker modifies a ranked list for diversity or another secondary
// objective. Implemented by the diversity subpackage.
type Reranker interface {
	// Name returns the reranker identifier.
	Name() string

	// Rerank reorders the scored results. It reorders and boosts; it never
	// discards a result except to truncate to the request limit.
	Rerank(ctx context.Context, results []EnsembleResult, sctx *ScoringContext) []EnsembleResult
}

// State tracks a request through the pipeline.
type State int

const (
	// StateReceived is the initial state.
	StateReceived State = iota
	// StateScoring means engines are being invoked in parallel.
	StateScoring
	// StateAggregating means engine votes are being merged.
	StateAggregating
	// StatePersonalizing means per-user adjustment is being applied.
	StatePersonalizing
	// StateDiversifying means diversity reranking is being applied.
	StateDiversifying
	// StateFinalized means the ranked list is complete.
	StateFinalized
	// StateFallback means every engine failed and the list was ranked by
	// raw quality instead.
	StateFallback
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateScoring:
		return "scoring"
	case StateAggregating:
		return "aggregating"
	case StatePersonalizing:
		return "personalizing"
	case StateDiversifying:
		return "diversifying"
	case StateFinalized:
		return "finalized"
	case StateFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Ensemble is the aggregator's output: the merged results plus the
// analytics telemetry consumers read.
type Ensemble struct {
	// Results is the ordered result list, one entry per surviving
	// candidate ID.
	Results []EnsembleResult `json:"results"`

	// State is StateAggregating on the normal path, StateFallback when no
	// engine produced votes.
	State State `json:"state"`

	// EnginesUsed lists engines whose votes contributed.
	EnginesUsed []string `json:"engines_used"`

	// Degraded lists engines that failed or timed out for this request.
	Degraded []string `json:"degraded,omitempty"`

	// VoteCounts maps engine names to the number of votes they contributed.
	VoteCounts map[string]int `json:"vote_counts,omitempty"`

	// Fingerprint is the cache key derived from context, engine set and
	// candidate set.
	Fingerprint string `json:"fingerprint"`

	// CacheHit reports whether the ensemble was served from cache.
	CacheHit bool `json:"cache_hit"`
}

// Ranked is the pipeline's final response.
type Ranked struct {
	// Results is the final ordered recommendation list.
	Results []EnsembleResult `json:"results"`

	// Meta carries timing and diagnostic information.
	Meta Meta `json:"meta"`
}

// Meta contains timing and diagnostic information for a ranked response.
type Meta struct {
	// RequestID is the unique request identifier.
	RequestID string `json:"request_id"`

	// UserID is the requesting user, empty for anonymous requests.
	UserID string `json:"user_id,omitempty"`

	// State is the terminal pipeline state (finalized or fallback).
	State State `json:"state"`

	// EnginesUsed lists engines whose votes contributed.
	EnginesUsed []string `json:"engines_used"`

	// Degraded lists engines excluded for this request.
	Degraded []string `json:"degraded,omitempty"`

	// CacheHit reports whether the ensemble stage was served from cache.
	CacheHit bool `json:"cache_hit"`

	// Personalized reports whether the personalization gate was open.
	Personalized bool `json:"personalized"`

	// Diversified reports whether diversity reranking ran.
	Diversified bool `json:"diversified"`

	// DiversityScore is the overall diversity of the final list in [0, 1],
	// zero when diversity measurement was disabled.
	DiversityScore float64 `json:"diversity_score"`

	// TotalCandidates is the size of the input pool.
	TotalCandidates int `json:"total_candidates"`

	// LatencyMS is the total pipeline latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Timestamp is when the response was generated.
	Timestamp time.Time `json:"timestamp"`
}
