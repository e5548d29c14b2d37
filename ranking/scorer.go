// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package ranking

import (
	"strings"
)

// technologySynonyms canonicalizes common technology aliases so "js" and
// "javascript" count as the same technology during overlap computation.
var technologySynonyms = map[string]string{
	"js":         "javascript",
	"ecmascript": "javascript",
	"ts":         "typescript",
	"py":         "python",
	"golang":     "go",
	"rb":         "ruby",
	"node":       "nodejs",
	"node.js":    "nodejs",
	"reactjs":    "react",
	"react.js":   "react",
	"vuejs":      "vue",
	"vue.js":     "vue",
	"k8s":        "kubernetes",
	"postgres":   "postgresql",
	"pg":         "postgresql",
	"mongo":      "mongodb",
	"tf":         "terraform",
	"dotnet":     ".net",
	"csharp":     "c#",
}

// contentTypeFamilies groups related content types. A candidate whose type
// shares a family with the preferred type earns the family match score.
var contentTypeFamilies = map[ContentType]ContentType{
	ContentTutorial:      ContentTutorial, // instructional family
	ContentExample:       ContentTutorial,
	ContentVideo:         ContentTutorial,
	ContentDocumentation: ContentDocumentation, // reference family
	ContentArticle:       ContentDocumentation,
	ContentOther:         ContentOther,
}

// intentPreferredType is the content type each intent matches exactly.
var intentPreferredType = map[Intent]ContentType{
	IntentLearning: ContentTutorial,
	IntentProject:  ContentExample,
	IntentTask:     ContentDocumentation,
	IntentResearch: ContentArticle,
	IntentPractice: ContentExample,
}

// intentAlignment maps each intent to per-content-type alignment scores.
// Types not listed earn the neutral alignment.
var intentAlignment = map[Intent]map[ContentType]float64{
	IntentLearning: {
		ContentTutorial:      1.0,
		ContentVideo:         0.8,
		ContentExample:       0.7,
		ContentDocumentation: 0.5,
		ContentArticle:       0.4,
	},
	IntentProject: {
		ContentExample:       1.0,
		ContentDocumentation: 0.8,
		ContentTutorial:      0.6,
		ContentArticle:       0.4,
	},
	IntentTask: {
		ContentDocumentation: 1.0,
		ContentExample:       0.8,
		ContentTutorial:      0.5,
	},
	IntentResearch: {
		ContentArticle:       1.0,
		ContentDocumentation: 0.7,
		ContentVideo:         0.5,
	},
	IntentPractice: {
		ContentExample:  1.0,
		ContentTutorial: 0.8,
		ContentVideo:    0.6,
	},
}

// neutralAlignment is the intent alignment for content types an intent has
// no opinion about.
const neutralAlignment = 0.3

// CandidateScorer computes a per-candidate multi-factor score and its
// component breakdown using a ScoringContext. Stateless and safe for
// concurrent use.
type CandidateScorer struct {
	cfg ScoringConfig
}

// NewCandidateScorer creates a scorer with the given match parameters.
func NewCandidateScorer(cfg ScoringConfig) *CandidateScorer {
	return &CandidateScorer{cfg: cfg}
}

// Score computes the weighted multi-factor score for a candidate. The
// returned score is in [0, 1] by construction: every sub-score is bounded
// to [0, 1] and the context weights sum to 1. The breakdown maps signal
// names to their unweighted sub-scores.
func (s *CandidateScorer) Score(c Candidate, sctx *ScoringContext) (float64, map[string]float64) {
	breakdown := map[string]float64{
		SignalTechnology:  s.technologyOverlap(c, sctx),
		SignalContentType: s.contentTypeMatch(c, sctx),
		SignalDifficulty:  s.difficultyAlignment(c, sctx),
		SignalQuality:     qualityScore(c),
		SignalIntent:      intentScore(c, sctx),
	}

	var score float64
	for signal, weight := range sctx.Weights {
		score += weight * breakdown[signal]
	}
	return clamp01(score), breakdown
}

// technologyOverlap computes Jaccard similarity between the candidate's
// technologies and the context technologies, both expanded through the
// synonym table. A context with no requested technologies is neutral.
func (s *CandidateScorer) technologyOverlap(c Candidate, sctx *ScoringContext) float64 {
	if len(sctx.Technologies) == 0 {
		return 0.5
	}

	want := s.canonicalSet(sctx.Technologies)
	have := s.canonicalSet(c.Technologies)
	if len(have) == 0 {
		return 0
	}

	intersection := 0
	for t := range want {
		if _, ok := have[t]; ok {
			intersection++
		}
	}
	union := len(want) + len(have) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// canonicalSet lowercases tags and folds synonyms into canonical forms.
func (s *CandidateScorer) canonicalSet(techs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(techs))
	for _, t := range techs {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if s.cfg.ExpandSynonyms {
			if canonical, ok := technologySynonyms[t]; ok {
				t = canonical
			}
		}
		set[t] = struct{}{}
	}
	return set
}

// contentTypeMatch scores the candidate's content type against the type
// preferred by the request intent: exact match, family match, or mismatch.
func (s *CandidateScorer) contentTypeMatch(c Candidate, sctx *ScoringContext) float64 {
	preferred, ok := intentPreferredType[sctx.Intent]
	if !ok {
		return s.cfg.ContentTypeMismatchScore
	}
	if c.ContentType == preferred {
		return 1.0
	}
	if contentTypeFamilies[c.ContentType] == contentTypeFamilies[preferred] {
		return s.cfg.ContentTypeFamilyScore
	}
	return s.cfg.ContentTypeMismatchScore
}

// difficultyAlignment is distance-based: same level 1.0, one level apart
// the near score, two or more the far score.
func (s *CandidateScorer) difficultyAlignment(c Candidate, sctx *ScoringContext) float64 {
	dist := int(c.Difficulty) - int(sctx.Skill)
	if dist < 0 {
		dist = -dist
	}
	switch dist {
	case 0:
		return 1.0
	case 1:
		return s.cfg.DifficultyNearScore
	default:
		return s.cfg.DifficultyFarScore
	}
}

// qualityScore maps the upstream 1-10 quality score to [0, 1].
func qualityScore(c Candidate) float64 {
	q := c.Quality
	if q < 0 {
		q = 0
	}
	if q > 10 {
		q = 10
	}
	return float64(q) / 10.0
}

// intentScore looks up how well the candidate's content type serves the
// request intent.
func intentScore(c Candidate, sctx *ScoringContext) float64 {
	if table, ok := intentAlignment[sctx.Intent]; ok {
		if v, ok := table[c.ContentType]; ok {
			return v
		}
	}
	return neutralAlignment
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
