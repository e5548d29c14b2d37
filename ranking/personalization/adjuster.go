// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package personalization

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rankfusion/metrics"
	"github.com/tomtom215/rankfusion/ranking"
)

// blendComponent is the breakdown key recording the personalization delta.
const blendComponent = "personalization"

// Feedback is one user interaction with a candidate.
type Feedback struct {
	// Candidate is the item the user interacted with.
	Candidate ranking.Candidate `json:"candidate"`

	// Rating is the normalized engagement strength in [0, 1]: 1.0 for a
	// strong positive signal (completed, bookmarked), around 0.5 for a
	// neutral view, near 0 for an explicit dismissal.
	Rating float64 `json:"rating"`
}

// Adjuster personalizes ensemble scores from learned profiles. It
// implements ranking.Adjuster. Safe for concurrent use.
type Adjuster struct {
	cfg    ranking.PersonalizationConfig
	store  *Store
	logger zerolog.Logger
}

// NewAdjuster creates an adjuster over a profile store. A nil store gets a
// fresh empty one.
func NewAdjuster(cfg ranking.PersonalizationConfig, store *Store, logger zerolog.Logger) *Adjuster {
	if store == nil {
		store = NewStore()
	}
	return &Adjuster{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "personalization").Logger(),
	}
}

// Name returns "personalization".
func (a *Adjuster) Name() string {
	return "personalization"
}

// Store returns the underlying profile store, mainly so embedders can hand
// it to the maintenance decay sweep.
func (a *Adjuster) Store() *Store {
	return a.store
}

// Adjust blends per-user preference bonuses into the scores and re-sorts.
// The gate requires both enough interactions and enough confidence; when
// it stays closed the input slice is returned unchanged, same backing
// array, so callers can detect the no-op.
func (a *Adjuster) Adjust(results []ranking.EnsembleResult, userID string) []ranking.EnsembleResult {
	if !a.cfg.Enabled || userID == "" || len(results) == 0 {
		metrics.PersonalizationDecisions.WithLabelValues("disabled").Inc()
		return results
	}

	profile, ok := a.store.Snapshot(userID)
	if !ok || profile.Interactions < a.cfg.MinInteractions || profile.Confidence < a.cfg.ConfidenceThreshold {
		metrics.PersonalizationDecisions.WithLabelValues("gated").Inc()
		return results
	}
	metrics.PersonalizationDecisions.WithLabelValues("applied").Inc()

	// Blend factor scales with confidence but never exceeds the cap, so a
	// fully confident profile still moves scores at most MaxBoostFactor of
	// the way toward the boosted value.
	boost := a.cfg.MaxBoostFactor * profile.Confidence
	if boost > a.cfg.MaxBoostFactor {
		boost = a.cfg.MaxBoostFactor
	}

	out := make([]ranking.EnsembleResult, len(results))
	copy(out, results)

	for i := range out {
		bonus := profile.bonus(out[i].Candidate)
		adjusted := out[i].Score*(1-boost) + (out[i].Score+bonus)*boost
		if adjusted > 1 {
			adjusted = 1
		}

		components := make(map[string]float64, len(out[i].Components)+1)
		for k, v := range out[i].Components {
			components[k] = v
		}
		components[blendComponent] = adjusted - out[i].Score

		out[i].Score = adjusted
		out[i].Components = components
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Candidate.Quality != out[j].Candidate.Quality {
			return out[i].Candidate.Quality > out[j].Candidate.Quality
		}
		return out[i].CandidateID < out[j].CandidateID
	})

	a.logger.Debug().
		Str("user_id", userID).
		Int("interactions", profile.Interactions).
		Float64("confidence", profile.Confidence).
		Float64("boost", boost).
		Msg("personalization applied")

	return out
}

// Learn records one feedback event into the user's profile. The update is
// serialized per user; concurrent feedback for different users does not
// contend. Every DecayInterval interactions the profile is decayed and
// pruned so old interests fade.
func (a *Adjuster) Learn(userID string, fb Feedback) {
	if userID == "" {
		return
	}

	rating := fb.Rating
	if rating < 0 {
		rating = 0
	} else if rating > 1 {
		rating = 1
	}

	a.store.Update(userID, func(p *Profile) {
		p.observe(fb.Candidate, rating, a.cfg.LearningRate)
		p.Interactions++
		if a.cfg.DecayInterval > 0 && p.Interactions%a.cfg.DecayInterval == 0 {
			p.decay(a.cfg.DecayFactor, a.cfg.MinPreference)
		}
		p.Confidence = confidenceFor(p.Interactions)
		p.UpdatedAt = time.Now().UTC()
	})
}
