// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package personalization

import (
	"time"

	"github.com/tomtom215/rankfusion/ranking"
)

// confidenceSaturation is the interaction count at which profile
// confidence reaches 1.0. Below it confidence grows linearly, so the
// default gate (confidence 0.3) opens at 3 interactions.
const confidenceSaturation = 10

// Profile is one user's learned preferences. All preference weights live
// in [0, 1]. Profiles are created lazily on first feedback and never
// deleted; decay shrinks them instead.
type Profile struct {
	// UserID identifies the profile owner.
	UserID string `json:"user_id"`

	// Technologies maps technology tags to preference weights.
	Technologies map[string]float64 `json:"technologies"`

	// ContentTypes maps content type names to preference weights.
	ContentTypes map[string]float64 `json:"content_types"`

	// Difficulties maps difficulty names to preference weights.
	Difficulties map[string]float64 `json:"difficulties"`

	// Domains maps source domains to preference weights.
	Domains map[string]float64 `json:"domains"`

	// Interactions is the total feedback count recorded.
	Interactions int `json:"interactions"`

	// Confidence is how much the profile should be trusted, in [0, 1].
	// Derived from the interaction count.
	Confidence float64 `json:"confidence"`

	// UpdatedAt is when the profile last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// newProfile creates an empty profile.
func newProfile(userID string) *Profile {
	return &Profile{
		UserID:       userID,
		Technologies: make(map[string]float64),
		ContentTypes: make(map[string]float64),
		Difficulties: make(map[string]float64),
		Domains:      make(map[string]float64),
	}
}

// clone deep-copies the profile.
func (p *Profile) clone() Profile {
	out := *p
	out.Technologies = clonePrefs(p.Technologies)
	out.ContentTypes = clonePrefs(p.ContentTypes)
	out.Difficulties = clonePrefs(p.Difficulties)
	out.Domains = clonePrefs(p.Domains)
	return out
}

// decay multiplies every preference weight by factor and prunes entries
// that fall below min. Returns the number of pruned entries.
func (p *Profile) decay(factor, min float64) int {
	pruned := 0
	for _, prefs := range p.prefMaps() {
		for key, weight := range prefs {
			weight *= factor
			if weight < min {
				delete(prefs, key)
				pruned++
				continue
			}
			prefs[key] = weight
		}
	}
	return pruned
}

// observe folds one rated candidate into the preference maps by
// exponential moving average with the given learning rate.
func (p *Profile) observe(c ranking.Candidate, rating, alpha float64) {
	for _, tech := range c.Technologies {
		ema(p.Technologies, tech, rating, alpha)
	}
	ema(p.ContentTypes, c.ContentType.String(), rating, alpha)
	ema(p.Difficulties, c.Difficulty.String(), rating, alpha)
	if domain := c.Domain(); domain != "" {
		ema(p.Domains, domain, rating, alpha)
	}
}

// bonus is the preference bonus for a candidate in [0, 1]: the mean of the
// matched preference weights across the four dimensions.
func (p *Profile) bonus(c ranking.Candidate) float64 {
	sum := 0.0
	dims := 0

	if len(c.Technologies) > 0 {
		techSum := 0.0
		for _, tech := range c.Technologies {
			techSum += p.Technologies[tech]
		}
		sum += techSum / float64(len(c.Technologies))
		dims++
	}

	sum += p.ContentTypes[c.ContentType.String()]
	dims++

	sum += p.Difficulties[c.Difficulty.String()]
	dims++

	if domain := c.Domain(); domain != "" {
		sum += p.Domains[domain]
		dims++
	}

	return sum / float64(dims)
}

// prefMaps returns the four preference maps for bulk operations.
func (p *Profile) prefMaps() []map[string]float64 {
	return []map[string]float64{p.Technologies, p.ContentTypes, p.Difficulties, p.Domains}
}

// confidenceFor derives profile confidence from the interaction count.
func confidenceFor(interactions int) float64 {
	confidence := float64(interactions) / confidenceSaturation
	if confidence > 1 {
		return 1
	}
	return confidence
}

// ema applies pref' = pref*(1-alpha) + value*alpha.
func ema(prefs map[string]float64, key string, value, alpha float64) {
	prefs[key] = prefs[key]*(1-alpha) + value*alpha
}

func clonePrefs(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
