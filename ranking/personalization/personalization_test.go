// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package personalization

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rankfusion/ranking"
)

func goCandidate() ranking.Candidate {
	return ranking.Candidate{
		ID: "go-tut", Title: "Go Tutorial", URL: "https://go.dev/tour",
		Technologies: []string{"go"}, ContentType: ranking.ContentTutorial,
		Difficulty: ranking.DifficultyBeginner, Quality: 8,
	}
}

func reactCandidate() ranking.Candidate {
	return ranking.Candidate{
		ID: "react-vid", Title: "React Video", URL: "https://react.example.com/v",
		Technologies: []string{"react"}, ContentType: ranking.ContentVideo,
		Difficulty: ranking.DifficultyAdvanced, Quality: 8,
	}
}

func resultFor(c ranking.Candidate, score float64) ranking.EnsembleResult {
	return ranking.EnsembleResult{
		CandidateID: c.ID,
		Candidate:   c,
		Score:       score,
		Components:  map[string]float64{"content": score},
	}
}

func newTestAdjuster(mutate func(*ranking.PersonalizationConfig)) *Adjuster {
	cfg := ranking.DefaultConfig().Personalization
	if mutate != nil {
		mutate(&cfg)
	}
	return NewAdjuster(cfg, nil, zerolog.Nop())
}

func TestAdjustGateClosedWithoutHistory(t *testing.T) {
	t.Parallel()

	adjuster := newTestAdjuster(nil)
	in := []ranking.EnsembleResult{resultFor(goCandidate(), 0.8)}

	got := adjuster.Adjust(in, "new-user")
	if &got[0] != &in[0] {
		t.Error("gated adjust copied the slice, want same backing array")
	}
}

func TestAdjustGateOpensAtThreshold(t *testing.T) {
	t.Parallel()

	adjuster := newTestAdjuster(nil)

	// Default gate: 3 interactions and confidence 0.3, which is exactly
	// 3/10 with linear confidence growth.
	for i := 0; i < 2; i++ {
		adjuster.Learn("u1", Feedback{Candidate: goCandidate(), Rating: 1.0})
	}
	in := []ranking.EnsembleResult{resultFor(goCandidate(), 0.8)}
	if got := adjuster.Adjust(in, "u1"); &got[0] != &in[0] {
		t.Fatal("gate open at 2 interactions, want closed")
	}

	adjuster.Learn("u1", Feedback{Candidate: goCandidate(), Rating: 1.0})
	got := adjuster.Adjust(in, "u1")
	if len(got) > 0 && &got[0] == &in[0] {
		t.Fatal("gate closed at 3 interactions, want open")
	}
	if _, ok := got[0].Components[blendComponent]; !ok {
		t.Error("adjusted result missing personalization component")
	}
}

func TestAdjustPrefersLearnedInterests(t *testing.T) {
	t.Parallel()

	adjuster := newTestAdjuster(nil)
	for i := 0; i < 5; i++ {
		adjuster.Learn("u1", Feedback{Candidate: goCandidate(), Rating: 1.0})
	}

	// Equal base scores; the learned Go preference must break the tie.
	in := []ranking.EnsembleResult{
		resultFor(reactCandidate(), 0.7),
		resultFor(goCandidate(), 0.7),
	}

	got := adjuster.Adjust(in, "u1")
	if got[0].CandidateID != "go-tut" {
		t.Errorf("top result = %s, want go-tut", got[0].CandidateID)
	}
	if got[0].Score <= 0.7 {
		t.Errorf("preferred score = %f, want above base 0.7", got[0].Score)
	}
	if delta := got[0].Components[blendComponent]; delta <= 0 {
		t.Errorf("personalization delta = %f, want positive", delta)
	}

	// Input untouched.
	if in[0].Score != 0.7 || in[1].Score != 0.7 {
		t.Error("input slice mutated")
	}
}

func TestAdjustDisabled(t *testing.T) {
	t.Parallel()

	adjuster := newTestAdjuster(func(cfg *ranking.PersonalizationConfig) {
		cfg.Enabled = false
	})
	for i := 0; i < 5; i++ {
		adjuster.Learn("u1", Feedback{Candidate: goCandidate(), Rating: 1.0})
	}

	in := []ranking.EnsembleResult{resultFor(goCandidate(), 0.8)}
	if got := adjuster.Adjust(in, "u1"); &got[0] != &in[0] {
		t.Error("disabled adjuster still rewrote results")
	}
}

func TestLearnEMA(t *testing.T) {
	t.Parallel()

	adjuster := newTestAdjuster(nil)
	adjuster.Learn("u1", Feedback{Candidate: goCandidate(), Rating: 1.0})

	profile, ok := adjuster.Store().Snapshot("u1")
	if !ok {
		t.Fatal("profile missing after Learn")
	}

	// First observation from an empty map: 0*(1-alpha) + 1.0*alpha.
	alpha := ranking.DefaultConfig().Personalization.LearningRate
	if got := profile.Technologies["go"]; math.Abs(got-alpha) > 1e-9 {
		t.Errorf("Technologies[go] = %f, want %f", got, alpha)
	}
	if profile.Interactions != 1 {
		t.Errorf("Interactions = %d, want 1", profile.Interactions)
	}
	if math.Abs(profile.Confidence-0.1) > 1e-9 {
		t.Errorf("Confidence = %f, want 0.1", profile.Confidence)
	}
	if profile.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestLearnClampsRating(t *testing.T) {
	t.Parallel()

	adjuster := newTestAdjuster(nil)
	adjuster.Learn("u1", Feedback{Candidate: goCandidate(), Rating: 7.5})

	profile, _ := adjuster.Store().Snapshot("u1")
	alpha := ranking.DefaultConfig().Personalization.LearningRate
	if got := profile.Technologies["go"]; math.Abs(got-alpha) > 1e-9 {
		t.Errorf("Technologies[go] = %f, want rating clamped to 1.0 giving %f", got, alpha)
	}
}

func TestLearnDecaysOnInterval(t *testing.T) {
	t.Parallel()

	adjuster := newTestAdjuster(func(cfg *ranking.PersonalizationConfig) {
		cfg.DecayInterval = 2
		cfg.DecayFactor = 0.5
		cfg.LearningRate = 1.0
	})

	// With alpha 1.0 the preference jumps straight to the rating; the
	// second Learn triggers the decay pass after observing.
	adjuster.Learn("u1", Feedback{Candidate: goCandidate(), Rating: 1.0})
	adjuster.Learn("u1", Feedback{Candidate: goCandidate(), Rating: 1.0})

	profile, _ := adjuster.Store().Snapshot("u1")
	if got := profile.Technologies["go"]; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Technologies[go] = %f, want 0.5 after decay", got)
	}
}

func TestProfileConfidenceSaturates(t *testing.T) {
	t.Parallel()

	if got := confidenceFor(3); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("confidenceFor(3) = %f, want 0.3", got)
	}
	if got := confidenceFor(25); got != 1.0 {
		t.Errorf("confidenceFor(25) = %f, want 1.0", got)
	}
}

func TestProfileBonus(t *testing.T) {
	t.Parallel()

	p := newProfile("u1")
	p.Technologies["go"] = 0.8
	p.ContentTypes[ranking.ContentTutorial.String()] = 0.6
	p.Difficulties[ranking.DifficultyBeginner.String()] = 0.4
	p.Domains["go.dev"] = 0.2

	// Mean over the four matched dimensions.
	want := (0.8 + 0.6 + 0.4 + 0.2) / 4.0
	if got := p.bonus(goCandidate()); math.Abs(got-want) > 1e-9 {
		t.Errorf("bonus() = %f, want %f", got, want)
	}

	// A candidate matching nothing earns nothing.
	if got := p.bonus(reactCandidate()); got != 0 {
		t.Errorf("bonus(unmatched) = %f, want 0", got)
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Update("u1", func(p *Profile) {
		p.Technologies["go"] = 0.9
		p.Interactions = 5
	})

	snap, ok := store.Snapshot("u1")
	if !ok {
		t.Fatal("Snapshot() miss")
	}
	snap.Technologies["go"] = -1

	again, _ := store.Snapshot("u1")
	if again.Technologies["go"] != 0.9 {
		t.Error("snapshot mutation leaked into the store")
	}

	if _, ok := store.Snapshot("nobody"); ok {
		t.Error("Snapshot() hit for unknown user")
	}
}

func TestStoreDecayAll(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Update("u1", func(p *Profile) {
		p.Technologies["go"] = 0.8
		p.Technologies["cobol"] = 0.015
	})
	store.Update("u2", func(p *Profile) {
		p.Domains["example.com"] = 0.5
	})

	// Factor 0.5 halves everything; cobol falls below the 0.01 floor and
	// is pruned.
	pruned := store.DecayAll(0.5, 0.01)
	if pruned != 1 {
		t.Errorf("DecayAll() = %d pruned, want 1", pruned)
	}

	u1, _ := store.Snapshot("u1")
	if math.Abs(u1.Technologies["go"]-0.4) > 1e-9 {
		t.Errorf("Technologies[go] = %f, want 0.4", u1.Technologies["go"])
	}
	if _, ok := u1.Technologies["cobol"]; ok {
		t.Error("pruned preference still present")
	}
}

func TestStoreDecayAllRefreshesTimestamp(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Update("u1", func(p *Profile) {
		p.Technologies["go"] = 0.8
	})

	before, _ := store.Snapshot("u1")
	start := time.Now()
	store.DecayAll(0.5, 0.01)

	after, _ := store.Snapshot("u1")
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want advanced past %v by the sweep", after.UpdatedAt, before.UpdatedAt)
	}
	if after.UpdatedAt.Before(start.Add(-time.Second)) {
		t.Errorf("UpdatedAt = %v, want at or after the sweep time", after.UpdatedAt)
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	t.Parallel()

	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", n%2)
			for j := 0; j < 50; j++ {
				store.Update(userID, func(p *Profile) {
					p.Interactions++
				})
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
	for _, userID := range []string{"u0", "u1"} {
		profile, _ := store.Snapshot(userID)
		if profile.Interactions != 200 {
			t.Errorf("%s Interactions = %d, want 200", userID, profile.Interactions)
		}
	}
}
