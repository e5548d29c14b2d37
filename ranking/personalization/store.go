// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package personalization

import (
	"sync"
	"time"
)

// Store holds user profiles in memory. The outer map is guarded by an
// RWMutex; each profile has its own mutex so updates to one user are
// serialized without blocking updates to others.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*profileEntry
}

type profileEntry struct {
	mu      sync.Mutex
	profile *Profile
}

// NewStore creates an empty profile store.
func NewStore() *Store {
	return &Store{profiles: make(map[string]*profileEntry)}
}

// Snapshot returns a deep copy of a user's profile. The second return is
// false when the user has no profile yet.
func (s *Store) Snapshot(userID string) (Profile, bool) {
	s.mu.RLock()
	entry, ok := s.profiles[userID]
	s.mu.RUnlock()
	if !ok {
		return Profile{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.profile.clone(), true
}

// Update applies fn to a user's profile under that user's mutex, creating
// the profile lazily. fn must not retain the profile pointer.
func (s *Store) Update(userID string, fn func(*Profile)) {
	entry := s.entry(userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	fn(entry.profile)
}

// Len returns the number of profiles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// DecayAll applies one decay pass to every profile and returns the number
// of pruned preference entries. Used by the maintenance sweep; per-profile
// locking keeps concurrent feedback safe during the pass.
func (s *Store) DecayAll(factor, min float64) int {
	s.mu.RLock()
	entries := make([]*profileEntry, 0, len(s.profiles))
	for _, entry := range s.profiles {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	now := time.Now().UTC()
	pruned := 0
	for _, entry := range entries {
		entry.mu.Lock()
		pruned += entry.profile.decay(factor, min)
		entry.profile.UpdatedAt = now
		entry.mu.Unlock()
	}
	return pruned
}

// entry returns the profile entry for a user, creating it if needed.
func (s *Store) entry(userID string) *profileEntry {
	s.mu.RLock()
	entry, ok := s.profiles[userID]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok = s.profiles[userID]; ok {
		return entry
	}
	entry = &profileEntry{profile: newProfile(userID)}
	s.profiles[userID] = entry
	return entry
}
