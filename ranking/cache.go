// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package ranking

import (
	"sync"
	"time"
)

// ensembleCache is a thread-safe fingerprint-keyed TTL cache for
// aggregation results. Entries expire via TTL only; there is no manual
// invalidation path. The cache is a safety/performance device, not a
// correctness requirement: hits return deep copies so callers can never
// mutate shared state.
type ensembleCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	max     int

	statsMu sync.Mutex
	stats   CacheStats
}

type cacheEntry struct {
	ensemble  *Ensemble
	expiresAt time.Time
}

// CacheStats is a snapshot of ensemble cache counters.
type CacheStats struct {
	// Hits is the number of fingerprint lookups served from cache.
	Hits int64 `json:"hits"`

	// Misses is the number of lookups that fell through to the engines.
	Misses int64 `json:"misses"`

	// Evictions is the number of entries removed after expiring.
	Evictions int64 `json:"evictions"`

	// Entries is the current entry count.
	Entries int `json:"entries"`
}

func newEnsembleCache(cfg CacheConfig) *ensembleCache {
	return &ensembleCache{
		entries: make(map[string]cacheEntry),
		ttl:     cfg.TTL,
		max:     cfg.MaxEntries,
	}
}

// get returns a copy of a non-expired cached ensemble.
func (c *ensembleCache) get(key string) (*Ensemble, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return copyEnsemble(entry.ensemble), true
}

// put stores a copy of the ensemble under the fingerprint. When the cache
// is at capacity expired entries are purged first; if still full the entry
// is dropped rather than evicting live data.
func (c *ensembleCache) put(key string, e *Ensemble) {
	stored := copyEnsemble(e)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.max {
		c.purgeExpiredLocked()
	}
	if len(c.entries) >= c.max {
		if _, exists := c.entries[key]; !exists {
			return
		}
	}

	c.entries[key] = cacheEntry{
		ensemble:  stored,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// PurgeExpired removes expired entries and returns how many were removed.
// Called by the maintenance janitor; safe to call concurrently.
func (c *ensembleCache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeExpiredLocked()
}

// purgeExpiredLocked removes expired entries. Must be called with mu held.
func (c *ensembleCache) purgeExpiredLocked() int {
	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.statsMu.Lock()
		c.stats.Evictions += int64(removed)
		c.statsMu.Unlock()
	}
	return removed
}

// snapshot returns current counters.
func (c *ensembleCache) snapshot() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	out := c.stats
	out.Entries = entries
	return out
}

func (c *ensembleCache) recordHit() {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
}

func (c *ensembleCache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
}

// copyEnsemble deep-copies an ensemble so cached state is never aliased by
// callers.
func copyEnsemble(e *Ensemble) *Ensemble {
	out := *e
	out.Results = copyResults(e.Results)
	out.EnginesUsed = append([]string(nil), e.EnginesUsed...)
	out.Degraded = append([]string(nil), e.Degraded...)
	if e.VoteCounts != nil {
		out.VoteCounts = make(map[string]int, len(e.VoteCounts))
		for k, v := range e.VoteCounts {
			out.VoteCounts[k] = v
		}
	}
	return &out
}

// copyResults deep-copies a result slice including breakdown maps and vote
// lists.
func copyResults(results []EnsembleResult) []EnsembleResult {
	out := make([]EnsembleResult, len(results))
	copy(out, results)
	for i := range out {
		if results[i].Components != nil {
			m := make(map[string]float64, len(results[i].Components))
			for k, v := range results[i].Components {
				m[k] = v
			}
			out[i].Components = m
		}
		out[i].Votes = append([]EngineVote(nil), results[i].Votes...)
	}
	return out
}
