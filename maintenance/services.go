// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rankfusion/metrics"
	"github.com/tomtom215/rankfusion/ranking"
	"github.com/tomtom215/rankfusion/ranking/personalization"
)

// ProfileDecayService periodically decays every user profile so stale
// preferences fade even for users who stopped sending feedback. The
// per-interaction decay inside Learn only reaches active profiles; this
// sweep covers the rest.
type ProfileDecayService struct {
	store    *personalization.Store
	cfg      ranking.PersonalizationConfig
	interval time.Duration
	logger   zerolog.Logger
}

// NewProfileDecayService creates the decay sweep service.
func NewProfileDecayService(store *personalization.Store, cfg ranking.PersonalizationConfig, interval time.Duration, logger zerolog.Logger) *ProfileDecayService {
	return &ProfileDecayService{
		store:    store,
		cfg:      cfg,
		interval: interval,
		logger:   logger.With().Str("component", "profile_decay").Logger(),
	}
}

// Serve runs the decay loop until the context is canceled.
func (s *ProfileDecayService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			pruned := s.store.DecayAll(s.cfg.DecayFactor, s.cfg.MinPreference)
			metrics.ProfileDecayRuns.Inc()
			s.logger.Debug().
				Int("profiles", s.store.Len()).
				Int("pruned", pruned).
				Dur("elapsed", time.Since(start)).
				Msg("profile decay sweep completed")
		}
	}
}

// String identifies the service in supervisor logs.
func (s *ProfileDecayService) String() string {
	return "profile-decay"
}

// CachePurger removes expired cache entries and reports how many were
// removed. Satisfied by *ranking.Aggregator.
type CachePurger interface {
	PurgeExpiredCache() int
}

// CacheJanitorService periodically purges expired ensemble cache entries.
// The cache also purges lazily under write pressure; the janitor bounds
// memory for idle fingerprints that would otherwise linger until the next
// write.
type CacheJanitorService struct {
	purger   CachePurger
	interval time.Duration
	logger   zerolog.Logger
}

// NewCacheJanitorService creates the cache janitor.
func NewCacheJanitorService(purger CachePurger, interval time.Duration, logger zerolog.Logger) *CacheJanitorService {
	return &CacheJanitorService{
		purger:   purger,
		interval: interval,
		logger:   logger.With().Str("component", "cache_janitor").Logger(),
	}
}

// Serve runs the purge loop until the context is canceled.
func (s *CacheJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed := s.purger.PurgeExpiredCache()
			if removed > 0 {
				metrics.CacheJanitorEvictions.Add(float64(removed))
				s.logger.Debug().Int("removed", removed).Msg("purged expired ensemble cache entries")
			}
		}
	}
}

// String identifies the service in supervisor logs.
func (s *CacheJanitorService) String() string {
	return "cache-janitor"
}
