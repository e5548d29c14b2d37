// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package engines

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/rankfusion/ranking"
)

// Adapter wraps an engine with a per-invocation timeout and a circuit
// breaker. Failures surface as typed *ranking.EngineError values so the
// aggregator can classify them; partial votes are never returned.
//
// The adapter is stateless apart from the breaker and safe for concurrent
// use.
type Adapter struct {
	inner   ranking.Engine
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]ranking.EngineVote]
	logger  zerolog.Logger
}

// NewAdapter wraps an engine using the timeout and breaker settings from
// the engines configuration.
func NewAdapter(inner ranking.Engine, cfg ranking.EnginesConfig, logger zerolog.Logger) *Adapter {
	name := inner.Name()
	adapterLogger := logger.With().
		Str("component", "engine_adapter").
		Str("engine", name).
		Logger()

	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			adapterLogger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("engine circuit breaker state change")
		},
	}

	return &Adapter{
		inner:   inner,
		timeout: cfg.Timeout,
		breaker: gobreaker.NewCircuitBreaker[[]ranking.EngineVote](settings),
		logger:  adapterLogger,
	}
}

// Name returns the wrapped engine's name.
func (a *Adapter) Name() string {
	return a.inner.Name()
}

// BreakerState returns the current circuit breaker state, for diagnostics.
func (a *Adapter) BreakerState() string {
	return a.breaker.State().String()
}

// Score invokes the wrapped engine under the breaker and timeout.
func (a *Adapter) Score(ctx context.Context, pool []ranking.Candidate, sctx *ranking.ScoringContext) ([]ranking.EngineVote, error) {
	votes, err := a.breaker.Execute(func() ([]ranking.EngineVote, error) {
		return a.scoreOnce(ctx, pool, sctx)
	})
	if err != nil {
		return nil, a.classify(err)
	}
	return votes, nil
}

// scoreOnce runs the wrapped engine with the per-invocation deadline. The
// engine goroutine is abandoned on timeout; its result is discarded via
// the buffered channel.
func (a *Adapter) scoreOnce(ctx context.Context, pool []ranking.Candidate, sctx *ranking.ScoringContext) ([]ranking.EngineVote, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type outcome struct {
		votes []ranking.EngineVote
		err   error
	}

	ch := make(chan outcome, 1)
	go func() {
		votes, err := a.inner.Score(ctx, pool, sctx)
		ch <- outcome{votes: votes, err: err}
	}()

	select {
	case out := <-ch:
		return out.votes, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// classify maps a raw failure to a typed engine error. Already-typed
// errors pass through untouched.
func (a *Adapter) classify(err error) error {
	var ee *ranking.EngineError
	if errors.As(err, &ee) {
		return err
	}

	name := a.inner.Name()
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ranking.NewEngineError(name, ranking.EngineUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ranking.NewEngineError(name, ranking.EngineTimeout, err)
	default:
		return ranking.NewEngineError(name, ranking.EngineInternal, err)
	}
}
