// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package ranking

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers. Only configuration-level problems
// propagate; engine failures degrade the request instead.
var (
	// ErrInvalidContext indicates a malformed or non-normalizable weight
	// table. Returned before any engine is invoked.
	ErrInvalidContext = errors.New("invalid scoring context")

	// ErrNoEngines indicates the aggregator was invoked with no engines
	// configured.
	ErrNoEngines = errors.New("no engines configured")

	// ErrInvalidConfig indicates a configuration value out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// EngineErrorKind classifies engine failures.
type EngineErrorKind int

const (
	// EngineInternal is a transient internal engine error. The engine is
	// excluded for the current request only and never retried mid-request.
	EngineInternal EngineErrorKind = iota
	// EngineTimeout means the engine exceeded its per-invocation deadline.
	EngineTimeout
	// EngineUnavailable means the engine's circuit breaker is open.
	EngineUnavailable
)

// String returns a human-readable kind name.
func (k EngineErrorKind) String() string {
	switch k {
	case EngineInternal:
		return "internal"
	case EngineTimeout:
		return "timeout"
	case EngineUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// EngineError reports that one engine produced nothing usable for the
// current request. The caller must treat the engine as absent, not as
// contributing zero scores.
type EngineError struct {
	// Engine is the failing engine's name.
	Engine string

	// Kind classifies the failure.
	Kind EngineErrorKind

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s %s: %v", e.Engine, e.Kind, e.Err)
	}
	return fmt.Sprintf("engine %s %s", e.Engine, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError builds an EngineError for the named engine.
func NewEngineError(engine string, kind EngineErrorKind, err error) *EngineError {
	return &EngineError{Engine: engine, Kind: kind, Err: err}
}

// IsEngineError reports whether err is an EngineError and returns it.
func IsEngineError(err error) (*EngineError, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
