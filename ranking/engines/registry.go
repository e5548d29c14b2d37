// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package engines

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rankfusion/ranking"
)

// Registry maps engine names to instances. It is built once at startup
// and read-only afterwards; dispatch is a map lookup, never reflection.
type Registry struct {
	engines map[string]ranking.Engine
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]ranking.Engine)}
}

// Register adds an engine. Duplicate names are a wiring bug and fail.
func (r *Registry) Register(e ranking.Engine) error {
	name := e.Name()
	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("engine %q already registered", name)
	}
	r.engines[name] = e
	r.order = append(r.order, name)
	return nil
}

// Get returns a registered engine by name.
func (r *Registry) Get(name string) (ranking.Engine, bool) {
	e, ok := r.engines[name]
	return e, ok
}

// Names returns all registered engine names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Select returns the registered engines among the requested names,
// preserving registration order. Unknown names are skipped; callers that
// care check the returned length.
func (r *Registry) Select(names []string) []ranking.Engine {
	requested := make(map[string]struct{}, len(names))
	for _, name := range names {
		requested[name] = struct{}{}
	}

	selected := make([]ranking.Engine, 0, len(names))
	for _, name := range r.order {
		if _, ok := requested[name]; ok {
			selected = append(selected, r.engines[name])
		}
	}
	return selected
}

// BuildRegistry constructs the built-in engines enabled in configuration,
// each wrapped in a resilience Adapter. A nil similarity provider falls
// back to the lexical one; a nil CF provider yields a collaborative engine
// that never votes.
func BuildRegistry(cfg *ranking.Config, logger zerolog.Logger, sim SimilarityProvider, cf CFProvider) (*Registry, error) {
	builtins := map[string]ranking.Engine{
		"content":       NewContentEngine(cfg.Scoring),
		"semantic":      NewSemanticEngine(sim),
		"collaborative": NewCollaborativeEngine(cf),
		"quality":       NewQualityEngine(),
	}

	registry := NewRegistry()
	for _, name := range cfg.Engines.Enabled {
		engine, ok := builtins[name]
		if !ok {
			return nil, fmt.Errorf("unknown engine %q in engines.enabled", name)
		}
		if err := registry.Register(NewAdapter(engine, cfg.Engines, logger)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
