// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// SupervisorConfig holds supervisor restart parameters. The zero value
// takes suture's production defaults.
type SupervisorConfig struct {
	// FailureThreshold is the failure count before entering backoff.
	// Default: 5.
	FailureThreshold float64

	// FailureDecay is the failure decay rate in seconds. Default: 30.
	FailureDecay float64

	// FailureBackoff is the wait after the threshold is exceeded.
	// Default: 15s.
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum wait for graceful service shutdown.
	// Default: 10s.
	ShutdownTimeout time.Duration
}

// Supervisor runs the maintenance services and restarts them with backoff
// when they fail.
type Supervisor struct {
	root *suture.Supervisor
}

// NewSupervisor creates the maintenance supervisor. Supervisor events are
// logged through the given slog logger (see logging.NewSlogLogger for the
// zerolog-backed one).
func NewSupervisor(logger *slog.Logger, cfg SupervisorConfig) *Supervisor {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5.0
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30.0
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	// sutureslog's hook has a pointer receiver; the handler must be
	// addressable.
	handler := &sutureslog.Handler{Logger: logger}

	root := suture.New("rankfusion-maintenance", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})

	return &Supervisor{root: root}
}

// Add registers a service with the supervisor. The returned token can
// remove it later.
func (s *Supervisor) Add(service suture.Service) suture.ServiceToken {
	return s.root.Add(service)
}

// Remove removes a previously added service.
func (s *Supervisor) Remove(token suture.ServiceToken) error {
	return s.root.Remove(token)
}

// Serve runs the supervisor until the context is canceled. Blocking;
// most callers use ServeBackground.
func (s *Supervisor) Serve(ctx context.Context) error {
	return s.root.Serve(ctx)
}

// ServeBackground starts the supervisor in its own goroutine. The
// returned channel receives the terminal error when the supervisor stops.
func (s *Supervisor) ServeBackground(ctx context.Context) <-chan error {
	return s.root.ServeBackground(ctx)
}
