// Package supervisor keeps a fixed-size pool of worker processes alive.
// The pool converges back to its configured size after any crash. Restarts
// are governed by failure threshold/decay/backoff rather than an unbounded
// tight loop, so a worker that dies instantly on every launch backs off
// instead of burning a core.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Config holds the restart policy knobs. Zero values take the defaults.
type Config struct {
	// Workers is the pool size.
	Workers int
	// BasePort is the port of slot 0; slot s listens on BasePort+s.
	BasePort int

	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// Supervisor owns the worker slot table. It performs no request handling,
// store access, or cache access; its own death is fatal to the system.
type Supervisor struct {
	sup *suture.Supervisor
}

// New builds a supervisor with one service per worker slot, each spawning
// this same binary in worker mode.
func New(cfg Config, logger *slog.Logger) (*Supervisor, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("worker pool size must be at least 1, got %d", cfg.Workers)
	}
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

	binary, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve own binary path: %w", err)
	}

	handler := &sutureslog.Handler{Logger: logger}
	sup := suture.New("askwave", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})

	for slot := 0; slot < cfg.Workers; slot++ {
		sup.Add(NewWorkerService(binary, slot, cfg.BasePort+slot))
	}

	return &Supervisor{sup: sup}, nil
}

// Serve runs the pool until ctx is cancelled.
func (s *Supervisor) Serve(ctx context.Context) error {
	return s.sup.Serve(ctx)
}
