// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/jeranaias/taxease-tui/internal/api"
	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// STATE
// =============================================================================

// State is the gate's readiness.
type State int

const (
	StateChecking State = iota
	StateHealthy
	StateUnreachable
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateHealthy:
		return "healthy"
	case StateUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Report describes the outcome of the latest probe.
type Report struct {
	State State

	// Backend is the finer-grained backend status (healthy, degraded, unreachable).
	Backend model.HealthStatus

	// Message is the backend's status message, or the error text.
	Message string

	DocumentCount int
	CheckedAt     time.Time
	Attempts      int
	Err           error
}

// errNotHealthy drives retries when the backend answers but is not ready.
var errNotHealthy = errors.New("backend not healthy")

// =============================================================================
// GATE
// =============================================================================

// Checker probes backend health. *api.Client satisfies it.
type Checker interface {
	CheckHealth(ctx context.Context) (model.HealthStatus, *api.HealthResponse, error)
}

// Config tunes the probe.
type Config struct {
	// Retries is the number of extra probes after a failed one (default: 0).
	Retries int

	// RetryDelay is the first backoff interval (default: 1s)
	RetryDelay time.Duration

	Logger *zerolog.Logger
}

// Gate gates chat input on backend readiness. It is safe for concurrent use.
type Gate struct {
	checker Checker
	cfg     Config
	log     zerolog.Logger

	mu     sync.RWMutex
	report Report
}

// NewGate creates a gate in StateChecking.
func NewGate(checker Checker, cfg Config) *Gate {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "health").Logger()
	}
	return &Gate{
		checker: checker,
		cfg:     cfg,
		log:     logger,
		report:  Report{State: StateChecking, Backend: model.HealthUnknown},
	}
}

// Check probes the backend and settles the gate. It returns the new report.
func (g *Gate) Check(ctx context.Context) Report {
	g.mu.Lock()
	g.report.State = StateChecking
	g.mu.Unlock()

	var (
		status   model.HealthStatus
		resp     *api.HealthResponse
		probeErr error
		attempts int
	)

	probe := func() error {
		attempts++
		status, resp, probeErr = g.checker.CheckHealth(ctx)
		if probeErr != nil {
			return probeErr
		}
		if status != model.HealthHealthy {
			return errNotHealthy
		}
		return nil
	}

	if g.cfg.Retries == 0 {
		_ = probe()
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = g.cfg.RetryDelay
		exp.MaxElapsedTime = 0
		policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(g.cfg.Retries)), ctx)
		_ = backoff.Retry(probe, policy)
	}

	report := Report{
		Backend:   status,
		CheckedAt: time.Now(),
		Attempts:  attempts,
		Err:       probeErr,
	}
	if resp != nil {
		report.Message = resp.Message
		report.DocumentCount = resp.DocumentCount
	} else if probeErr != nil {
		report.Message = probeErr.Error()
	}
	if probeErr == nil && status == model.HealthHealthy {
		report.State = StateHealthy
	} else {
		report.State = StateUnreachable
	}

	g.mu.Lock()
	g.report = report
	g.mu.Unlock()

	g.log.Info().
		Str("state", report.State.String()).
		Str("backend", report.Backend.String()).
		Int("attempts", attempts).
		Str("message", report.Message).
		Msg("health check")

	return report
}

// Recheck re-probes on explicit user request.
func (g *Gate) Recheck(ctx context.Context) Report {
	return g.Check(ctx)
}

// Ready reports whether sends are permitted.
func (g *Gate) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.report.State == StateHealthy
}

// State returns the current gate state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.report.State
}

// Report returns the latest probe outcome.
func (g *Gate) Report() Report {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.report
}
