// Package breaker implements the per-upstream circuit breaker of spec §4.1:
// a consecutive-failure threshold, an open cool-down, and fail-fast while
// open. The failure count is reset by any success and, while closed, at
// every fixed Window interval; it is not a sliding window. It wraps github.com/sony/gobreaker, the breaker library used for
// exactly this concern by sean-rowe-weather-service and
// i474232898-weather-data-aggregation in the example pack.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ngmaloney/weatherd/internal/werrors"
)

// Breaker is a process-global, per-upstream circuit breaker.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// Config mirrors spec §4.1's env-configurable parameters.
type Config struct {
	Upstream  string
	Threshold uint32        // consecutive failures before opening
	Window    time.Duration // fixed interval at which closed-state counts are cleared
	CoolDown  time.Duration // open-state duration
}

// New builds a breaker for one upstream.
func New(cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:     cfg.Upstream,
		Interval: cfg.Window,
		Timeout:  cfg.CoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Threshold
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do runs fn through the breaker. If the breaker is open, it fails fast
// with a BreakerOpen error before fn is invoked and before any token is
// consumed by an outer caller — callers MUST check the breaker before
// acquiring a rate-limit token per spec §9's layering note.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return werrors.Wrap(werrors.BreakerOpen, "breaker_open", err)
	}
	return err
}

// State reports the current breaker state for diagnostics.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
