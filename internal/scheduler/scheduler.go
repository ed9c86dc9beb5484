// Package scheduler drives the independent job families of spec §4.4: one
// single-worker timer per family, fixed-delay semantics (the delay begins
// after the previous run completes, not on a fixed wall-clock grid), and
// per-job logger tagging. The teacher has no scheduler of its own; the
// per-family isolation requirement rules out a shared dispatcher, so each
// family gets its own goroutine and time.Timer rather than a pooled cron
// runner. robfig/cron/v3 is used only to render a human-readable cadence
// description for the start-up log line.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/ingestlog"
	"github.com/ngmaloney/weatherd/internal/logging"
)

// Job is one unit of scheduled work. Implementations open their own ingest
// run via ingestlog.Begin and must not panic; a returned error aborts only
// the current invocation.
type Job func(ctx context.Context) error

// family is one named, independently-timed job.
type family struct {
	name  string
	delay time.Duration
	job   Job

	stopCh chan struct{}
	doneCh chan struct{}
}

// Scheduler owns every registered family's goroutine.
type Scheduler struct {
	logger    *zap.Logger
	mu        sync.Mutex
	families  []*family
	startOnce sync.Once
}

// New constructs an empty Scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Register adds a job family under name, run every delay after the previous
// invocation finishes. Must be called before Start.
func (s *Scheduler) Register(name string, delay time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.families = append(s.families, &family{
		name:   name,
		delay:  delay,
		job:    job,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	})
}

// Start launches one goroutine per registered family. Each runs immediately,
// then waits `delay` after completion before running again.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, f := range s.families {
			sched, err := cron.ParseStandard(approximateCron(f.delay))
			cadence := f.delay.String()
			if err == nil {
				cadence = sched.Next(time.Now()).Sub(time.Now()).Round(time.Second).String()
			}
			s.logger.Info("scheduling job family",
				zap.String("job", f.name), zap.Duration("delay", f.delay), zap.String("next", cadence))
			go s.run(ctx, f)
		}
	})
}

// run is the per-family loop: fixed-delay, logs failures without
// propagating them, and exits on Stop or context cancellation.
func (s *Scheduler) run(ctx context.Context, f *family) {
	defer close(f.doneCh)
	jobLogger := logging.ForJob(s.logger, f.name)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case <-timer.C:
			start := time.Now()
			if err := f.job(ctx); err != nil {
				jobLogger.Error("job invocation failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			} else {
				jobLogger.Info("job invocation completed", zap.Duration("elapsed", time.Since(start)))
			}
			timer.Reset(f.delay)
		}
	}
}

// Stop signals every family and waits up to timeout for each to exit.
func (s *Scheduler) Stop(timeout time.Duration) {
	s.mu.Lock()
	families := append([]*family(nil), s.families...)
	s.mu.Unlock()

	for _, f := range families {
		close(f.stopCh)
	}
	for _, f := range families {
		select {
		case <-f.doneCh:
		case <-time.After(timeout):
			s.logger.Warn("job family did not stop within timeout", zap.String("job", f.name), zap.Duration("timeout", timeout))
		}
	}
}

// WithRun is a convenience wrapper: opens an ingest run for jobName, invokes
// fn with the run-bound context, and closes the run based on fn's error and
// the run's own recorded failure count.
func WithRun(ctx context.Context, store ingestlog.Store, jobName string, fn func(ctx context.Context, run *ingestlog.Run) error) error {
	runCtx, run, err := ingestlog.Begin(ctx, store, jobName)
	if err != nil {
		return err
	}
	if err := fn(runCtx, run); err != nil {
		_ = run.Fatal(runCtx, err.Error())
		return err
	}
	return run.Finish(runCtx, "")
}

// approximateCron renders delay as an "every N units" standard cron
// expression purely for the start-up log line; it is never used to drive
// actual dispatch.
func approximateCron(delay time.Duration) string {
	switch {
	case delay >= 24*time.Hour:
		days := max(1, int(delay/(24*time.Hour)))
		return fmt.Sprintf("0 0 */%d * *", days)
	case delay >= time.Hour:
		hours := max(1, int(delay/time.Hour))
		return fmt.Sprintf("0 */%d * * *", hours)
	default:
		minutes := max(1, int(delay/time.Minute))
		return fmt.Sprintf("*/%d * * * *", minutes)
	}
}
