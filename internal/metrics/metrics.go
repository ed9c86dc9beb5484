// Package metrics implements the process-wide, rolling 60-minute per-upstream
// call/failure counters of spec §2.3/§4.1, exposed read-only to
// GET /api/metrics/external.
package metrics

import (
	"sync"
	"time"
)

// sample is one recorded call; samples older than the window are lazily
// evicted on read, matching the "rolling window metrics: counters over the
// last 60 minutes of wall-clock time, sampled lazily" glossary entry.
type sample struct {
	at      time.Time
	success bool
}

// Registry is the process-wide, guarded per-upstream sample log.
type Registry struct {
	mu      sync.Mutex
	window  time.Duration
	samples map[string][]sample
	now     func() time.Time
}

// NewRegistry builds a registry with the given rolling window (spec default
// 60 minutes).
func NewRegistry(window time.Duration) *Registry {
	return &Registry{
		window:  window,
		samples: make(map[string][]sample),
		now:     time.Now,
	}
}

// Record appends exactly one success/failure sample for upstream, satisfying
// the "exactly one metrics record per upstream call" invariant of spec §8.
func (r *Registry) Record(upstream string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[upstream] = append(r.samples[upstream], sample{at: r.now(), success: success})
}

// Snapshot is the per-upstream rolling-window view served by
// GET /api/metrics/external.
type Snapshot struct {
	Service          string  `json:"service"`
	CallsLastHour    int     `json:"calls_last_hour"`
	FailuresLastHour int     `json:"failures_last_hour"`
	FailurePct       float64 `json:"failure_pct"`
	Status           string  `json:"status"`
}

// Snapshots evicts expired samples for every known upstream and returns a
// Snapshot for each.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.window)
	out := make([]Snapshot, 0, len(r.samples))
	for upstream, samples := range r.samples {
		kept := samples[:0:0]
		for _, s := range samples {
			if s.at.After(cutoff) {
				kept = append(kept, s)
			}
		}
		r.samples[upstream] = kept

		var calls, failures int
		for _, s := range kept {
			calls++
			if !s.success {
				failures++
			}
		}
		pct := 0.0
		if calls > 0 {
			pct = float64(failures) / float64(calls) * 100
		}
		out = append(out, Snapshot{
			Service:          upstream,
			CallsLastHour:    calls,
			FailuresLastHour: failures,
			FailurePct:       pct,
			Status:           statusFor(pct),
		})
	}
	return out
}

func statusFor(failurePct float64) string {
	switch {
	case failurePct == 0:
		return "healthy"
	case failurePct < 25:
		return "degraded"
	default:
		return "unhealthy"
	}
}
