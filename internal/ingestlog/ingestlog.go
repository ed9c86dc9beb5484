// Package ingestlog implements the run/event journal of spec §3/§4: one run
// record per scheduled job invocation, one event record per external call
// made during that run. A run is bound to a context so the HTTP fabric can
// append events without every client threading a *Log through every call.
package ingestlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ngmaloney/weatherd/internal/models"
)

// Store is the persistence contract ingestlog depends on; internal/store
// implements it against Postgres.
type Store interface {
	InsertIngestRun(ctx context.Context, run models.IngestRun) error
	UpdateIngestRun(ctx context.Context, runID string, finishedAt time.Time, status models.IngestRunStatus, notes string) error
	InsertIngestEvent(ctx context.Context, event models.IngestEvent) error
}

// Run tracks one open job invocation: its id, failure count (status is
// SUCCESS iff fail count is zero, per spec §4.5), and the store it flushes
// events to.
type Run struct {
	store   Store
	runID   string
	jobName string
	started time.Time
	fails   int
}

type runKey struct{}

// Begin opens a new ingest run and persists a RUNNING row.
func Begin(ctx context.Context, store Store, jobName string) (context.Context, *Run, error) {
	r := &Run{
		store:   store,
		runID:   uuid.NewString(),
		jobName: jobName,
		started: time.Now().UTC(),
	}
	if err := store.InsertIngestRun(ctx, models.IngestRun{
		RunID:     r.runID,
		JobName:   jobName,
		StartedAt: r.started,
		Status:    models.RunRunning,
	}); err != nil {
		return ctx, nil, err
	}
	return context.WithValue(ctx, runKey{}, r), r, nil
}

// FromContext retrieves the run bound to ctx, if any.
func FromContext(ctx context.Context) (*Run, bool) {
	r, ok := ctx.Value(runKey{}).(*Run)
	return r, ok
}

// RunID returns the run's identifier.
func (r *Run) RunID() string { return r.runID }

// Event appends one event to the run. Call sites decide success/failure by
// passing a non-empty errMsg.
func (r *Run) Event(ctx context.Context, source, endpoint string, httpStatus *int, responseMS *int64, errMsg string, headers []byte) {
	if errMsg != "" {
		r.fails++
	}
	_ = r.store.InsertIngestEvent(ctx, models.IngestEvent{
		EventID:         uuid.NewString(),
		RunID:           r.runID,
		Source:          source,
		Endpoint:        endpoint,
		HTTPStatus:      httpStatus,
		ResponseMS:      responseMS,
		Error:           errMsg,
		ResponseHeaders: headers,
		CreatedAt:       time.Now().UTC(),
	})
}

// Fatal marks the run FAILED regardless of the per-item fail count, for a
// fundamental outage (e.g. DB unavailable) per spec §7's propagation policy.
func (r *Run) Fatal(ctx context.Context, notes string) error {
	return r.store.UpdateIngestRun(ctx, r.runID, time.Now().UTC(), models.RunFailed, notes)
}

// Finish closes the run: SUCCESS iff no event recorded a failure.
func (r *Run) Finish(ctx context.Context, notes string) error {
	status := models.RunSuccess
	if r.fails > 0 {
		status = models.RunFailed
	}
	return r.store.UpdateIngestRun(ctx, r.runID, time.Now().UTC(), status, notes)
}
