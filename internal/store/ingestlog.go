package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ngmaloney/weatherd/internal/models"
)

// InsertIngestRun persists a new run row; implements ingestlog.Store.
func (s *Store) InsertIngestRun(ctx context.Context, run models.IngestRun) error {
	_, err := s.Ingest.ExecContext(ctx, `
		INSERT INTO ingest_run (run_id, job_name, started_at, status, notes)
		VALUES ($1, $2, $3, $4, $5)
	`, run.RunID, run.JobName, run.StartedAt, string(run.Status), run.Notes)
	if err != nil {
		return fmt.Errorf("inserting ingest run %s: %w", run.RunID, err)
	}
	return nil
}

// UpdateIngestRun closes out a run; implements ingestlog.Store.
func (s *Store) UpdateIngestRun(ctx context.Context, runID string, finishedAt time.Time, status models.IngestRunStatus, notes string) error {
	_, err := s.Ingest.ExecContext(ctx, `
		UPDATE ingest_run SET finished_at = $2, status = $3, notes = $4 WHERE run_id = $1
	`, runID, finishedAt, string(status), notes)
	if err != nil {
		return fmt.Errorf("updating ingest run %s: %w", runID, err)
	}
	return nil
}

// InsertIngestEvent persists one external-call event; implements
// ingestlog.Store.
func (s *Store) InsertIngestEvent(ctx context.Context, event models.IngestEvent) error {
	_, err := s.Ingest.ExecContext(ctx, `
		INSERT INTO ingest_event (event_id, run_id, source, endpoint, http_status, response_ms, error, response_headers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, event.EventID, event.RunID, event.Source, event.Endpoint, event.HTTPStatus, event.ResponseMS,
		event.Error, event.ResponseHeaders, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting ingest event for run %s: %w", event.RunID, err)
	}
	return nil
}

// GetIngestRun fetches one run by id, for GET /api/ingest/runs/{id}.
func (s *Store) GetIngestRun(ctx context.Context, runID string) (*models.IngestRun, error) {
	var run models.IngestRun
	var status string
	var notes sql.NullString
	err := s.API.QueryRowContext(ctx, `
		SELECT run_id, job_name, started_at, finished_at, status, notes
		FROM ingest_run WHERE run_id = $1
	`, runID).Scan(&run.RunID, &run.JobName, &run.StartedAt, &run.FinishedAt, &status, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching ingest run %s: %w", runID, err)
	}
	run.Status = models.IngestRunStatus(status)
	run.Notes = notes.String
	return &run, nil
}

// ListIngestRuns returns the most recent runs, newest first, optionally
// filtered by job name.
func (s *Store) ListIngestRuns(ctx context.Context, jobName string, limit int) ([]models.IngestRun, error) {
	query := `SELECT run_id, job_name, started_at, finished_at, status, notes FROM ingest_run`
	var args []interface{}
	if jobName != "" {
		query += ` WHERE job_name = $1`
		args = append(args, jobName)
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %d", limit)

	rows, err := s.API.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ingest runs: %w", err)
	}
	defer rows.Close()

	var out []models.IngestRun
	for rows.Next() {
		var run models.IngestRun
		var status string
		var notes sql.NullString
		if err := rows.Scan(&run.RunID, &run.JobName, &run.StartedAt, &run.FinishedAt, &status, &notes); err != nil {
			return nil, fmt.Errorf("scanning ingest run row: %w", err)
		}
		run.Status = models.IngestRunStatus(status)
		run.Notes = notes.String
		out = append(out, run)
	}
	return out, rows.Err()
}

// ListIngestEvents returns every event recorded for runID, oldest first.
func (s *Store) ListIngestEvents(ctx context.Context, runID string) ([]models.IngestEvent, error) {
	rows, err := s.API.QueryContext(ctx, `
		SELECT event_id, run_id, source, endpoint, http_status, response_ms, error, response_headers, created_at
		FROM ingest_event WHERE run_id = $1 ORDER BY created_at ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing ingest events for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []models.IngestEvent
	for rows.Next() {
		var ev models.IngestEvent
		var errMsg sql.NullString
		if err := rows.Scan(&ev.EventID, &ev.RunID, &ev.Source, &ev.Endpoint, &ev.HTTPStatus, &ev.ResponseMS,
			&errMsg, &ev.ResponseHeaders, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ingest event row: %w", err)
		}
		ev.Error = errMsg.String
		out = append(out, ev)
	}
	return out, rows.Err()
}
