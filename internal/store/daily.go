package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ngmaloney/weatherd/internal/models"
)

// UpsertDailySummary writes one (station_id, date) row. Re-ingesting the
// same logical row is idempotent per spec §8: the ON CONFLICT clause only
// ever updates raw_json and the numeric fields, never creates a second row.
func (s *Store) UpsertDailySummary(ctx context.Context, row models.DailySummary) error {
	id := normalizeStationID(row.StationID)
	_, err := s.Ingest.ExecContext(ctx, `
		INSERT INTO noaa_daily_summary (station_id, date, tmax_c, tmin_c, prcp_mm, raw_json)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (station_id, date) DO UPDATE SET
			tmax_c = EXCLUDED.tmax_c,
			tmin_c = EXCLUDED.tmin_c,
			prcp_mm = EXCLUDED.prcp_mm,
			raw_json = EXCLUDED.raw_json
	`, id, row.Date, row.TMaxC, row.TMinC, row.PrcpMM, row.RawJSON)
	if err != nil {
		return fmt.Errorf("upserting daily summary %s@%s: %w", id, row.Date.Format("2006-01-02"), err)
	}
	return nil
}

// MaxDailySummaryDate returns the latest stored date for stationID, or the
// zero time if none exists.
func (s *Store) MaxDailySummaryDate(ctx context.Context, db *sql.DB, stationID string) (time.Time, error) {
	id := normalizeStationID(stationID)
	var max sql.NullTime
	err := db.QueryRowContext(ctx, `SELECT MAX(date) FROM noaa_daily_summary WHERE station_id = $1`, id).Scan(&max)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetching max daily date for %s: %w", id, err)
	}
	if !max.Valid {
		return time.Time{}, nil
	}
	return max.Time, nil
}

// DailySummariesRange returns daily rows for stationID in [start, end].
func (s *Store) DailySummariesRange(ctx context.Context, stationID string, start, end time.Time) ([]models.DailySummary, error) {
	id := normalizeStationID(stationID)
	rows, err := s.API.QueryContext(ctx, `
		SELECT station_id, date, tmax_c, tmin_c, prcp_mm
		FROM noaa_daily_summary
		WHERE station_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`, id, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying daily summaries for %s: %w", id, err)
	}
	defer rows.Close()

	var out []models.DailySummary
	for rows.Next() {
		var d models.DailySummary
		if err := rows.Scan(&d.StationID, &d.Date, &d.TMaxC, &d.TMinC, &d.PrcpMM); err != nil {
			return nil, fmt.Errorf("scanning daily summary row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LatestDailySummary returns the most recent daily row for stationID.
func (s *Store) LatestDailySummary(ctx context.Context, db *sql.DB, stationID string) (*models.DailySummary, error) {
	id := normalizeStationID(stationID)
	row := db.QueryRowContext(ctx, `
		SELECT station_id, date, tmax_c, tmin_c, prcp_mm
		FROM noaa_daily_summary WHERE station_id = $1
		ORDER BY date DESC LIMIT 1
	`, id)
	var d models.DailySummary
	if err := row.Scan(&d.StationID, &d.Date, &d.TMaxC, &d.TMinC, &d.PrcpMM); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching latest daily summary for %s: %w", id, err)
	}
	return &d, nil
}

// StationCoverage reports observation-date coverage for the point-summary
// endpoint: count of rows, first and last observation dates, and the
// precipitation total over the trailing window ending asOf.
type StationCoverage struct {
	Count        int
	FirstDate    *time.Time
	LastDate     *time.Time
	PrcpWindowMM *float64
}

// StationCoverageWindow aggregates coverage and windowed precip for
// stationID, used by GET /api/point/summary.
func (s *Store) StationCoverageWindow(ctx context.Context, db *sql.DB, stationID string, asOf time.Time, windowDays int) (StationCoverage, error) {
	id := normalizeStationID(stationID)
	var cov StationCoverage
	row := db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(date), MAX(date)
		FROM noaa_daily_summary WHERE station_id = $1
	`, id)
	if err := row.Scan(&cov.Count, &cov.FirstDate, &cov.LastDate); err != nil {
		return cov, fmt.Errorf("fetching station coverage for %s: %w", id, err)
	}

	windowStart := asOf.AddDate(0, 0, -windowDays)
	var prcp sql.NullFloat64
	err := db.QueryRowContext(ctx, `
		SELECT SUM(prcp_mm) FROM noaa_daily_summary
		WHERE station_id = $1 AND date > $2 AND date <= $3
	`, id, windowStart, asOf).Scan(&prcp)
	if err != nil {
		return cov, fmt.Errorf("summing windowed precip for %s: %w", id, err)
	}
	if prcp.Valid {
		cov.PrcpWindowMM = &prcp.Float64
	}
	return cov, nil
}

// UpsertCachedGridAgg writes the per-grid 30-day aggregate.
func (s *Store) UpsertCachedGridAgg(ctx context.Context, agg models.CachedGridAgg) error {
	_, err := s.Ingest.ExecContext(ctx, `
		INSERT INTO cached_grid_agg (grid_id, as_of, tmean_c, prcp_30d_mm, last_updated)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (grid_id) DO UPDATE SET
			as_of = EXCLUDED.as_of,
			tmean_c = EXCLUDED.tmean_c,
			prcp_30d_mm = EXCLUDED.prcp_30d_mm,
			last_updated = EXCLUDED.last_updated
	`, agg.GridID, agg.AsOf, agg.TMeanC, agg.Prcp30dMM, agg.LastUpdated)
	if err != nil {
		return fmt.Errorf("upserting cached grid aggregate %s: %w", agg.GridID, err)
	}
	return nil
}
