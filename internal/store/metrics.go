package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MetricsSummary is the row-count-and-freshness snapshot served by
// GET /api/metrics/summary.
type MetricsSummary struct {
	Gridpoints           int        `json:"gridpoints"`
	Stations             int        `json:"stations"`
	HourlyForecastRows   int        `json:"hourly_forecast_rows"`
	ActiveAlerts         int        `json:"active_alerts"`
	DailySummaryRows     int        `json:"daily_summary_rows"`
	TrackedPoints        int        `json:"tracked_points"`
	LatestHourlyIngested *time.Time `json:"latest_hourly_ingested_at"`
	LatestDailyDate      *time.Time `json:"latest_daily_date"`
	LatestIngestRun      *time.Time `json:"latest_ingest_run_started_at"`
}

// MetricsSummary aggregates row counts and freshness timestamps across the
// API pool, one query per table in the teacher's repository-function style
// (no aggregate-query-builder abstraction).
func (s *Store) MetricsSummary(ctx context.Context) (MetricsSummary, error) {
	var sum MetricsSummary

	counts := []struct {
		table string
		dest  *int
	}{
		{"geo_gridpoint", &sum.Gridpoints},
		{"noaa_station", &sum.Stations},
		{"nws_forecast_hourly", &sum.HourlyForecastRows},
		{"v_active_alerts", &sum.ActiveAlerts},
		{"noaa_daily_summary", &sum.DailySummaryRows},
		{"tracked_point", &sum.TrackedPoints},
	}
	for _, c := range counts {
		if err := s.API.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)).Scan(c.dest); err != nil {
			return sum, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}

	var hourlyIngested, ingestRunStarted sql.NullTime
	var dailyDate sql.NullTime

	if err := s.API.QueryRowContext(ctx, `SELECT MAX(ingested_at) FROM nws_forecast_hourly`).Scan(&hourlyIngested); err != nil {
		return sum, fmt.Errorf("fetching latest hourly ingest time: %w", err)
	}
	if hourlyIngested.Valid {
		sum.LatestHourlyIngested = &hourlyIngested.Time
	}

	if err := s.API.QueryRowContext(ctx, `SELECT MAX(date) FROM noaa_daily_summary`).Scan(&dailyDate); err != nil {
		return sum, fmt.Errorf("fetching latest daily summary date: %w", err)
	}
	if dailyDate.Valid {
		sum.LatestDailyDate = &dailyDate.Time
	}

	if err := s.API.QueryRowContext(ctx, `SELECT MAX(started_at) FROM ingest_run`).Scan(&ingestRunStarted); err != nil {
		return sum, fmt.Errorf("fetching latest ingest run time: %w", err)
	}
	if ingestRunStarted.Valid {
		sum.LatestIngestRun = &ingestRunStarted.Time
	}

	return sum, nil
}
