package store

import (
	"context"
	"fmt"
)

// ddl is the logical schema spec §6 names: the tables and views the core
// relies on. It intentionally stops short of the full DDL of every
// auxiliary table (out of scope per spec §1) but is complete for every
// entity in §3.
var ddl = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,

	`CREATE TABLE IF NOT EXISTS geo_gridpoint (
		grid_id TEXT PRIMARY KEY,
		office TEXT NOT NULL,
		grid_x INT NOT NULL,
		grid_y INT NOT NULL,
		geom GEOMETRY(Point, 4326) NOT NULL,
		forecast_grid_data_url TEXT,
		forecast_hourly_url TEXT,
		last_refreshed_at TIMESTAMPTZ,
		UNIQUE (office, grid_x, grid_y)
	)`,
	`CREATE INDEX IF NOT EXISTS geo_gridpoint_geom_idx ON geo_gridpoint USING GIST (geom)`,

	`CREATE TABLE IF NOT EXISTS noaa_station (
		station_id TEXT PRIMARY KEY,
		name TEXT,
		geom GEOMETRY(Point, 4326) NOT NULL,
		elevation_m DOUBLE PRECISION,
		metadata JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS noaa_station_geom_idx ON noaa_station USING GIST (geom)`,

	`CREATE TABLE IF NOT EXISTS gridpoint_station_map (
		grid_id TEXT NOT NULL REFERENCES geo_gridpoint(grid_id),
		station_id TEXT NOT NULL REFERENCES noaa_station(station_id),
		distance_m DOUBLE PRECISION NOT NULL,
		rank INT NOT NULL,
		is_primary BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (grid_id, station_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS gridpoint_station_map_primary_idx
		ON gridpoint_station_map (grid_id) WHERE is_primary`,

	`CREATE TABLE IF NOT EXISTS nws_forecast_hourly (
		grid_id TEXT NOT NULL REFERENCES geo_gridpoint(grid_id),
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		temperature_c DOUBLE PRECISION,
		wind_speed_mps DOUBLE PRECISION,
		wind_gust_mps DOUBLE PRECISION,
		wind_dir_deg DOUBLE PRECISION,
		precip_prob DOUBLE PRECISION,
		relative_humidity DOUBLE PRECISION,
		short_forecast TEXT,
		issued_at TIMESTAMPTZ,
		raw_json JSONB,
		ingested_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (grid_id, start_time)
	)`,

	`CREATE TABLE IF NOT EXISTS nws_alert (
		alert_id TEXT PRIMARY KEY,
		event TEXT,
		severity TEXT,
		certainty TEXT,
		urgency TEXT,
		headline TEXT,
		description TEXT,
		instruction TEXT,
		effective TIMESTAMPTZ,
		onset TIMESTAMPTZ,
		expires TIMESTAMPTZ,
		ends TIMESTAMPTZ,
		status TEXT,
		message_type TEXT,
		area_desc TEXT,
		geom GEOMETRY(Geometry, 4326),
		raw_json JSONB
	)`,

	`CREATE TABLE IF NOT EXISTS noaa_daily_summary (
		station_id TEXT NOT NULL REFERENCES noaa_station(station_id),
		date DATE NOT NULL,
		tmax_c DOUBLE PRECISION,
		tmin_c DOUBLE PRECISION,
		prcp_mm DOUBLE PRECISION,
		raw_json JSONB,
		PRIMARY KEY (station_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS tracked_point (
		id BIGSERIAL PRIMARY KEY,
		name TEXT,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		UNIQUE (lat, lon)
	)`,

	`CREATE TABLE IF NOT EXISTS cached_grid_agg (
		grid_id TEXT PRIMARY KEY REFERENCES geo_gridpoint(grid_id),
		as_of DATE NOT NULL,
		tmean_c DOUBLE PRECISION,
		prcp_30d_mm DOUBLE PRECISION,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS ingest_run (
		run_id TEXT PRIMARY KEY,
		job_name TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		notes TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS ingest_event (
		event_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES ingest_run(run_id),
		source TEXT,
		endpoint TEXT,
		http_status INT,
		response_ms BIGINT,
		error TEXT,
		response_headers JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ingest_event_run_idx ON ingest_event (run_id)`,

	`CREATE TABLE IF NOT EXISTS ml_model_run (
		run_id TEXT PRIMARY KEY,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		status TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS ml_prediction (
		run_id TEXT NOT NULL,
		grid_id TEXT NOT NULL,
		valid_time TIMESTAMPTZ NOT NULL,
		risk_score DOUBLE PRECISION,
		risk_class TEXT,
		PRIMARY KEY (run_id, grid_id, valid_time)
	)`,

	`CREATE TABLE IF NOT EXISTS ml_weather_prediction (
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		as_of_date DATE NOT NULL,
		horizon_hours INT NOT NULL,
		tmin_c DOUBLE PRECISION,
		tmax_c DOUBLE PRECISION,
		tmean_c DOUBLE PRECISION,
		prcp_mm DOUBLE PRECISION,
		delta DOUBLE PRECISION,
		confidence DOUBLE PRECISION,
		model_name TEXT,
		detail TEXT,
		PRIMARY KEY (source_type, source_id, as_of_date, horizon_hours)
	)`,

	`CREATE OR REPLACE VIEW v_latest_hourly_forecast AS
		SELECT DISTINCT ON (grid_id) *
		FROM nws_forecast_hourly
		WHERE start_time >= now()
		ORDER BY grid_id, start_time ASC`,

	`CREATE OR REPLACE VIEW v_active_alerts AS
		SELECT * FROM nws_alert
		WHERE expires IS NULL OR expires > now()`,
}

// Migrate applies the logical schema. It is idempotent: re-running it is a
// no-op on an already-provisioned database, the same "IF NOT EXISTS" idiom
// the teacher uses in ProvisionStationsDatabase.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := s.Ingest.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement: %w", err)
		}
	}
	return nil
}
