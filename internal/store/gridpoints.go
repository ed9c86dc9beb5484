package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ngmaloney/weatherd/internal/geo"
	"github.com/ngmaloney/weatherd/internal/models"
)

// UpsertGridpoint writes a gridpoint row, computing grid_id from
// (office, gridX, gridY) per spec §3's invariant, and touches
// last_refreshed_at.
func (s *Store) UpsertGridpoint(ctx context.Context, office string, gridX, gridY int, point models.Point, forecastGridDataURL, forecastHourlyURL string, now time.Time) (string, error) {
	id := gridID(office, gridX, gridY)
	_, err := s.Ingest.ExecContext(ctx, `
		INSERT INTO geo_gridpoint (grid_id, office, grid_x, grid_y, geom, forecast_grid_data_url, forecast_hourly_url, last_refreshed_at)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), $7, $8, $9)
		ON CONFLICT (grid_id) DO UPDATE SET
			forecast_grid_data_url = EXCLUDED.forecast_grid_data_url,
			forecast_hourly_url = EXCLUDED.forecast_hourly_url,
			last_refreshed_at = EXCLUDED.last_refreshed_at
	`, id, office, gridX, gridY, point.Lon, point.Lat, forecastGridDataURL, forecastHourlyURL, now)
	if err != nil {
		return "", fmt.Errorf("upserting gridpoint %s: %w", id, err)
	}
	return id, nil
}

// GetGridpoint fetches a single gridpoint by id.
func (s *Store) GetGridpoint(ctx context.Context, db *sql.DB, id string) (*models.Gridpoint, error) {
	row := db.QueryRowContext(ctx, `
		SELECT grid_id, office, grid_x, grid_y, ST_X(geom), ST_Y(geom), forecast_grid_data_url, forecast_hourly_url, last_refreshed_at
		FROM geo_gridpoint WHERE grid_id = $1
	`, id)
	return scanGridpoint(row)
}

// NearestGridpoint finds the gridpoint geometrically closest to (lat, lon)
// using the <-> nearest-neighbour operator per spec §9, and its distance
// in metres.
func (s *Store) NearestGridpoint(ctx context.Context, db *sql.DB, lat, lon float64) (*models.Gridpoint, float64, error) {
	row := db.QueryRowContext(ctx, `
		SELECT grid_id, office, grid_x, grid_y, ST_X(geom), ST_Y(geom), forecast_grid_data_url, forecast_hourly_url, last_refreshed_at,
			ST_Distance(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance_m
		FROM geo_gridpoint
		ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)
		LIMIT 1
	`, lon, lat)

	var gp models.Gridpoint
	var lonVal, latVal float64
	var distance float64
	err := row.Scan(&gp.GridID, &gp.Office, &gp.GridX, &gp.GridY, &lonVal, &latVal,
		&gp.ForecastGridDataURL, &gp.ForecastHourlyURL, &gp.LastRefreshedAt, &distance)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("finding nearest gridpoint: %w", err)
	}
	gp.Point = models.Point{Lat: latVal, Lon: lonVal}
	return &gp, distance, nil
}

// GridpointsInBBox returns every gridpoint inside bb, using ST_MakeEnvelope
// per spec §9.
func (s *Store) GridpointsInBBox(ctx context.Context, bb geo.BBox) ([]models.Gridpoint, error) {
	rows, err := s.API.QueryContext(ctx, `
		SELECT grid_id, office, grid_x, grid_y, ST_X(geom), ST_Y(geom), forecast_grid_data_url, forecast_hourly_url, last_refreshed_at
		FROM geo_gridpoint
		WHERE ST_Intersects(geom, ST_SetSRID(ST_MakeEnvelope($1, $2, $3, $4), 4326))
	`, bb.MinLon, bb.MinLat, bb.MaxLon, bb.MaxLat)
	if err != nil {
		return nil, fmt.Errorf("querying gridpoints in bbox: %w", err)
	}
	defer rows.Close()

	var out []models.Gridpoint
	for rows.Next() {
		gp, err := scanGridpointRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *gp)
	}
	return out, rows.Err()
}

// AllGridpoints lists every stored gridpoint, used by the NOAA mapping job.
func (s *Store) AllGridpoints(ctx context.Context) ([]models.Gridpoint, error) {
	rows, err := s.Ingest.QueryContext(ctx, `
		SELECT grid_id, office, grid_x, grid_y, ST_X(geom), ST_Y(geom), forecast_grid_data_url, forecast_hourly_url, last_refreshed_at
		FROM geo_gridpoint
	`)
	if err != nil {
		return nil, fmt.Errorf("listing gridpoints: %w", err)
	}
	defer rows.Close()

	var out []models.Gridpoint
	for rows.Next() {
		gp, err := scanGridpointRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *gp)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGridpoint(row scanner) (*models.Gridpoint, error) {
	var gp models.Gridpoint
	var lonVal, latVal float64
	if err := row.Scan(&gp.GridID, &gp.Office, &gp.GridX, &gp.GridY, &lonVal, &latVal,
		&gp.ForecastGridDataURL, &gp.ForecastHourlyURL, &gp.LastRefreshedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning gridpoint: %w", err)
	}
	gp.Point = models.Point{Lat: latVal, Lon: lonVal}
	return &gp, nil
}

func scanGridpointRows(rows *sql.Rows) (*models.Gridpoint, error) {
	return scanGridpoint(rows)
}
