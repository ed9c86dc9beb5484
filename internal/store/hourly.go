package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ngmaloney/weatherd/internal/models"
)

// UpsertHourlyForecast writes one (grid_id, start_time) period, with
// raw_json retained for forensic use per spec §4.5.
func (s *Store) UpsertHourlyForecast(ctx context.Context, db *sql.DB, row models.HourlyForecast) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO nws_forecast_hourly
			(grid_id, start_time, end_time, temperature_c, wind_speed_mps, wind_gust_mps, wind_dir_deg, precip_prob, relative_humidity, short_forecast, issued_at, raw_json, ingested_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (grid_id, start_time) DO UPDATE SET
			end_time = EXCLUDED.end_time,
			temperature_c = EXCLUDED.temperature_c,
			wind_speed_mps = EXCLUDED.wind_speed_mps,
			wind_gust_mps = EXCLUDED.wind_gust_mps,
			wind_dir_deg = EXCLUDED.wind_dir_deg,
			precip_prob = EXCLUDED.precip_prob,
			relative_humidity = EXCLUDED.relative_humidity,
			short_forecast = EXCLUDED.short_forecast,
			issued_at = EXCLUDED.issued_at,
			raw_json = EXCLUDED.raw_json,
			ingested_at = EXCLUDED.ingested_at
	`, row.GridID, row.StartTime, row.EndTime, row.TemperatureC, row.WindSpeedMPS, row.WindGustMPS,
		row.WindDirDeg, row.PrecipProb, row.RelativeHumidity, row.ShortForecast, row.IssuedAt, row.RawJSON, row.IngestedAt)
	if err != nil {
		return fmt.Errorf("upserting hourly forecast %s@%s: %w", row.GridID, row.StartTime, err)
	}
	return nil
}

// HourlyForecastsFrom returns stored periods for gridID starting at or after
// from, ascending, capped to limit.
func (s *Store) HourlyForecastsFrom(ctx context.Context, gridID string, from time.Time, limit int) ([]models.HourlyForecast, error) {
	rows, err := s.API.QueryContext(ctx, `
		SELECT grid_id, start_time, end_time, temperature_c, wind_speed_mps, wind_gust_mps, wind_dir_deg, precip_prob, relative_humidity, short_forecast, issued_at, ingested_at
		FROM nws_forecast_hourly
		WHERE grid_id = $1 AND start_time >= $2
		ORDER BY start_time ASC
		LIMIT $3
	`, gridID, from, limit)
	if err != nil {
		return nil, fmt.Errorf("querying hourly forecasts for %s: %w", gridID, err)
	}
	defer rows.Close()
	return scanHourlyRows(rows)
}

// HourlyForecastsRange returns stored periods for gridID in [start, end].
func (s *Store) HourlyForecastsRange(ctx context.Context, gridID string, start, end time.Time) ([]models.HourlyForecast, error) {
	rows, err := s.API.QueryContext(ctx, `
		SELECT grid_id, start_time, end_time, temperature_c, wind_speed_mps, wind_gust_mps, wind_dir_deg, precip_prob, relative_humidity, short_forecast, issued_at, ingested_at
		FROM nws_forecast_hourly
		WHERE grid_id = $1 AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time ASC
	`, gridID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying hourly forecast range for %s: %w", gridID, err)
	}
	defer rows.Close()
	return scanHourlyRows(rows)
}

func scanHourlyRows(rows *sql.Rows) ([]models.HourlyForecast, error) {
	var out []models.HourlyForecast
	for rows.Next() {
		var r models.HourlyForecast
		if err := rows.Scan(&r.GridID, &r.StartTime, &r.EndTime, &r.TemperatureC, &r.WindSpeedMPS, &r.WindGustMPS,
			&r.WindDirDeg, &r.PrecipProb, &r.RelativeHumidity, &r.ShortForecast, &r.IssuedAt, &r.IngestedAt); err != nil {
			return nil, fmt.Errorf("scanning hourly forecast row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
