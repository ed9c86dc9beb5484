package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ngmaloney/weatherd/internal/models"
)

// ListMLModelRuns returns the most recent ML model runs, newest first, for
// GET /api/ml/runs.
func (s *Store) ListMLModelRuns(ctx context.Context, limit int) ([]models.MLModelRun, error) {
	rows, err := s.API.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, status
		FROM ml_model_run
		ORDER BY started_at DESC NULLS LAST
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing ML model runs: %w", err)
	}
	defer rows.Close()

	var out []models.MLModelRun
	for rows.Next() {
		var run models.MLModelRun
		var status sql.NullString
		if err := rows.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &status); err != nil {
			return nil, fmt.Errorf("scanning ML model run row: %w", err)
		}
		run.Status = status.String
		out = append(out, run)
	}
	return out, rows.Err()
}

// LatestMLPredictions returns, for each gridID, the ml_prediction row with
// the earliest valid_time at or after asOf.
func (s *Store) LatestMLPredictions(ctx context.Context, gridIDs []string, asOf time.Time) ([]models.MLPrediction, error) {
	if len(gridIDs) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(gridIDs)+1)
	args = append(args, asOf)
	placeholders := make([]string, len(gridIDs))
	for i, id := range gridIDs {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT ON (grid_id) run_id, grid_id, valid_time, risk_score, risk_class
		FROM ml_prediction
		WHERE valid_time >= $1 AND grid_id IN (%s)
		ORDER BY grid_id, valid_time ASC
	`, joinPlaceholders(placeholders))

	rows, err := s.API.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying latest ML predictions: %w", err)
	}
	defer rows.Close()

	var out []models.MLPrediction
	for rows.Next() {
		var p models.MLPrediction
		if err := rows.Scan(&p.RunID, &p.GridID, &p.ValidTime, &p.RiskScore, &p.RiskClass); err != nil {
			return nil, fmt.Errorf("scanning ML prediction row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MLForecastRun returns every risk-score prediction for gridID across the
// run's forecast horizon, ascending by valid_time.
func (s *Store) MLForecastRun(ctx context.Context, gridID string, from, to time.Time) ([]models.MLPrediction, error) {
	rows, err := s.API.QueryContext(ctx, `
		SELECT run_id, grid_id, valid_time, risk_score, risk_class
		FROM ml_prediction
		WHERE grid_id = $1 AND valid_time >= $2 AND valid_time <= $3
		ORDER BY valid_time ASC
	`, gridID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying ML forecast run for %s: %w", gridID, err)
	}
	defer rows.Close()

	var out []models.MLPrediction
	for rows.Next() {
		var p models.MLPrediction
		if err := rows.Scan(&p.RunID, &p.GridID, &p.ValidTime, &p.RiskScore, &p.RiskClass); err != nil {
			return nil, fmt.Errorf("scanning ML prediction row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestMLWeatherPrediction returns the most recent weather prediction for
// (sourceType, sourceID), used by the point and gridpoint latest-prediction
// routes per spec §4.8.4's source-type filtering; a point lookup is remapped
// to its covering gridpoint by the caller before sourceID is passed here.
func (s *Store) LatestMLWeatherPrediction(ctx context.Context, sourceType models.SourceType, sourceID string) (*models.MLWeatherPrediction, error) {
	row := s.API.QueryRowContext(ctx, `
		SELECT source_type, source_id, lat, lon, as_of_date, horizon_hours, tmin_c, tmax_c, tmean_c, prcp_mm, delta, confidence, model_name, detail
		FROM ml_weather_prediction
		WHERE source_type = $1 AND source_id = $2
		ORDER BY as_of_date DESC, horizon_hours ASC
		LIMIT 1
	`, string(sourceType), sourceID)

	var p models.MLWeatherPrediction
	var st string
	var detail sql.NullString
	err := row.Scan(&st, &p.SourceID, &p.Lat, &p.Lon, &p.AsOfDate, &p.HorizonHours, &p.TMinC, &p.TMaxC,
		&p.TMeanC, &p.PrcpMM, &p.Delta, &p.Confidence, &p.ModelName, &detail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching latest ML weather prediction for %s/%s: %w", sourceType, sourceID, err)
	}
	p.SourceType = models.SourceType(st)
	p.Detail = detail.String
	return &p, nil
}

// MLWeatherForecast returns the full forecast horizon for (sourceType,
// sourceID) as of the most recent as_of_date, ascending by horizon_hours.
func (s *Store) MLWeatherForecast(ctx context.Context, sourceType models.SourceType, sourceID string) ([]models.MLWeatherPrediction, error) {
	rows, err := s.API.QueryContext(ctx, `
		SELECT source_type, source_id, lat, lon, as_of_date, horizon_hours, tmin_c, tmax_c, tmean_c, prcp_mm, delta, confidence, model_name, detail
		FROM ml_weather_prediction
		WHERE source_type = $1 AND source_id = $2
		AND as_of_date = (
			SELECT MAX(as_of_date) FROM ml_weather_prediction WHERE source_type = $1 AND source_id = $2
		)
		ORDER BY horizon_hours ASC
	`, string(sourceType), sourceID)
	if err != nil {
		return nil, fmt.Errorf("querying ML weather forecast for %s/%s: %w", sourceType, sourceID, err)
	}
	defer rows.Close()

	var out []models.MLWeatherPrediction
	for rows.Next() {
		var p models.MLWeatherPrediction
		var st string
		var detail sql.NullString
		if err := rows.Scan(&st, &p.SourceID, &p.Lat, &p.Lon, &p.AsOfDate, &p.HorizonHours, &p.TMinC, &p.TMaxC,
			&p.TMeanC, &p.PrcpMM, &p.Delta, &p.Confidence, &p.ModelName, &detail); err != nil {
			return nil, fmt.Errorf("scanning ML weather prediction row: %w", err)
		}
		p.SourceType = models.SourceType(st)
		p.Detail = detail.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestMLWeatherPredictionNear returns the most recent weather prediction
// whose stored lat/lon falls within boxDeg degrees of (lat, lon), used by the
// latest-prediction route of spec §4.8.4 when sourceId is omitted in favour
// of a coordinate lookup. sourceTypes allows querying more than one source
// type in one call ("point" queries also match "gridpoint" rows).
func (s *Store) LatestMLWeatherPredictionNear(ctx context.Context, sourceTypes []models.SourceType, lat, lon, boxDeg float64) (*models.MLWeatherPrediction, error) {
	types := make([]string, len(sourceTypes))
	for i, t := range sourceTypes {
		types[i] = string(t)
	}
	row := s.API.QueryRowContext(ctx, `
		SELECT source_type, source_id, lat, lon, as_of_date, horizon_hours, tmin_c, tmax_c, tmean_c, prcp_mm, delta, confidence, model_name, detail
		FROM ml_weather_prediction
		WHERE source_type = ANY($1)
		  AND lat BETWEEN $2 AND $3
		  AND lon BETWEEN $4 AND $5
		ORDER BY as_of_date DESC, horizon_hours ASC
		LIMIT 1
	`, pq.Array(types), lat-boxDeg, lat+boxDeg, lon-boxDeg, lon+boxDeg)

	var p models.MLWeatherPrediction
	var st string
	var detail sql.NullString
	err := row.Scan(&st, &p.SourceID, &p.Lat, &p.Lon, &p.AsOfDate, &p.HorizonHours, &p.TMinC, &p.TMaxC,
		&p.TMeanC, &p.PrcpMM, &p.Delta, &p.Confidence, &p.ModelName, &detail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying nearby ML weather prediction: %w", err)
	}
	p.SourceType = models.SourceType(st)
	p.Detail = detail.String
	return &p, nil
}

// MLWeatherForecastNear returns the full forecast horizon, ascending by
// horizon_hours and capped to maxHorizonHours, for the nearby row set
// resolved the same way LatestMLWeatherPredictionNear does, pinned to the
// as_of_date of the single nearest-in-time row.
func (s *Store) MLWeatherForecastNear(ctx context.Context, sourceTypes []models.SourceType, lat, lon, boxDeg float64, maxHorizonHours int) ([]models.MLWeatherPrediction, error) {
	latest, err := s.LatestMLWeatherPredictionNear(ctx, sourceTypes, lat, lon, boxDeg)
	if err != nil || latest == nil {
		return nil, err
	}

	types := make([]string, len(sourceTypes))
	for i, t := range sourceTypes {
		types[i] = string(t)
	}
	rows, err := s.API.QueryContext(ctx, `
		SELECT source_type, source_id, lat, lon, as_of_date, horizon_hours, tmin_c, tmax_c, tmean_c, prcp_mm, delta, confidence, model_name, detail
		FROM ml_weather_prediction
		WHERE source_type = ANY($1)
		  AND lat BETWEEN $2 AND $3
		  AND lon BETWEEN $4 AND $5
		  AND as_of_date = $6
		  AND horizon_hours <= $7
		ORDER BY horizon_hours ASC
	`, pq.Array(types), lat-boxDeg, lat+boxDeg, lon-boxDeg, lon+boxDeg, latest.AsOfDate, maxHorizonHours)
	if err != nil {
		return nil, fmt.Errorf("querying nearby ML weather forecast: %w", err)
	}
	defer rows.Close()

	var out []models.MLWeatherPrediction
	for rows.Next() {
		var p models.MLWeatherPrediction
		var st string
		var detail sql.NullString
		if err := rows.Scan(&st, &p.SourceID, &p.Lat, &p.Lon, &p.AsOfDate, &p.HorizonHours, &p.TMinC, &p.TMaxC,
			&p.TMeanC, &p.PrcpMM, &p.Delta, &p.Confidence, &p.ModelName, &detail); err != nil {
			return nil, fmt.Errorf("scanning nearby ML weather prediction row: %w", err)
		}
		p.SourceType = models.SourceType(st)
		p.Detail = detail.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += "," + p
	}
	return out
}
