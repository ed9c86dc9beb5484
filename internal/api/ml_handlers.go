package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ngmaloney/weatherd/internal/models"
	"github.com/ngmaloney/weatherd/internal/werrors"
)

// mlWeatherBoxDeg is the "0.01° box" lat/lon lookup radius of spec §4.8.4.
const mlWeatherBoxDeg = 0.01

func (h *handlers) mlRuns(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(r, "limit", 50, 1, 500)
	runs, err := h.deps.Store.ListMLModelRuns(r.Context(), limit)
	if err != nil {
		writeError(w, h.deps.Logger, err, "ml_runs_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (h *handlers) mlPredictionsLatest(w http.ResponseWriter, r *http.Request) {
	gridID := r.URL.Query().Get("gridId")
	if gridID == "" {
		badRequest(w, "grid_id_required", "gridId is required")
		return
	}
	preds, err := h.deps.Store.LatestMLPredictions(r.Context(), []string{gridID}, time.Now().UTC())
	if err != nil {
		writeError(w, h.deps.Logger, err, "ml_predictions_latest_failed")
		return
	}
	var pred interface{}
	if len(preds) > 0 {
		pred = preds[0]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"prediction": pred})
}

// sourceTypesFor implements the "latest" route's rule from spec §4.8.4: a
// "point" sourceType query also matches stored "gridpoint" rows. Used only
// for the lat/lon box lookup; sourceId lookups go through resolveMLSource.
func sourceTypesFor(sourceType models.SourceType) []models.SourceType {
	if sourceType == models.SourcePoint {
		return []models.SourceType{models.SourcePoint, models.SourceGridpoint}
	}
	return []models.SourceType{sourceType}
}

// forecastSourceTypes implements the "forecast" route's rule from spec
// §4.8.4's Open Question (a): a "point" sourceType remaps to "gridpoint"
// only, unlike "latest" which widens to both.
func forecastSourceTypes(sourceType models.SourceType) []models.SourceType {
	if sourceType == models.SourcePoint {
		return []models.SourceType{models.SourceGridpoint}
	}
	return []models.SourceType{sourceType}
}

func parseSourceType(s string) (models.SourceType, bool) {
	switch models.SourceType(s) {
	case models.SourcePoint, models.SourceGridpoint, models.SourceStation, models.SourceTracked:
		return models.SourceType(s), true
	default:
		return "", false
	}
}

// resolveMLSource remaps a sourceId lookup for sourceType=point to its
// covering gridpoint: ml_weather_prediction rows for a tracked point are
// written under the gridpoint's source_type/source_id (see
// internal/store/ml.go's LatestMLWeatherPrediction doc comment), so a
// point's own sourceId never matches a row directly. Other source types
// pass through unchanged.
func (h *handlers) resolveMLSource(ctx context.Context, sourceType models.SourceType, sourceID string) (models.SourceType, string, error) {
	if sourceType != models.SourcePoint {
		return sourceType, sourceID, nil
	}
	id, err := strconv.ParseInt(sourceID, 10, 64)
	if err != nil {
		return "", "", werrors.New(werrors.Validation, "invalid_source_id", "sourceId must be a tracked point id for sourceType=point")
	}
	tp, err := h.deps.Store.GetTrackedPoint(ctx, id)
	if err != nil {
		return "", "", err
	}
	if tp == nil {
		return "", "", werrors.New(werrors.NotFound, "tracked_point_not_found", "")
	}
	grid, _, err := h.deps.Store.NearestGridpoint(ctx, h.deps.Store.API, tp.Lat, tp.Lon)
	if err != nil {
		return "", "", err
	}
	if grid == nil {
		return "", "", werrors.New(werrors.NotFound, "gridpoint_not_found", "no gridpoint is mapped near this tracked point")
	}
	return models.SourceGridpoint, grid.GridID, nil
}

func (h *handlers) mlWeatherLatest(w http.ResponseWriter, r *http.Request) {
	sourceType, ok := parseSourceType(r.URL.Query().Get("sourceType"))
	if !ok {
		badRequest(w, "invalid_source_type", "sourceType must be one of point, gridpoint, station, tracked")
		return
	}
	sourceID := r.URL.Query().Get("sourceId")

	var (
		pred *models.MLWeatherPrediction
		err  error
	)
	if sourceID != "" {
		resolvedType, resolvedID, resolveErr := h.resolveMLSource(r.Context(), sourceType, sourceID)
		if resolveErr != nil {
			writeError(w, h.deps.Logger, resolveErr, "ml_weather_latest_failed")
			return
		}
		pred, err = h.deps.Store.LatestMLWeatherPrediction(r.Context(), resolvedType, resolvedID)
	} else {
		lat, lon, latLonOK := parseLatLon(r)
		if !latLonOK {
			badRequest(w, "source_id_or_lat_lon_required", "provide sourceId, or lat and lon")
			return
		}
		pred, err = h.deps.Store.LatestMLWeatherPredictionNear(r.Context(), sourceTypesFor(sourceType), lat, lon, mlWeatherBoxDeg)
	}
	if err != nil {
		writeError(w, h.deps.Logger, err, "ml_weather_latest_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"prediction": pred})
}

func (h *handlers) mlWeatherForecast(w http.ResponseWriter, r *http.Request) {
	sourceType, ok := parseSourceType(r.URL.Query().Get("sourceType"))
	if !ok {
		badRequest(w, "invalid_source_type", "sourceType must be one of point, gridpoint, station, tracked")
		return
	}
	sourceID := r.URL.Query().Get("sourceId")
	days := clampInt(r, "days", 7, 1, 16)
	maxHorizonHours := (days - 1) * 24

	var (
		preds []models.MLWeatherPrediction
		err   error
	)
	if sourceID != "" {
		resolvedType, resolvedID, resolveErr := h.resolveMLSource(r.Context(), sourceType, sourceID)
		if resolveErr != nil {
			writeError(w, h.deps.Logger, resolveErr, "ml_weather_forecast_failed")
			return
		}
		preds, err = h.deps.Store.MLWeatherForecast(r.Context(), resolvedType, resolvedID)
		filtered := preds[:0]
		for _, p := range preds {
			if p.HorizonHours >= 0 && p.HorizonHours <= maxHorizonHours {
				filtered = append(filtered, p)
			}
		}
		preds = filtered
	} else {
		lat, lon, latLonOK := parseLatLon(r)
		if !latLonOK {
			badRequest(w, "source_id_or_lat_lon_required", "provide sourceId, or lat and lon")
			return
		}
		preds, err = h.deps.Store.MLWeatherForecastNear(r.Context(), forecastSourceTypes(sourceType), lat, lon, mlWeatherBoxDeg, maxHorizonHours)
	}
	if err != nil {
		writeError(w, h.deps.Logger, err, "ml_weather_forecast_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"forecast": preds})
}
