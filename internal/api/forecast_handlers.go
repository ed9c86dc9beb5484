package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ngmaloney/weatherd/internal/models"
	"github.com/ngmaloney/weatherd/internal/respcache"
)

// gridpointDistanceThresholdM is the "serve cached rows for this grid"
// radius of spec §4.8.1: 900 ft. Not env-configurable; spec §6 lists no
// variable for it, per Open Question (b).
const gridpointDistanceThresholdM = 274.32

func (h *handlers) forecastHourly(w http.ResponseWriter, r *http.Request) {
	gridID := r.URL.Query().Get("gridId")
	if gridID == "" {
		badRequest(w, "grid_id_required", "gridId is required")
		return
	}

	key := respcache.Key("forecast/hourly", map[string]string{
		"gridId": gridID, "limit": r.URL.Query().Get("limit"), "start": r.URL.Query().Get("start"), "end": r.URL.Query().Get("end"),
	})
	err := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		startS, endS := r.URL.Query().Get("start"), r.URL.Query().Get("end")
		if startS != "" && endS != "" {
			start, errS := time.Parse(time.RFC3339, startS)
			end, errE := time.Parse(time.RFC3339, endS)
			if errS != nil || errE != nil {
				return nil, nil
			}
			periods, err := h.deps.Store.HourlyForecastsRange(r.Context(), gridID, start, end)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"periods": periods}, nil
		}

		limit := clampInt(r, "limit", clampInt(r, "hours", 24, 1, 168), 1, 168)
		periods, err := h.deps.Store.HourlyForecastsFrom(r.Context(), gridID, time.Now().UTC(), limit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"periods": periods}, nil
	})
	if err != nil {
		writeError(w, h.deps.Logger, err, "forecast_hourly_failed")
	}
}

func (h *handlers) forecastDaily(w http.ResponseWriter, r *http.Request) {
	gridID := r.URL.Query().Get("gridId")
	if gridID == "" {
		badRequest(w, "grid_id_required", "gridId is required")
		return
	}
	days := clampInt(r, "days", 7, 1, 14)

	key := respcache.Key("forecast/daily", map[string]string{"gridId": gridID, "days": intParam(days)})
	err := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		now := time.Now().UTC()
		periods, err := h.deps.Store.HourlyForecastsRange(r.Context(), gridID, now, now.AddDate(0, 0, days))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"days": bucketDaily(periods)}, nil
	})
	if err != nil {
		writeError(w, h.deps.Logger, err, "forecast_daily_failed")
	}
}

// dailyBucket is one day's min/max/precipitation-probability rollup derived
// from stored hourly periods, since the provider only supplies hourly data.
type dailyBucket struct {
	Date       string   `json:"date"`
	TMaxC      *float64 `json:"tmax_c"`
	TMinC      *float64 `json:"tmin_c"`
	MaxPrecip  *float64 `json:"max_precip_prob"`
}

func bucketDaily(periods []models.HourlyForecast) []dailyBucket {
	order := make([]string, 0)
	byDate := make(map[string]*dailyBucket)
	for _, p := range periods {
		date := p.StartTime.Format("2006-01-02")
		b, ok := byDate[date]
		if !ok {
			b = &dailyBucket{Date: date}
			byDate[date] = b
			order = append(order, date)
		}
		if p.TemperatureC != nil {
			if b.TMaxC == nil || *p.TemperatureC > *b.TMaxC {
				v := *p.TemperatureC
				b.TMaxC = &v
			}
			if b.TMinC == nil || *p.TemperatureC < *b.TMinC {
				v := *p.TemperatureC
				b.TMinC = &v
			}
		}
		if p.PrecipProb != nil {
			if b.MaxPrecip == nil || *p.PrecipProb > *b.MaxPrecip {
				v := *p.PrecipProb
				b.MaxPrecip = &v
			}
		}
	}
	out := make([]dailyBucket, len(order))
	for i, d := range order {
		out[i] = *byDate[d]
	}
	return out
}

// forecastHourlyPoint implements spec §4.8.1's three-step resolution:
// nearest-stored-gridpoint-within-threshold, points()-resolved-gridpoint,
// and opportunistic gridpoint creation.
func (h *handlers) forecastHourlyPoint(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLon(r)
	if !ok {
		badRequest(w, "invalid_lat_lon", "lat must be in [-90,90] and lon in [-180,180]")
		return
	}
	limit := clampInt(r, "limit", 12, 1, 156)
	mode := r.URL.Query().Get("mode")
	refresh := parseBool(r, "refresh", false)
	ctx := r.Context()
	now := time.Now().UTC()

	nearest, distM, err := h.deps.Store.NearestGridpoint(ctx, h.deps.Store.API, lat, lon)
	if err != nil {
		writeError(w, h.deps.Logger, err, "nearest_gridpoint_failed")
		return
	}

	if nearest != nil && !refresh && distM <= gridpointDistanceThresholdM {
		periods, err := h.deps.Store.HourlyForecastsFrom(ctx, nearest.GridID, now, limit)
		if err != nil {
			writeError(w, h.deps.Logger, err, "hourly_lookup_failed")
			return
		}
		if len(periods) == 0 {
			if err := h.deps.NWSPipeline.IngestHourlyForecasts(ctx, []models.Gridpoint{*nearest}); err != nil {
				writeError(w, h.deps.Logger, err, "hourly_ingest_failed")
				return
			}
			periods, err = h.deps.Store.HourlyForecastsFrom(ctx, nearest.GridID, now, limit)
			if err != nil {
				writeError(w, h.deps.Logger, err, "hourly_lookup_failed")
				return
			}
		}
		respondHourly(w, periods, mode)
		return
	}

	resp, err := h.deps.NWSClient.Points(ctx, lat, lon)
	if err != nil {
		writeError(w, h.deps.Logger, err, "nws_unavailable")
		return
	}
	gridID := fmt.Sprintf("%s:%d,%d", resp.Properties.GridID, resp.Properties.GridX, resp.Properties.GridY)

	existing, err := h.deps.Store.GetGridpoint(ctx, h.deps.Store.API, gridID)
	if err != nil {
		writeError(w, h.deps.Logger, err, "gridpoint_lookup_failed")
		return
	}

	if existing == nil {
		if err := h.deps.NWSPipeline.RefreshGridpoints(ctx, []models.Point{{Lat: lat, Lon: lon}}); err != nil {
			writeError(w, h.deps.Logger, err, "gridpoint_refresh_failed")
			return
		}
		existing, err = h.deps.Store.GetGridpoint(ctx, h.deps.Store.API, gridID)
		if err != nil || existing == nil {
			writeError(w, h.deps.Logger, err, "nws_unavailable")
			return
		}
	}

	periods, err := h.deps.Store.HourlyForecastsFrom(ctx, existing.GridID, now, limit)
	if err != nil {
		writeError(w, h.deps.Logger, err, "hourly_lookup_failed")
		return
	}
	if len(periods) == 0 {
		if err := h.deps.NWSPipeline.IngestHourlyForecasts(ctx, []models.Gridpoint{*existing}); err != nil {
			writeError(w, h.deps.Logger, err, "hourly_ingest_failed")
			return
		}
		periods, err = h.deps.Store.HourlyForecastsFrom(ctx, existing.GridID, now, limit)
		if err != nil {
			writeError(w, h.deps.Logger, err, "hourly_lookup_failed")
			return
		}
	}
	respondHourly(w, periods, mode)
}

func respondHourly(w http.ResponseWriter, periods []models.HourlyForecast, mode string) {
	if mode == "list" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"periods": periods})
		return
	}
	var first interface{}
	if len(periods) > 0 {
		first = periods[0]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hourly": first})
}
