package api

import (
	"net/http"
	"time"

	"github.com/ngmaloney/weatherd/internal/geo"
	"github.com/ngmaloney/weatherd/internal/respcache"
)

// stationSummary is one entry of the nearest_stations array of spec §4.8.2.
type stationSummary struct {
	StationID    string     `json:"station_id"`
	Name         string     `json:"name"`
	DistanceM    float64    `json:"distance_m"`
	TMaxC        *float64   `json:"tmax_c"`
	TMinC        *float64   `json:"tmin_c"`
	PrcpWindowMM *float64   `json:"prcp_window_mm"`
	Count        int        `json:"observation_count"`
	FirstDate    *time.Time `json:"first_date"`
	LastDate     *time.Time `json:"last_date"`
}

func (h *handlers) pointSummary(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLon(r)
	if !ok {
		badRequest(w, "invalid_lat_lon", "lat must be in [-90,90] and lon in [-180,180]")
		return
	}
	days := clampInt(r, "days", 30, 1, 365)
	limit := clampInt(r, "limit", 5, 1, 25)

	key := respcache.Key("point/summary", map[string]string{
		"lat": respcache.FormatCoord(lat), "lon": respcache.FormatCoord(lon),
		"days": intParam(days), "limit": intParam(limit),
	})
	cacheErr := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		return h.buildPointSummary(r, lat, lon, days, limit)
	})
	if cacheErr != nil {
		writeError(w, h.deps.Logger, cacheErr, "point_summary_failed")
	}
}

func (h *handlers) buildPointSummary(r *http.Request, lat, lon float64, days, limit int) (interface{}, error) {
	ctx := r.Context()
	now := time.Now().UTC()

	stations, distances, err := h.deps.Store.NearestStations(ctx, h.deps.Store.API, lat, lon, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]stationSummary, len(stations))
	var tmeanInputs, prcpInputs []geo.Weighted
	for i, st := range stations {
		latest, err := h.deps.Store.LatestDailySummary(ctx, h.deps.Store.API, st.StationID)
		if err != nil {
			return nil, err
		}
		coverage, err := h.deps.Store.StationCoverageWindow(ctx, h.deps.Store.API, st.StationID, now, days)
		if err != nil {
			return nil, err
		}

		s := stationSummary{
			StationID: st.StationID,
			Name:      st.Name,
			DistanceM: distances[i],
			PrcpWindowMM: coverage.PrcpWindowMM,
			Count:     coverage.Count,
			FirstDate: coverage.FirstDate,
			LastDate:  coverage.LastDate,
		}
		if latest != nil {
			s.TMaxC, s.TMinC = latest.TMaxC, latest.TMinC
		}
		summaries[i] = s

		var tmean *float64
		if s.TMaxC != nil && s.TMinC != nil {
			v := (*s.TMaxC + *s.TMinC) / 2
			tmean = &v
		}
		tmeanInputs = append(tmeanInputs, geo.Weighted{Value: tmean, DistanceM: distances[i]})
		prcpInputs = append(prcpInputs, geo.Weighted{Value: s.PrcpWindowMM, DistanceM: distances[i]})
	}

	interpolated := map[string]interface{}{}
	if v, ok := geo.IDW(tmeanInputs); ok {
		interpolated["tmean_c"] = v
	} else {
		interpolated["tmean_c"] = nil
	}
	if v, ok := geo.IDW(prcpInputs); ok {
		interpolated["prcp_window_mm"] = v
	} else {
		interpolated["prcp_window_mm"] = nil
	}

	nearestGrid, _, err := h.deps.Store.NearestGridpoint(ctx, h.deps.Store.API, lat, lon)
	if err != nil {
		return nil, err
	}

	var hourly interface{}
	if nearestGrid != nil {
		periods, err := h.deps.Store.HourlyForecastsFrom(ctx, nearestGrid.GridID, now, 1)
		if err != nil {
			return nil, err
		}
		if len(periods) > 0 {
			hourly = periods[0]
		}
	}

	return map[string]interface{}{
		"query":             map[string]float64{"lat": lat, "lon": lon},
		"nearest_stations":  summaries,
		"interpolated":      interpolated,
		"nearest_gridpoint": nearestGrid,
		"hourly":            hourly,
	}, nil
}
