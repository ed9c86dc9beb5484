package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ngmaloney/weatherd/internal/geo"
	"github.com/ngmaloney/weatherd/internal/respcache"
)

// nearestStationCount is the "6 nearest stations" constant of spec §4.8.3.
const nearestStationCount = 6

func (h *handlers) layerTemperature(w http.ResponseWriter, r *http.Request) {
	bb, ok := parseBBox(r)
	if !ok {
		badRequest(w, "bbox_required", "bbox must be minLon,minLat,maxLon,maxLat")
		return
	}
	hourOffset := clampInt(r, "hourOffset", 0, 0, 168)

	key := respcache.Key("layers/temperature", map[string]string{"bbox": bboxParam(r), "hourOffset": intParam(hourOffset)})
	err := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		ctx := r.Context()
		gridpoints, err := h.deps.Store.GridpointsInBBox(ctx, bb)
		if err != nil {
			return nil, err
		}

		features := make([]feature, 0, len(gridpoints))
		for _, gp := range gridpoints {
			stations, distances, err := h.deps.Store.NearestStations(ctx, h.deps.Store.API, gp.Point.Lat, gp.Point.Lon, nearestStationCount)
			if err != nil {
				return nil, err
			}

			inputs := make([]geo.Weighted, len(stations))
			for i, st := range stations {
				latest, err := h.deps.Store.LatestDailySummary(ctx, h.deps.Store.API, st.StationID)
				if err != nil {
					return nil, err
				}
				var tmean *float64
				if latest != nil && latest.TMaxC != nil && latest.TMinC != nil {
					v := (*latest.TMaxC + *latest.TMinC) / 2
					tmean = &v
				}
				inputs[i] = geo.Weighted{Value: tmean, DistanceM: distances[i]}
			}

			tempC, ok := geo.IDWInverseSquare(inputs)
			var tempVal interface{}
			if ok {
				tempVal = tempC
			}
			features = append(features, pointFeature(gp.Point.Lon, gp.Point.Lat, map[string]interface{}{
				"grid_id":       gp.GridID,
				"temperature_c": tempVal,
				"hour_offset":   hourOffset,
			}))
		}
		return newFeatureCollection(features), nil
	})
	if err != nil {
		writeError(w, h.deps.Logger, err, "layer_temperature_failed")
	}
}

func (h *handlers) layerPrecipitation(w http.ResponseWriter, r *http.Request) {
	bb, ok := parseBBox(r)
	if !ok {
		badRequest(w, "bbox_required", "bbox must be minLon,minLat,maxLon,maxLat")
		return
	}
	days := parseRangeDays(r.URL.Query().Get("range"), 7)

	key := respcache.Key("layers/precipitation", map[string]string{"bbox": bboxParam(r), "range": intParam(days)})
	err := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		ctx := r.Context()
		now := time.Now().UTC()
		gridpoints, err := h.deps.Store.GridpointsInBBox(ctx, bb)
		if err != nil {
			return nil, err
		}

		features := make([]feature, 0, len(gridpoints))
		for _, gp := range gridpoints {
			stations, distances, err := h.deps.Store.NearestStations(ctx, h.deps.Store.API, gp.Point.Lat, gp.Point.Lon, nearestStationCount)
			if err != nil {
				return nil, err
			}

			inputs := make([]geo.Weighted, len(stations))
			for i, st := range stations {
				coverage, err := h.deps.Store.StationCoverageWindow(ctx, h.deps.Store.API, st.StationID, now, days)
				if err != nil {
					return nil, err
				}
				inputs[i] = geo.Weighted{Value: coverage.PrcpWindowMM, DistanceM: distances[i]}
			}

			prcp, ok := geo.IDWInverseSquare(inputs)
			var prcpVal interface{}
			if ok {
				prcpVal = prcp
			}
			features = append(features, pointFeature(gp.Point.Lon, gp.Point.Lat, map[string]interface{}{
				"grid_id":       gp.GridID,
				"prcp_window_mm": prcpVal,
				"range_days":    days,
			}))
		}
		return newFeatureCollection(features), nil
	})
	if err != nil {
		writeError(w, h.deps.Logger, err, "layer_precipitation_failed")
	}
}

// parseRangeDays parses the "Nd" range parameter of spec §6, defaulting and
// clamping to [1,90] days.
func parseRangeDays(s string, def int) int {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return def
	}
	s = strings.TrimSuffix(s, "d")
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > 90 {
		return 90
	}
	return n
}
