package api

import (
	"net/http"

	"github.com/ngmaloney/weatherd/internal/models"
	"github.com/ngmaloney/weatherd/internal/respcache"
)

func (h *handlers) gridpoints(w http.ResponseWriter, r *http.Request) {
	bb, ok := parseBBox(r)
	if !ok {
		badRequest(w, "bbox_required", "bbox must be minLon,minLat,maxLon,maxLat")
		return
	}

	key := respcache.Key("gridpoints", map[string]string{"bbox": bboxParam(r)})
	err := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		gps, err := h.deps.Store.GridpointsInBBox(r.Context(), bb)
		if err != nil {
			return nil, err
		}
		features := make([]feature, len(gps))
		for i, gp := range gps {
			features[i] = pointFeature(gp.Point.Lon, gp.Point.Lat, map[string]interface{}{
				"grid_id": gp.GridID,
				"office":  gp.Office,
				"grid_x":  gp.GridX,
				"grid_y":  gp.GridY,
			})
		}
		return newFeatureCollection(features), nil
	})
	if err != nil {
		writeError(w, h.deps.Logger, err, "gridpoints_query_failed")
	}
}

func (h *handlers) alerts(w http.ResponseWriter, r *http.Request) {
	bb, ok := parseBBox(r)
	if !ok {
		badRequest(w, "bbox_required", "bbox must be minLon,minLat,maxLon,maxLat")
		return
	}

	key := respcache.Key("alerts", map[string]string{"bbox": bboxParam(r)})
	err := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		alerts, err := h.deps.Store.ActiveAlertsInBBox(r.Context(), bb)
		if err != nil {
			return nil, err
		}
		features := make([]feature, 0, len(alerts))
		for _, a := range alerts {
			features = append(features, feature{
				Type:     "Feature",
				Geometry: nil,
				Properties: map[string]interface{}{
					"alert_id":     a.AlertID,
					"event":        a.Event,
					"severity":     a.Severity,
					"certainty":    a.Certainty,
					"urgency":      a.Urgency,
					"headline":     a.Headline,
					"description":  a.Description,
					"instruction":  a.Instruction,
					"status":       a.Status,
					"message_type": a.MessageType,
					"area_desc":    a.AreaDesc,
					"effective":    a.Effective,
					"onset":        a.Onset,
					"expires":      a.Expires,
					"ends":         a.Ends,
				},
			})
		}
		return newFeatureCollection(features), nil
	})
	if err != nil {
		writeError(w, h.deps.Logger, err, "alerts_query_failed")
	}
}

func (h *handlers) stationsNear(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLon(r)
	if !ok {
		badRequest(w, "invalid_lat_lon", "lat must be in [-90,90] and lon in [-180,180]")
		return
	}
	limit := clampInt(r, "limit", 10, 1, 100)

	key := respcache.Key("stations/near", map[string]string{
		"lat": respcache.FormatCoord(lat), "lon": respcache.FormatCoord(lon), "limit": intParam(limit),
	})
	err := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		stations, distances, err := h.deps.Store.NearestStations(r.Context(), h.deps.Store.API, lat, lon, limit)
		if err != nil {
			return nil, err
		}
		return newFeatureCollection(stationFeatures(stations, distances)), nil
	})
	if err != nil {
		writeError(w, h.deps.Logger, err, "stations_near_failed")
	}
}

func (h *handlers) stationsAll(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(r, "limit", 500, 1, 5000)
	withData := parseBool(r, "withData", false)
	bb, hasBBox := parseBBox(r)

	key := respcache.Key("stations/all", map[string]string{
		"bbox": bboxParam(r), "limit": intParam(limit), "withData": respcache.FormatBool(withData),
	})
	err := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		var stations []models.Station
		var err error
		if hasBBox {
			stations, err = h.deps.Store.AllStations(r.Context(), &bb, limit)
		} else {
			stations, err = h.deps.Store.AllStations(r.Context(), nil, limit)
		}
		if err != nil {
			return nil, err
		}

		features := make([]feature, len(stations))
		for i, st := range stations {
			props := map[string]interface{}{
				"station_id":  st.StationID,
				"name":        st.Name,
				"elevation_m": st.ElevationM,
			}
			if withData {
				latest, err := h.deps.Store.LatestDailySummary(r.Context(), h.deps.Store.API, st.StationID)
				if err == nil && latest != nil {
					props["latest_observation"] = latest
				}
			}
			features[i] = pointFeature(st.Point.Lon, st.Point.Lat, props)
		}
		return newFeatureCollection(features), nil
	})
	if err != nil {
		writeError(w, h.deps.Logger, err, "stations_all_failed")
	}
}

func stationFeatures(stations []models.Station, distances []float64) []feature {
	features := make([]feature, len(stations))
	for i, st := range stations {
		features[i] = pointFeature(st.Point.Lon, st.Point.Lat, map[string]interface{}{
			"station_id":  st.StationID,
			"name":        st.Name,
			"elevation_m": st.ElevationM,
			"distance_m":  distances[i],
		})
	}
	return features
}

func bboxParam(r *http.Request) string {
	bb, ok := parseBBox(r)
	if !ok {
		return r.URL.Query().Get("bbox")
	}
	return respcache.FormatBBoxVal(bb.MinLon) + "," + respcache.FormatBBoxVal(bb.MinLat) + "," +
		respcache.FormatBBoxVal(bb.MaxLon) + "," + respcache.FormatBBoxVal(bb.MaxLat)
}

func intParam(n int) string {
	return respcache.FormatBBoxVal(float64(n))
}
