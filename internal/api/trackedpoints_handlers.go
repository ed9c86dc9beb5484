package api

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/models"
)

func (h *handlers) listTrackedPoints(w http.ResponseWriter, r *http.Request) {
	points, err := h.deps.Store.ListTrackedPoints(r.Context())
	if err != nil {
		writeError(w, h.deps.Logger, err, "tracked_points_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tracked_points": points})
}

func (h *handlers) createTrackedPoint(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLon(r)
	if !ok {
		badRequest(w, "invalid_lat_lon", "lat must be in [-90,90] and lon in [-180,180]")
		return
	}
	name := r.URL.Query().Get("name")

	id, err := h.deps.Store.InsertTrackedPoint(r.Context(), name, models.Point{Lat: lat, Lon: lon})
	if err != nil {
		writeError(w, h.deps.Logger, err, "tracked_point_upsert_failed")
		return
	}
	writeJSON(w, http.StatusOK, models.TrackedPoint{ID: id, Name: name, Point: models.Point{Lat: lat, Lon: lon}})
}

func (h *handlers) deleteTrackedPoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if idS := r.URL.Query().Get("id"); idS != "" {
		id, err := strconv.ParseInt(idS, 10, 64)
		if err != nil {
			badRequest(w, "invalid_id", "id must be an integer")
			return
		}
		if err := h.deps.Store.DeleteTrackedPoint(ctx, id); err != nil {
			if err == sql.ErrNoRows {
				notFound(w, "tracked_point_not_found")
				return
			}
			writeError(w, h.deps.Logger, err, "tracked_point_delete_failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
		return
	}

	lat, lon, ok := parseLatLon(r)
	if !ok {
		badRequest(w, "invalid_lat_lon", "provide id, or lat and lon")
		return
	}
	points, err := h.deps.Store.ListTrackedPoints(ctx)
	if err != nil {
		writeError(w, h.deps.Logger, err, "tracked_points_list_failed")
		return
	}
	for _, tp := range points {
		if roundsEqual(tp.Lat, lat) && roundsEqual(tp.Lon, lon) {
			if err := h.deps.Store.DeleteTrackedPoint(ctx, tp.ID); err != nil {
				writeError(w, h.deps.Logger, err, "tracked_point_delete_failed")
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": tp.ID})
			return
		}
	}
	notFound(w, "tracked_point_not_found")
}

func roundsEqual(a, b float64) bool {
	const eps = 1e-6
	d := a - b
	return d > -eps && d < eps
}

// refreshTrackedPoints triggers the gridpoint-resolution job for every
// tracked point on a background goroutine and returns immediately, the
// `created -> refreshing` transition of spec §4.8.4's tracked-point state
// machine.
func (h *handlers) refreshTrackedPoints(w http.ResponseWriter, r *http.Request) {
	points, err := h.deps.Store.ListTrackedPoints(r.Context())
	if err != nil {
		writeError(w, h.deps.Logger, err, "tracked_points_list_failed")
		return
	}
	pts := make([]models.Point, len(points))
	for i, tp := range points {
		pts[i] = tp.Point
	}

	go h.runTrackedPointsRefresh(pts)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "refreshing", "count": len(pts)})
}

func (h *handlers) runTrackedPointsRefresh(points []models.Point) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := h.deps.NWSPipeline.RefreshGridpoints(ctx, points); err != nil {
		h.deps.Logger.Warn("tracked point refresh: gridpoint resolution failed", zap.Error(err))
		return
	}
	gridpoints, err := h.deps.Store.AllGridpoints(ctx)
	if err != nil {
		h.deps.Logger.Warn("tracked point refresh: listing gridpoints failed", zap.Error(err))
		return
	}
	if err := h.deps.NOAAPipeline.MapStations(ctx, gridpoints); err != nil {
		h.deps.Logger.Warn("tracked point refresh: station mapping failed", zap.Error(err))
	}
}
