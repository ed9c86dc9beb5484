package api

import (
	"net/http"
	"time"

	"github.com/ngmaloney/weatherd/internal/respcache"
)

func (h *handlers) historyDaily(w http.ResponseWriter, r *http.Request) {
	stationID := r.URL.Query().Get("stationId")
	if stationID == "" {
		badRequest(w, "station_id_required", "stationId is required")
		return
	}
	startS, endS := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	start, err := time.Parse("2006-01-02", startS)
	if err != nil {
		badRequest(w, "invalid_start", "start must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", endS)
	if err != nil {
		badRequest(w, "invalid_end", "end must be YYYY-MM-DD")
		return
	}

	key := respcache.Key("history/daily", map[string]string{"stationId": stationID, "start": startS, "end": endS})
	cacheErr := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		rows, err := h.deps.Store.DailySummariesRange(r.Context(), stationID, start, end)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"rows": rows}, nil
	})
	if cacheErr != nil {
		writeError(w, h.deps.Logger, cacheErr, "history_daily_failed")
	}
}

func (h *handlers) historyGridpoint(w http.ResponseWriter, r *http.Request) {
	gridID := r.URL.Query().Get("gridId")
	if gridID == "" {
		badRequest(w, "grid_id_required", "gridId is required")
		return
	}
	days := clampInt(r, "days", 30, 1, 365)

	key := respcache.Key("history/gridpoint", map[string]string{"gridId": gridID, "days": intParam(days)})
	cacheErr := serveCached(w, r, h.deps.Cache, key, defaultMaxAge, defaultStale, func() (interface{}, error) {
		ctx := r.Context()
		primary, err := h.deps.Store.PrimaryStation(ctx, h.deps.Store.API, gridID)
		if err != nil {
			return nil, err
		}
		if primary == nil {
			return map[string]interface{}{"rows": []interface{}{}}, nil
		}
		end := time.Now().UTC()
		rows, err := h.deps.Store.DailySummariesRange(ctx, primary.StationID, end.AddDate(0, 0, -days), end)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"station_id": primary.StationID, "rows": rows}, nil
	})
	if cacheErr != nil {
		writeError(w, h.deps.Logger, cacheErr, "history_gridpoint_failed")
	}
}
