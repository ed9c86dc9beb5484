package api

import "net/http"

func (h *handlers) ingestRuns(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(r, "limit", 50, 1, 500)
	jobName := r.URL.Query().Get("jobName")

	runs, err := h.deps.Store.ListIngestRuns(r.Context(), jobName, limit)
	if err != nil {
		writeError(w, h.deps.Logger, err, "ingest_runs_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (h *handlers) ingestEvents(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("runId")
	if runID == "" {
		badRequest(w, "run_id_required", "runId is required")
		return
	}
	limit := clampInt(r, "limit", 100, 1, 1000)

	events, err := h.deps.Store.ListIngestEvents(r.Context(), runID)
	if err != nil {
		writeError(w, h.deps.Logger, err, "ingest_events_list_failed")
		return
	}
	if len(events) > limit {
		events = events[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
