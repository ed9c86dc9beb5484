package api

import (
	"net/http"
	"time"

	"github.com/ngmaloney/weatherd/internal/respcache"
)

// metricsSummaryMaxAge/metricsSummaryStale implement spec §8 scenario 3:
// GET /api/metrics/summary carries Cache-Control: max-age=15,
// stale-while-revalidate=30.
const (
	metricsSummaryMaxAge = 15 * time.Second
	metricsSummaryStale  = 30 * time.Second
)

func (h *handlers) metricsSummary(w http.ResponseWriter, r *http.Request) {
	key := respcache.Key("metrics/summary", nil)
	err := serveCached(w, r, h.deps.Cache, key, metricsSummaryMaxAge, metricsSummaryStale, func() (interface{}, error) {
		return h.deps.Store.MetricsSummary(r.Context())
	})
	if err != nil {
		writeError(w, h.deps.Logger, err, "metrics_summary_failed")
	}
}

func (h *handlers) metricsExternal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Metrics.Snapshots())
}
