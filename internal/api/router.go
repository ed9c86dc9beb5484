package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/config"
	"github.com/ngmaloney/weatherd/internal/ingest/noaaingest"
	"github.com/ngmaloney/weatherd/internal/ingest/nwsingest"
	"github.com/ngmaloney/weatherd/internal/metrics"
	"github.com/ngmaloney/weatherd/internal/nws"
	"github.com/ngmaloney/weatherd/internal/respcache"
	"github.com/ngmaloney/weatherd/internal/store"
)

// Deps bundles everything a handler needs, constructed once in cmd/weatherd
// and passed down, the same "construct once, pass down" shape httpfabric's
// shared breaker/bucket instances use.
type Deps struct {
	Store       *store.Store
	Cache       *respcache.Cache
	Metrics     *metrics.Registry
	NWSClient   *nws.Client
	NWSPipeline *nwsingest.Pipeline
	NOAAPipeline *noaaingest.Pipeline
	Config      *config.Config
	Logger      *zap.Logger
}

// Router registers every route of spec §6 on a fresh mux.Router.
func Router(deps *Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	h := &handlers{deps: deps}

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	r.HandleFunc("/api/metrics/summary", h.metricsSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics/external", h.metricsExternal).Methods(http.MethodGet)

	r.HandleFunc("/api/gridpoints", h.gridpoints).Methods(http.MethodGet)
	r.HandleFunc("/api/alerts", h.alerts).Methods(http.MethodGet)
	r.HandleFunc("/api/stations/near", h.stationsNear).Methods(http.MethodGet)
	r.HandleFunc("/api/stations/all", h.stationsAll).Methods(http.MethodGet)

	r.HandleFunc("/api/forecast/hourly", h.forecastHourly).Methods(http.MethodGet)
	r.HandleFunc("/api/forecast/daily", h.forecastDaily).Methods(http.MethodGet)
	r.HandleFunc("/api/forecast/hourly/point", h.forecastHourlyPoint).Methods(http.MethodGet)

	r.HandleFunc("/api/history/daily", h.historyDaily).Methods(http.MethodGet)
	r.HandleFunc("/api/history/gridpoint", h.historyGridpoint).Methods(http.MethodGet)

	r.HandleFunc("/api/point/summary", h.pointSummary).Methods(http.MethodGet)

	r.HandleFunc("/layers/temperature", h.layerTemperature).Methods(http.MethodGet)
	r.HandleFunc("/layers/precipitation", h.layerPrecipitation).Methods(http.MethodGet)

	r.HandleFunc("/api/tracked-points", h.listTrackedPoints).Methods(http.MethodGet)
	r.HandleFunc("/api/tracked-points", h.createTrackedPoint).Methods(http.MethodPost)
	r.HandleFunc("/api/tracked-points", h.deleteTrackedPoint).Methods(http.MethodDelete)
	r.HandleFunc("/api/tracked-points/refresh", h.refreshTrackedPoints).Methods(http.MethodPost)

	r.HandleFunc("/api/ingest/runs", h.ingestRuns).Methods(http.MethodGet)
	r.HandleFunc("/api/ingest/events", h.ingestEvents).Methods(http.MethodGet)

	r.HandleFunc("/api/ml/runs", h.mlRuns).Methods(http.MethodGet)
	r.HandleFunc("/api/ml/predictions/latest", h.mlPredictionsLatest).Methods(http.MethodGet)
	r.HandleFunc("/api/ml/weather/latest", h.mlWeatherLatest).Methods(http.MethodGet)
	r.HandleFunc("/api/ml/weather/forecast", h.mlWeatherForecast).Methods(http.MethodGet)

	return r
}

// handlers closes over Deps so every route handler can share the store,
// cache, and clients without a global.
type handlers struct {
	deps *Deps
}

// corsMiddleware applies the permissive CORS policy spec §6 requires for a
// browser-served read API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clockNow(deps *Deps) time.Time {
	loc, err := time.LoadLocation(deps.Config.ClockZone)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Now().In(loc)
}
