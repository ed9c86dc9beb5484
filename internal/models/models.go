// Package models defines the entities of §3: the persisted rows ingest
// pipelines write and the read API serves, plus the read-only views and
// ML prediction shapes.
package models

import "time"

// Point is a bare lat/lon pair, reused across every entity that carries one.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Gridpoint is a forecast tile identifier produced by NWS.
type Gridpoint struct {
	GridID              string    `json:"grid_id"`
	Office              string    `json:"office"`
	GridX               int       `json:"grid_x"`
	GridY               int       `json:"grid_y"`
	Point               Point     `json:"point"`
	ForecastGridDataURL string    `json:"forecast_grid_data_url"`
	ForecastHourlyURL   string    `json:"forecast_hourly_url"`
	LastRefreshedAt     time.Time `json:"last_refreshed_at"`
}

// Station is an observing station (GHCND or equivalent). StationID always
// carries the "GHCND:" prefix; normalisation is enforced at every write and
// read boundary in internal/store.
type Station struct {
	StationID  string  `json:"station_id"`
	Name       string  `json:"name"`
	Point      Point   `json:"point"`
	ElevationM float64 `json:"elevation_m"`
	Metadata   []byte  `json:"metadata,omitempty"`
}

// GridpointStationMap is one (gridpoint, station) mapping row, ordered by
// distance; exactly at most one row per gridpoint has IsPrimary set.
type GridpointStationMap struct {
	GridID    string  `json:"grid_id"`
	StationID string  `json:"station_id"`
	DistanceM float64 `json:"distance_m"`
	Rank      int     `json:"rank"`
	IsPrimary bool    `json:"is_primary"`
}

// HourlyForecast is one period for a gridpoint.
type HourlyForecast struct {
	GridID           string    `json:"grid_id"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	TemperatureC     *float64  `json:"temperature_c"`
	WindSpeedMPS     *float64  `json:"wind_speed_mps"`
	WindGustMPS      *float64  `json:"wind_gust_mps"`
	WindDirDeg       *float64  `json:"wind_dir_deg"`
	PrecipProb       *float64  `json:"precip_prob"`
	RelativeHumidity *float64  `json:"relative_humidity"`
	ShortForecast    string    `json:"short_forecast"`
	IssuedAt         time.Time `json:"issued_at"`
	RawJSON          []byte    `json:"-"`
	IngestedAt       time.Time `json:"ingested_at"`
}

// Alert is one NWS alert feature.
type Alert struct {
	AlertID     string     `json:"alert_id"`
	Event       string     `json:"event"`
	Severity    string     `json:"severity"`
	Certainty   string     `json:"certainty"`
	Urgency     string     `json:"urgency"`
	Headline    string     `json:"headline"`
	Description string     `json:"description"`
	Instruction string     `json:"instruction"`
	Effective   *time.Time `json:"effective"`
	Onset       *time.Time `json:"onset"`
	Expires     *time.Time `json:"expires"`
	Ends        *time.Time `json:"ends"`
	Status      string     `json:"status"`
	MessageType string     `json:"message_type"`
	AreaDesc    string     `json:"area_desc"`
	GeometryGeo []byte     `json:"geometry,omitempty"`
	RawJSON     []byte     `json:"-"`
}

// DailySummary is one (station, date) daily observation row. Units are
// always Celsius and millimetres.
type DailySummary struct {
	StationID string    `json:"station_id"`
	Date      time.Time `json:"date"`
	TMaxC     *float64  `json:"tmax_c"`
	TMinC     *float64  `json:"tmin_c"`
	PrcpMM    *float64  `json:"prcp_mm"`
	RawJSON   []byte    `json:"-"`
}

// TrackedPoint is a (lat, lon) the service has been asked to monitor.
type TrackedPoint struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
	Point
}

// CachedGridAgg is the materialised denormalisation refreshed after each
// daily ingest.
type CachedGridAgg struct {
	GridID      string    `json:"grid_id"`
	AsOf        time.Time `json:"as_of"`
	TMeanC      *float64  `json:"tmean_c"`
	Prcp30dMM   *float64  `json:"prcp_30d_mm"`
	LastUpdated time.Time `json:"last_updated"`
}

// IngestRunStatus is the lifecycle of an ingest run.
type IngestRunStatus string

const (
	RunRunning IngestRunStatus = "RUNNING"
	RunSuccess IngestRunStatus = "SUCCESS"
	RunFailed  IngestRunStatus = "FAILED"
)

// IngestRun is one scheduled-job invocation.
type IngestRun struct {
	RunID      string          `json:"run_id"`
	JobName    string          `json:"job_name"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
	Status     IngestRunStatus `json:"status"`
	Notes      string          `json:"notes,omitempty"`
}

// IngestEvent is one external call made during an ingest run.
type IngestEvent struct {
	EventID         string    `json:"event_id"`
	RunID           string    `json:"run_id"`
	Source          string    `json:"source"`
	Endpoint        string    `json:"endpoint"`
	HTTPStatus      *int      `json:"http_status,omitempty"`
	ResponseMS      *int64    `json:"response_ms,omitempty"`
	Error           string    `json:"error,omitempty"`
	ResponseHeaders []byte    `json:"response_headers,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// SourceType tags the entity a weather-prediction row was derived from,
// replacing the source language's stringly-typed "source_type" tag per
// spec §9's redesign note.
type SourceType string

const (
	SourcePoint     SourceType = "point"
	SourceGridpoint SourceType = "gridpoint"
	SourceStation   SourceType = "station"
	SourceTracked   SourceType = "tracked"
)

// MLModelRun is one ml_model_run row: a training/scoring run of the external
// ML service, surfaced read-only by GET /api/ml/runs.
type MLModelRun struct {
	RunID      string     `json:"run_id"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Status     string     `json:"status"`
}

// MLPrediction is a risk-score prediction keyed by (run_id, grid_id, valid_time).
type MLPrediction struct {
	RunID     string    `json:"run_id"`
	GridID    string    `json:"grid_id"`
	ValidTime time.Time `json:"valid_time"`
	RiskScore float64   `json:"risk_score"`
	RiskClass string    `json:"risk_class"`
}

// MLWeatherPrediction is a weather forecast produced by the ML service,
// keyed logically by (source_type, source_id, as_of_date, horizon_hours).
type MLWeatherPrediction struct {
	SourceType   SourceType `json:"source_type"`
	SourceID     string     `json:"source_id"`
	Lat          *float64   `json:"lat,omitempty"`
	Lon          *float64   `json:"lon,omitempty"`
	AsOfDate     time.Time  `json:"as_of_date"`
	HorizonHours int        `json:"horizon_hours"`
	TMinC        *float64   `json:"tmin_c"`
	TMaxC        *float64   `json:"tmax_c"`
	TMeanC       *float64   `json:"tmean_c"`
	PrcpMM       *float64   `json:"prcp_mm"`
	Delta        *float64   `json:"delta"`
	Confidence   *float64   `json:"confidence"`
	ModelName    string     `json:"model_name"`
	Detail       string     `json:"detail,omitempty"`
}

// LatestHourlyForecastRow backs v_latest_hourly_forecast.
type LatestHourlyForecastRow struct {
	GridID    string    `json:"grid_id"`
	StartTime time.Time `json:"start_time"`
	HourlyForecast
}

// ActiveAlertRow backs v_active_alerts.
type ActiveAlertRow struct {
	Alert
	Point Point `json:"point"`
}

// ServiceHealth backs GET /health.
type ServiceHealth struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
	DB     string    `json:"db"`
}
