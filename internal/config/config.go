// Package config loads the environment/properties recognised by weatherd,
// per spec §6. Each accessor resolves its own default the way the teacher's
// database.DBPath() resolves a fixed path — no framework, no reflection.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every recognised environment variable, resolved once at
// startup and passed down by reference.
type Config struct {
	DBDSN           string
	DBUsername      string
	DBPassword      string
	DBAPIPoolMax    int
	DBIngestPoolMax int

	APIPort int

	NWSUserAgent string

	NOAAAPIEnabled       bool
	NOAAToken            string
	NOAAStationRadiusKm  float64
	NOAAStationLimit     int
	NOAAMapKeep          int
	NOAABackfillStart    time.Time
	NOAAHistoryChunkDays int
	NOAAQPS              float64
	NOAACBThreshold      int
	NOAACBWindow         time.Duration
	NOAACBCoolDown       time.Duration

	SchedGridpoint    time.Duration
	SchedHourly       time.Duration
	SchedAlerts       time.Duration
	SchedNOAAStations time.Duration
	SchedNOAADaily    time.Duration

	TrackedPoints []TrackedSeed

	StationHistoricDir       string
	StationHistoricStateFile string

	ClockZone string
}

// TrackedSeed is one "lat,lon" pair parsed out of TRACKED_POINTS.
type TrackedSeed struct {
	Lat, Lon float64
}

// Load reads the process environment into a Config, applying every default
// listed in spec §6.
func Load() (*Config, error) {
	c := &Config{
		DBDSN:           getenv("DB_JDBC_URL", ""),
		DBUsername:      getenv("DB_USERNAME", ""),
		DBPassword:      getenv("DB_PASSWORD", ""),
		DBAPIPoolMax:    getenvInt("DB_API_POOL_MAX", 8),
		DBIngestPoolMax: getenvInt("DB_INGEST_POOL_MAX", 12),

		APIPort: getenvInt("API_PORT", 8080),

		NWSUserAgent: getenv("NWS_USER_AGENT", ""),

		NOAAAPIEnabled:       getenvBool("NOAA_API_ENABLED", true),
		NOAAToken:            getenv("NOAA_TOKEN", ""),
		NOAAStationRadiusKm:  getenvFloat("NOAA_STATION_RADIUS_KM", 50),
		NOAAStationLimit:     getenvInt("NOAA_STATION_LIMIT", 25),
		NOAAMapKeep:          getenvInt("NOAA_MAP_KEEP", 5),
		NOAAHistoryChunkDays: getenvInt("NOAA_HISTORY_CHUNK_DAYS", 365),
		NOAAQPS:              getenvFloat("NOAA_QPS", 1),
		NOAACBThreshold:      getenvInt("NOAA_CB_THRESHOLD", 5),
		NOAACBWindow:         time.Duration(getenvInt("NOAA_CB_WINDOW_MS", 60000)) * time.Millisecond,
		NOAACBCoolDown:       time.Duration(getenvInt("NOAA_CB_COOL_DOWN_MS", 300000)) * time.Millisecond,

		StationHistoricDir:       getenv("STATION_HISTORIC_DIR", ""),
		StationHistoricStateFile: getenv("STATION_HISTORIC_STATE_FILE", ""),

		ClockZone: getenv("CLOCK_ZONE", "America/Los_Angeles"),
	}

	backfillStart, err := time.Parse("2006-01-02", getenv("NOAA_BACKFILL_START", "2016-01-01"))
	if err != nil {
		return nil, fmt.Errorf("parsing NOAA_BACKFILL_START: %w", err)
	}
	c.NOAABackfillStart = backfillStart

	c.SchedGridpoint, err = parseISODuration(getenv("SCHED_GRIDPOINT", "PT24H"))
	if err != nil {
		return nil, fmt.Errorf("parsing SCHED_GRIDPOINT: %w", err)
	}
	c.SchedHourly, err = parseISODuration(getenv("SCHED_HOURLY", "PT30M"))
	if err != nil {
		return nil, fmt.Errorf("parsing SCHED_HOURLY: %w", err)
	}
	c.SchedAlerts, err = parseISODuration(getenv("SCHED_ALERTS", "PT5M"))
	if err != nil {
		return nil, fmt.Errorf("parsing SCHED_ALERTS: %w", err)
	}
	c.SchedNOAAStations, err = parseISODuration(getenv("SCHED_NOAA_STATIONS", "P7D"))
	if err != nil {
		return nil, fmt.Errorf("parsing SCHED_NOAA_STATIONS: %w", err)
	}
	c.SchedNOAADaily, err = parseISODuration(getenv("SCHED_NOAA_DAILY", "P1D"))
	if err != nil {
		return nil, fmt.Errorf("parsing SCHED_NOAA_DAILY: %w", err)
	}

	c.TrackedPoints, err = parseTrackedPoints(getenv("TRACKED_POINTS", ""))
	if err != nil {
		return nil, fmt.Errorf("parsing TRACKED_POINTS: %w", err)
	}

	if c.NWSUserAgent == "" {
		return nil, fmt.Errorf("NWS_USER_AGENT is required")
	}

	return c, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseISODuration parses the small subset of ISO-8601 durations used by the
// schedule config: "PnD" (days) or "PTnH"/"PTnM"/"PTnS" (hours/minutes/
// seconds), the only forms spec §6 requires.
func parseISODuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("not an ISO-8601 duration: %q", s)
	}
	s = s[1:]

	var days string
	if idx := strings.Index(s, "T"); idx >= 0 {
		days = s[:idx]
		s = s[idx+1:]
	} else {
		days = s
		s = ""
	}

	var total time.Duration
	if days != "" {
		days = strings.TrimSuffix(days, "D")
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("parsing day component of %q: %w", s, err)
		}
		total += time.Duration(n) * 24 * time.Hour
	}

	if s != "" {
		n, unit, err := splitDurationComponent(s)
		if err != nil {
			return 0, err
		}
		switch unit {
		case "H":
			total += time.Duration(n) * time.Hour
		case "M":
			total += time.Duration(n) * time.Minute
		case "S":
			total += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("unsupported time component unit %q", unit)
		}
	}

	if total == 0 {
		return 0, fmt.Errorf("duration resolved to zero")
	}
	return total, nil
}

func splitDurationComponent(s string) (int, string, error) {
	if s == "" {
		return 0, "", fmt.Errorf("empty time component")
	}
	unit := s[len(s)-1:]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, "", fmt.Errorf("parsing time component %q: %w", s, err)
	}
	return n, unit, nil
}

// parseTrackedPoints parses "lat,lon|lat,lon" into seed points.
func parseTrackedPoints(s string) ([]TrackedSeed, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []TrackedSeed
	for _, pair := range strings.Split(s, "|") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid tracked point %q: expected lat,lon", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing lat in %q: %w", pair, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing lon in %q: %w", pair, err)
		}
		out = append(out, TrackedSeed{Lat: lat, Lon: lon})
	}
	return out, nil
}
