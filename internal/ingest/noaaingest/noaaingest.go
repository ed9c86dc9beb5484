// Package noaaingest implements the NOAA ingest pipeline of spec §4.6:
// station discovery and gridpoint mapping, chunked daily-history backfill
// with station failover, and cached grid-aggregate refresh. Grounded on the
// teacher's FindNearbyStations bounding-box-then-exact-distance idiom,
// reapplied against the NOAA CDO client instead of a local SQLite table.
package noaaingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"context"

	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/config"
	"github.com/ngmaloney/weatherd/internal/geo"
	"github.com/ngmaloney/weatherd/internal/ingestlog"
	"github.com/ngmaloney/weatherd/internal/models"
	"github.com/ngmaloney/weatherd/internal/noaa"
	"github.com/ngmaloney/weatherd/internal/store"
)

// LocalStationSource supplies station candidates from a local GHCN file,
// preferred over the NOAA API per spec §4.6 step 1.
type LocalStationSource interface {
	StationsInBBox(bb geo.BBox) ([]models.Station, error)
}

// Pipeline bundles the NOAA client and store it reads/writes against.
type Pipeline struct {
	client      *noaa.Client
	store       *store.Store
	localSource LocalStationSource
	cfg         *config.Config
	logger      *zap.Logger
}

// New constructs a Pipeline. localSource may be nil, in which case station
// discovery always falls back to the NOAA API.
func New(client *noaa.Client, st *store.Store, localSource LocalStationSource, cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{client: client, store: st, localSource: localSource, cfg: cfg, logger: logger}
}

// MapStations resolves the nearest K stations for each gridpoint and
// atomically replaces its mapping, per spec §4.6's station-discovery
// algorithm.
func (p *Pipeline) MapStations(ctx context.Context, gridpoints []models.Gridpoint) error {
	for _, gp := range gridpoints {
		if err := p.mapOne(ctx, gp); err != nil {
			p.logger.Warn("station mapping failed for gridpoint", zap.String("grid_id", gp.GridID), zap.Error(err))
		}
	}
	return nil
}

type candidate struct {
	station   models.Station
	distanceM float64
}

func (p *Pipeline) mapOne(ctx context.Context, gp models.Gridpoint) error {
	candidates, err := p.candidatesFor(ctx, gp.Point)
	if err != nil {
		return fmt.Errorf("finding station candidates for %s: %w", gp.GridID, err)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no station candidates within radius for %s", gp.GridID)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distanceM < candidates[j].distanceM })

	keep := p.cfg.NOAAMapKeep
	if keep > len(candidates) {
		keep = len(candidates)
	}
	candidates = candidates[:keep]

	mappings := make([]models.GridpointStationMap, 0, len(candidates))
	for i, c := range candidates {
		if err := p.store.UpsertStation(ctx, c.station.StationID, c.station.Name, c.station.Point, c.station.ElevationM, nil); err != nil {
			return fmt.Errorf("upserting candidate station %s: %w", c.station.StationID, err)
		}
		mappings = append(mappings, models.GridpointStationMap{
			GridID:    gp.GridID,
			StationID: c.station.StationID,
			DistanceM: c.distanceM,
			Rank:      i,
			IsPrimary: i == 0,
		})
	}

	return p.store.ReplaceGridpointStationMap(ctx, gp.GridID, mappings)
}

func (p *Pipeline) candidatesFor(ctx context.Context, point models.Point) ([]candidate, error) {
	radiusKm := p.cfg.NOAAStationRadiusKm

	if p.localSource != nil {
		minLat, minLon, maxLat, maxLon := geo.BoundingExtent(point.Lat, point.Lon, radiusKm)
		bb := geo.BBox{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
		stations, err := p.localSource.StationsInBBox(bb)
		if err != nil {
			return nil, fmt.Errorf("reading local station file: %w", err)
		}
		if len(stations) > 0 {
			return withinRadius(point, stations, radiusKm), nil
		}
	}

	hits, err := p.client.StationsNear(ctx, point.Lat, point.Lon, radiusKm, p.cfg.NOAAStationLimit)
	if err != nil {
		return nil, err
	}

	stations := make([]models.Station, len(hits))
	for i, h := range hits {
		stations[i] = models.Station{
			StationID:  h.ID,
			Name:       h.Name,
			Point:      models.Point{Lat: h.Latitude, Lon: h.Longitude},
			ElevationM: h.Elevation,
		}
	}
	return withinRadius(point, stations, radiusKm), nil
}

func withinRadius(point models.Point, stations []models.Station, radiusKm float64) []candidate {
	var out []candidate
	for _, s := range stations {
		distKm := geo.HaversineKm(point.Lat, point.Lon, s.Point.Lat, s.Point.Lon)
		if distKm <= radiusKm {
			out = append(out, candidate{station: s, distanceM: distKm * 1000})
		}
	}
	return out
}

// IngestDailyHistory backfills daily observations for each gridpoint's
// primary station, with failover to siblings, per spec §4.6 steps 1-4.
func (p *Pipeline) IngestDailyHistory(ctx context.Context, gridIDs []string, clock time.Time) error {
	for _, gridID := range gridIDs {
		primary, err := p.store.PrimaryStation(ctx, p.store.Ingest, gridID)
		if err != nil {
			p.logger.Warn("fetching primary station failed", zap.String("grid_id", gridID), zap.Error(err))
			continue
		}
		if primary == nil {
			if run, ok := ingestlog.FromContext(ctx); ok {
				run.Event(ctx, "NOAA", "daily", nil, nil, "no_primary_station_for_grid", nil)
			}
			continue
		}

		if err := p.backfillStation(ctx, *primary, clock); err == nil {
			continue
		}

		siblings, sErr := p.store.SiblingStations(ctx, p.store.Ingest, gridID, primary.StationID)
		if sErr != nil {
			p.logger.Warn("fetching sibling stations failed", zap.String("grid_id", gridID), zap.Error(sErr))
			continue
		}
		for _, sib := range siblings {
			if err := p.backfillStation(ctx, sib, clock); err == nil {
				break
			}
		}
	}
	return nil
}

func (p *Pipeline) backfillStation(ctx context.Context, station models.Station, clock time.Time) error {
	dbMax, err := p.store.MaxDailySummaryDate(ctx, p.store.Ingest, station.StationID)
	if err != nil {
		return fmt.Errorf("fetching dbMax for %s: %w", station.StationID, err)
	}

	start := p.cfg.NOAABackfillStart
	if !dbMax.IsZero() {
		start = dbMax.AddDate(0, 0, 1)
	}
	end := clock.AddDate(0, 0, -1)
	if !start.Before(end) {
		return nil
	}

	chunkDays := p.cfg.NOAAHistoryChunkDays
	for chunkStart := start; chunkStart.Before(end); chunkStart = chunkStart.AddDate(0, 0, chunkDays) {
		chunkEnd := chunkStart.AddDate(0, 0, chunkDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		data, err := p.client.DailyGhcnd(ctx, station.StationID, chunkStart.Format("2006-01-02"), chunkEnd.Format("2006-01-02"), 250)
		if err != nil {
			return fmt.Errorf("fetching daily chunk for %s: %w", station.StationID, err)
		}

		if err := p.upsertDailyRows(ctx, station.StationID, data); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) upsertDailyRows(ctx context.Context, stationID string, data []noaa.DailyDatum) error {
	byDate := make(map[string][]noaa.DailyDatum)
	for _, d := range data {
		byDate[d.Date] = append(byDate[d.Date], d)
	}

	for dateStr, rows := range byDate {
		date, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			date, err = time.Parse("2006-01-02", dateStr[:10])
			if err != nil {
				continue
			}
		}

		var tmax, tmin, prcp *float64
		for _, r := range rows {
			v := r.Value / 10
			switch r.Datatype {
			case "TMAX":
				tmax = &v
			case "TMIN":
				tmin = &v
			case "PRCP":
				prcp = &v
			}
		}
		rawJSON, _ := json.Marshal(rows)

		err = p.store.UpsertDailySummary(ctx, models.DailySummary{
			StationID: stationID,
			Date:      date,
			TMaxC:     tmax,
			TMinC:     tmin,
			PrcpMM:    prcp,
			RawJSON:   rawJSON,
		})
		if err != nil {
			return fmt.Errorf("upserting daily row %s@%s: %w", stationID, dateStr, err)
		}
	}
	return nil
}

// RefreshCachedAggregates recomputes tmean_c/prcp_30d_mm for every gridpoint
// with a primary station, per spec §4.6's cached-aggregate-refresh step;
// gridpoints with no station data get a placeholder row so reads can
// distinguish "missing" from "unknown".
func (p *Pipeline) RefreshCachedAggregates(ctx context.Context, gridIDs []string, asOf time.Time, windowDays int) error {
	for _, gridID := range gridIDs {
		if err := p.refreshOne(ctx, gridID, asOf, windowDays); err != nil {
			p.logger.Warn("cache aggregate refresh failed", zap.String("grid_id", gridID), zap.Error(err))
		}
	}
	return nil
}

func (p *Pipeline) refreshOne(ctx context.Context, gridID string, asOf time.Time, windowDays int) error {
	primary, err := p.store.PrimaryStation(ctx, p.store.Ingest, gridID)
	if err != nil {
		return fmt.Errorf("fetching primary station for %s: %w", gridID, err)
	}
	if primary == nil {
		return p.store.UpsertCachedGridAgg(ctx, models.CachedGridAgg{GridID: gridID, AsOf: asOf, LastUpdated: time.Now().UTC()})
	}

	start := asOf.AddDate(0, 0, -windowDays)
	rows, err := p.store.DailySummariesRange(ctx, primary.StationID, start, asOf)
	if err != nil {
		return fmt.Errorf("fetching daily range for %s: %w", primary.StationID, err)
	}

	var tmeanSum float64
	var tmeanCount int
	var prcpSum float64
	var havePrcp bool
	for _, r := range rows {
		if r.TMaxC != nil && r.TMinC != nil {
			tmeanSum += (*r.TMaxC + *r.TMinC) / 2
			tmeanCount++
		}
		if r.PrcpMM != nil {
			prcpSum += *r.PrcpMM
			havePrcp = true
		}
	}

	agg := models.CachedGridAgg{GridID: gridID, AsOf: asOf, LastUpdated: time.Now().UTC()}
	if tmeanCount > 0 {
		v := tmeanSum / float64(tmeanCount)
		agg.TMeanC = &v
	}
	if havePrcp {
		agg.Prcp30dMM = &prcpSum
	}
	return p.store.UpsertCachedGridAgg(ctx, agg)
}
