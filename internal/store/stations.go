package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ngmaloney/weatherd/internal/geo"
	"github.com/ngmaloney/weatherd/internal/models"
)

// UpsertStation writes a station row, normalising station_id to the
// "GHCND:" prefix per spec §3's invariant.
func (s *Store) UpsertStation(ctx context.Context, stationID, name string, point models.Point, elevationM float64, metadata []byte) error {
	id := normalizeStationID(stationID)
	_, err := s.Ingest.ExecContext(ctx, `
		INSERT INTO noaa_station (station_id, name, geom, elevation_m, metadata)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326), $5, $6)
		ON CONFLICT (station_id) DO UPDATE SET
			name = EXCLUDED.name,
			geom = EXCLUDED.geom,
			elevation_m = EXCLUDED.elevation_m,
			metadata = COALESCE(EXCLUDED.metadata, noaa_station.metadata)
	`, id, name, point.Lon, point.Lat, elevationM, metadata)
	if err != nil {
		return fmt.Errorf("upserting station %s: %w", id, err)
	}
	return nil
}

// GetStation fetches a single station by normalised id.
func (s *Store) GetStation(ctx context.Context, db *sql.DB, stationID string) (*models.Station, error) {
	id := normalizeStationID(stationID)
	row := db.QueryRowContext(ctx, `
		SELECT station_id, name, ST_X(geom), ST_Y(geom), elevation_m, metadata
		FROM noaa_station WHERE station_id = $1
	`, id)

	var st models.Station
	var lon, lat float64
	if err := row.Scan(&st.StationID, &st.Name, &lon, &lat, &st.ElevationM, &st.Metadata); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching station %s: %w", id, err)
	}
	st.Point = models.Point{Lat: lat, Lon: lon}
	return &st, nil
}

// StationsInRadius returns every station within radiusKm of (lat, lon),
// using ST_DWithin on the geography cast per spec §9.
func (s *Store) StationsInRadius(ctx context.Context, db *sql.DB, lat, lon, radiusKm float64) ([]models.Station, []float64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT station_id, name, ST_X(geom), ST_Y(geom), elevation_m, metadata,
			ST_Distance(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance_m
		FROM noaa_station
		WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance_m ASC
	`, lon, lat, radiusKm*1000)
	if err != nil {
		return nil, nil, fmt.Errorf("querying stations in radius: %w", err)
	}
	defer rows.Close()

	var stations []models.Station
	var distances []float64
	for rows.Next() {
		var st models.Station
		var lonVal, latVal, distance float64
		if err := rows.Scan(&st.StationID, &st.Name, &lonVal, &latVal, &st.ElevationM, &st.Metadata, &distance); err != nil {
			return nil, nil, fmt.Errorf("scanning station row: %w", err)
		}
		st.Point = models.Point{Lat: latVal, Lon: lonVal}
		stations = append(stations, st)
		distances = append(distances, distance)
	}
	return stations, distances, rows.Err()
}

// NearestStations returns up to limit stations nearest (lat, lon) and their
// distances in metres, ordered ascending, via the <-> operator.
func (s *Store) NearestStations(ctx context.Context, db *sql.DB, lat, lon float64, limit int) ([]models.Station, []float64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT station_id, name, ST_X(geom), ST_Y(geom), elevation_m, metadata,
			ST_Distance(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance_m
		FROM noaa_station
		ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)
		LIMIT $3
	`, lon, lat, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("querying nearest stations: %w", err)
	}
	defer rows.Close()

	var stations []models.Station
	var distances []float64
	for rows.Next() {
		var st models.Station
		var lonVal, latVal, distance float64
		if err := rows.Scan(&st.StationID, &st.Name, &lonVal, &latVal, &st.ElevationM, &st.Metadata, &distance); err != nil {
			return nil, nil, fmt.Errorf("scanning station row: %w", err)
		}
		st.Point = models.Point{Lat: latVal, Lon: lonVal}
		stations = append(stations, st)
		distances = append(distances, distance)
	}
	return stations, distances, rows.Err()
}

// AllStations returns every station inside bb (or all stations if bb is nil).
func (s *Store) AllStations(ctx context.Context, bb *geo.BBox, limit int) ([]models.Station, error) {
	query := `SELECT station_id, name, ST_X(geom), ST_Y(geom), elevation_m, metadata FROM noaa_station`
	args := []interface{}{}
	if bb != nil {
		query += ` WHERE ST_Intersects(geom, ST_SetSRID(ST_MakeEnvelope($1, $2, $3, $4), 4326))`
		args = append(args, bb.MinLon, bb.MinLat, bb.MaxLon, bb.MaxLat)
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.API.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stations: %w", err)
	}
	defer rows.Close()

	var out []models.Station
	for rows.Next() {
		var st models.Station
		var lon, lat float64
		if err := rows.Scan(&st.StationID, &st.Name, &lon, &lat, &st.ElevationM, &st.Metadata); err != nil {
			return nil, fmt.Errorf("scanning station row: %w", err)
		}
		st.Point = models.Point{Lat: lat, Lon: lon}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ReplaceGridpointStationMap atomically clears any previous is_primary flag
// for gridID and upserts the ranked mapping rows, the nearest becoming
// primary, per spec §4.6.
func (s *Store) ReplaceGridpointStationMap(ctx context.Context, gridID string, mappings []models.GridpointStationMap) error {
	tx, err := s.Ingest.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning mapping tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM gridpoint_station_map WHERE grid_id = $1`, gridID); err != nil {
		return fmt.Errorf("clearing previous mapping for %s: %w", gridID, err)
	}

	for _, m := range mappings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gridpoint_station_map (grid_id, station_id, distance_m, rank, is_primary)
			VALUES ($1, $2, $3, $4, $5)
		`, gridID, normalizeStationID(m.StationID), m.DistanceM, m.Rank, m.IsPrimary)
		if err != nil {
			return fmt.Errorf("inserting mapping row for %s: %w", gridID, err)
		}
	}
	return tx.Commit()
}

// PrimaryStation returns the primary station for gridID, if mapped.
func (s *Store) PrimaryStation(ctx context.Context, db *sql.DB, gridID string) (*models.Station, error) {
	row := db.QueryRowContext(ctx, `
		SELECT s.station_id, s.name, ST_X(s.geom), ST_Y(s.geom), s.elevation_m, s.metadata
		FROM gridpoint_station_map m
		JOIN noaa_station s ON s.station_id = m.station_id
		WHERE m.grid_id = $1 AND m.is_primary
	`, gridID)

	var st models.Station
	var lon, lat float64
	if err := row.Scan(&st.StationID, &st.Name, &lon, &lat, &st.ElevationM, &st.Metadata); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching primary station for %s: %w", gridID, err)
	}
	st.Point = models.Point{Lat: lat, Lon: lon}
	return &st, nil
}

// SiblingStations returns the other mapped stations for gridID ordered by
// distance, for the failover retry of spec §4.6 step 4.
func (s *Store) SiblingStations(ctx context.Context, db *sql.DB, gridID, excludeStationID string) ([]models.Station, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.station_id, s.name, ST_X(s.geom), ST_Y(s.geom), s.elevation_m, s.metadata
		FROM gridpoint_station_map m
		JOIN noaa_station s ON s.station_id = m.station_id
		WHERE m.grid_id = $1 AND m.station_id != $2
		ORDER BY m.rank ASC
	`, gridID, normalizeStationID(excludeStationID))
	if err != nil {
		return nil, fmt.Errorf("fetching sibling stations for %s: %w", gridID, err)
	}
	defer rows.Close()

	var out []models.Station
	for rows.Next() {
		var st models.Station
		var lon, lat float64
		if err := rows.Scan(&st.StationID, &st.Name, &lon, &lat, &st.ElevationM, &st.Metadata); err != nil {
			return nil, fmt.Errorf("scanning sibling station row: %w", err)
		}
		st.Point = models.Point{Lat: lat, Lon: lon}
		out = append(out, st)
	}
	return out, rows.Err()
}
