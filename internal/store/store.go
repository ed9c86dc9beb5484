// Package store owns all persisted state: idempotent upsert primitives and
// read queries over a PostGIS-extended Postgres database, across the two
// isolated pools of spec §5 (API-serving, ingest). The repository-function
// style (hand-written SQL, typed row structs, no ORM) is grounded on the
// teacher's internal/stations package (stations.GetDB / FindNearbyStations),
// generalised from a SQLite sync.Once singleton into two explicit,
// constructor-passed *sql.DB pools. No sqlmock-equivalent library appears
// anywhere in the pack, so the query methods here are exercised against a
// real Postgres instance rather than unit-tested; store_test.go covers the
// package's pure, DB-free helpers (normalizeStationID, gridID,
// joinPlaceholders).
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Store holds the two pools spec §5 requires: API-serving (max ~8 conns) and
// ingest (max ~12 conns). Implementations MUST NOT cross-use them.
type Store struct {
	API    *sql.DB
	Ingest *sql.DB
}

// Open opens both pools against the same DSN with their respective
// connection-count ceilings.
func Open(dsn string, apiPoolMax, ingestPoolMax int) (*Store, error) {
	api, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening API pool: %w", err)
	}
	api.SetMaxOpenConns(apiPoolMax)

	ingest, err := sql.Open("postgres", dsn)
	if err != nil {
		api.Close()
		return nil, fmt.Errorf("opening ingest pool: %w", err)
	}
	ingest.SetMaxOpenConns(ingestPoolMax)

	return &Store{API: api, Ingest: ingest}, nil
}

// Close closes both pools.
func (s *Store) Close() error {
	apiErr := s.API.Close()
	ingestErr := s.Ingest.Close()
	if apiErr != nil {
		return apiErr
	}
	return ingestErr
}

// Ping exercises the API pool for GET /health.
func (s *Store) Ping(ctx context.Context) error {
	return s.API.PingContext(ctx)
}

// normalizeStationID enforces the "GHCND:" prefix at every write and read
// boundary per spec §3's Station invariant.
func normalizeStationID(id string) string {
	const prefix = "GHCND:"
	if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
		return id
	}
	return prefix + id
}

// gridID composes the canonical grid_id string per spec §3's Gridpoint
// invariant: grid_id uniquely determines (office, grid_x, grid_y).
func gridID(office string, gx, gy int) string {
	return fmt.Sprintf("%s:%d,%d", office, gx, gy)
}
