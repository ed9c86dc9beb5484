package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ngmaloney/weatherd/internal/models"
)

// InsertTrackedPoint adds a point to the monitored set.
func (s *Store) InsertTrackedPoint(ctx context.Context, name string, point models.Point) (int64, error) {
	var id int64
	err := s.API.QueryRowContext(ctx, `
		INSERT INTO tracked_point (name, lat, lon) VALUES ($1, $2, $3)
		RETURNING id
	`, name, point.Lat, point.Lon).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting tracked point: %w", err)
	}
	return id, nil
}

// DeleteTrackedPoint removes a tracked point by id.
func (s *Store) DeleteTrackedPoint(ctx context.Context, id int64) error {
	res, err := s.API.ExecContext(ctx, `DELETE FROM tracked_point WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting tracked point %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result for tracked point %d: %w", id, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTrackedPoints returns every monitored point.
func (s *Store) ListTrackedPoints(ctx context.Context) ([]models.TrackedPoint, error) {
	rows, err := s.API.QueryContext(ctx, `SELECT id, name, lat, lon FROM tracked_point ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing tracked points: %w", err)
	}
	defer rows.Close()

	var out []models.TrackedPoint
	for rows.Next() {
		var tp models.TrackedPoint
		var name sql.NullString
		if err := rows.Scan(&tp.ID, &name, &tp.Lat, &tp.Lon); err != nil {
			return nil, fmt.Errorf("scanning tracked point row: %w", err)
		}
		tp.Name = name.String
		out = append(out, tp)
	}
	return out, rows.Err()
}

// GetTrackedPoint fetches a single tracked point by id.
func (s *Store) GetTrackedPoint(ctx context.Context, id int64) (*models.TrackedPoint, error) {
	var tp models.TrackedPoint
	var name sql.NullString
	err := s.API.QueryRowContext(ctx, `SELECT id, name, lat, lon FROM tracked_point WHERE id = $1`, id).
		Scan(&tp.ID, &name, &tp.Lat, &tp.Lon)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching tracked point %d: %w", id, err)
	}
	tp.Name = name.String
	return &tp, nil
}
