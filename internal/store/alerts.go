package store

import (
	"context"
	"fmt"

	"github.com/ngmaloney/weatherd/internal/geo"
	"github.com/ngmaloney/weatherd/internal/models"
)

// UpsertAlert writes one alert feature; geometryGeoJSON may be nil per spec
// §3's "null geometry is allowed" invariant.
func (s *Store) UpsertAlert(ctx context.Context, a models.Alert, geometryGeoJSON []byte) error {
	var geomExpr string
	args := []interface{}{a.AlertID, a.Event, a.Severity, a.Certainty, a.Urgency, a.Headline,
		a.Description, a.Instruction, a.Effective, a.Onset, a.Expires, a.Ends, a.Status,
		a.MessageType, a.AreaDesc}

	if geometryGeoJSON != nil {
		geomExpr = "ST_SetSRID(ST_GeomFromGeoJSON($16), 4326)"
		args = append(args, string(geometryGeoJSON), a.RawJSON)
	} else {
		geomExpr = "NULL"
		args = append(args, a.RawJSON)
	}

	query := fmt.Sprintf(`
		INSERT INTO nws_alert
			(alert_id, event, severity, certainty, urgency, headline, description, instruction, effective, onset, expires, ends, status, message_type, area_desc, geom, raw_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,%s,$%d)
		ON CONFLICT (alert_id) DO UPDATE SET
			status = EXCLUDED.status,
			expires = EXCLUDED.expires,
			ends = EXCLUDED.ends,
			raw_json = EXCLUDED.raw_json
	`, geomExpr, len(args))

	if _, err := s.Ingest.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting alert %s: %w", a.AlertID, err)
	}
	return nil
}

// ActiveAlertsInBBox returns unexpired alerts whose geometry intersects bb.
func (s *Store) ActiveAlertsInBBox(ctx context.Context, bb geo.BBox) ([]models.Alert, error) {
	rows, err := s.API.QueryContext(ctx, `
		SELECT alert_id, event, severity, certainty, urgency, headline, description, instruction, effective, onset, expires, ends, status, message_type, area_desc
		FROM v_active_alerts
		WHERE geom IS NULL OR ST_Intersects(geom, ST_SetSRID(ST_MakeEnvelope($1, $2, $3, $4), 4326))
	`, bb.MinLon, bb.MinLat, bb.MaxLon, bb.MaxLat)
	if err != nil {
		return nil, fmt.Errorf("querying alerts in bbox: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.AlertID, &a.Event, &a.Severity, &a.Certainty, &a.Urgency, &a.Headline,
			&a.Description, &a.Instruction, &a.Effective, &a.Onset, &a.Expires, &a.Ends, &a.Status,
			&a.MessageType, &a.AreaDesc); err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
