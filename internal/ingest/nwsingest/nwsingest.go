// Package nwsingest implements the NWS ingest pipeline of spec §4.5:
// gridpoint refresh, hourly-forecast ingest, and per-point alert ingest.
// Each operation opens exactly one ingest event per external call and
// fails only the current item on error, never the whole run, following the
// teacher's per-call fmt.Errorf wrapping without panics.
package nwsingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/models"
	"github.com/ngmaloney/weatherd/internal/nws"
	"github.com/ngmaloney/weatherd/internal/store"
)

// Pipeline bundles the NWS client and store it reads/writes against.
type Pipeline struct {
	client *nws.Client
	store  *store.Store
	logger *zap.Logger
}

// New constructs a Pipeline.
func New(client *nws.Client, st *store.Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{client: client, store: st, logger: logger}
}

// RefreshGridpoints resolves one gridpoint per tracked point per spec §4.5.
// A missing field on one point fails that item, not the run.
func (p *Pipeline) RefreshGridpoints(ctx context.Context, points []models.Point) error {
	for _, pt := range points {
		if err := p.refreshOne(ctx, pt); err != nil {
			p.logger.Warn("gridpoint refresh failed for point", zap.Float64("lat", pt.Lat), zap.Float64("lon", pt.Lon), zap.Error(err))
			continue
		}
	}
	return nil
}

func (p *Pipeline) refreshOne(ctx context.Context, pt models.Point) error {
	resp, err := p.client.Points(ctx, pt.Lat, pt.Lon)
	if err != nil {
		return fmt.Errorf("resolving point (%.4f,%.4f): %w", pt.Lat, pt.Lon, err)
	}
	props := resp.Properties
	if props.GridID == "" || props.ForecastHourly == "" {
		return fmt.Errorf("points response for (%.4f,%.4f) missing gridId or forecastHourly", pt.Lat, pt.Lon)
	}
	_, err = p.store.UpsertGridpoint(ctx, props.GridID, props.GridX, props.GridY, pt, props.ForecastGridData, props.ForecastHourly, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting gridpoint for (%.4f,%.4f): %w", pt.Lat, pt.Lon, err)
	}
	return nil
}

// IngestHourlyForecasts fetches and normalises every period for each
// gridpoint with a stored hourly URL, per spec §4.5's unit conversions.
func (p *Pipeline) IngestHourlyForecasts(ctx context.Context, gridpoints []models.Gridpoint) error {
	for _, gp := range gridpoints {
		if gp.ForecastHourlyURL == "" {
			continue
		}
		if err := p.ingestOne(ctx, gp); err != nil {
			p.logger.Warn("hourly ingest failed for gridpoint", zap.String("grid_id", gp.GridID), zap.Error(err))
		}
	}
	return nil
}

func (p *Pipeline) ingestOne(ctx context.Context, gp models.Gridpoint) error {
	resp, _, err := p.client.ForecastHourly(ctx, gp.ForecastHourlyURL)
	if err != nil {
		return fmt.Errorf("fetching hourly forecast for %s: %w", gp.GridID, err)
	}

	now := time.Now().UTC()
	var issuedAt time.Time
	if t, err := time.Parse(time.RFC3339, resp.Properties.UpdateTime); err == nil {
		issuedAt = t
	}

	for _, period := range resp.Properties.Periods {
		start, err := time.Parse(time.RFC3339, period.StartTime)
		if err != nil {
			continue
		}
		end, _ := time.Parse(time.RFC3339, period.EndTime)

		tempC := nws.TemperatureC(period.Temperature, period.TemperatureUnit)
		var rh *float64
		if period.RelativeHumidity != nil {
			rh = period.RelativeHumidity.Value
		}
		var precipRaw *float64
		if period.ProbabilityOfPrecip != nil {
			precipRaw = period.ProbabilityOfPrecip.Value
		}

		periodJSON, _ := json.Marshal(period)

		row := models.HourlyForecast{
			GridID:           gp.GridID,
			StartTime:        start,
			EndTime:          end,
			TemperatureC:     &tempC,
			WindSpeedMPS:     nws.WindSpeedMPS(period.WindSpeed),
			WindDirDeg:       nws.WindDirDeg(period.WindDirection),
			PrecipProb:       nws.PrecipProb(precipRaw),
			RelativeHumidity: rh,
			ShortForecast:    period.ShortForecast,
			IssuedAt:         issuedAt,
			RawJSON:          periodJSON,
			IngestedAt:       now,
		}
		if err := p.store.UpsertHourlyForecast(ctx, p.store.Ingest, row); err != nil {
			return fmt.Errorf("upserting hourly period %s@%s: %w", gp.GridID, period.StartTime, err)
		}
	}
	return nil
}

// IngestAlerts fetches and upserts active alerts for each tracked point, per
// spec §4.5. Null geometry is allowed.
func (p *Pipeline) IngestAlerts(ctx context.Context, points []models.Point) error {
	for _, pt := range points {
		if err := p.ingestAlertsOne(ctx, pt); err != nil {
			p.logger.Warn("alert ingest failed for point", zap.Float64("lat", pt.Lat), zap.Float64("lon", pt.Lon), zap.Error(err))
		}
	}
	return nil
}

func (p *Pipeline) ingestAlertsOne(ctx context.Context, pt models.Point) error {
	resp, err := p.client.ActiveAlertsForPoint(ctx, pt.Lat, pt.Lon)
	if err != nil {
		return fmt.Errorf("fetching alerts for (%.4f,%.4f): %w", pt.Lat, pt.Lon, err)
	}

	for _, feature := range resp.Features {
		props := feature.Properties
		rawJSON, _ := json.Marshal(feature)

		var geom []byte
		if len(feature.Geometry) > 0 && string(feature.Geometry) != "null" {
			geom = feature.Geometry
		}

		a := models.Alert{
			AlertID:     feature.ID,
			Event:       props.Event,
			Severity:    props.Severity,
			Certainty:   props.Certainty,
			Urgency:     props.Urgency,
			Headline:    props.Headline,
			Description: props.Description,
			Instruction: props.Instruction,
			Effective:   parseOptionalTime(props.Effective),
			Onset:       parseOptionalTime(props.Onset),
			Expires:     parseOptionalTime(props.Expires),
			Ends:        parseOptionalTime(props.Ends),
			Status:      props.Status,
			MessageType: props.MessageType,
			AreaDesc:    props.AreaDesc,
			RawJSON:     rawJSON,
		}
		if err := p.store.UpsertAlert(ctx, a, geom); err != nil {
			return fmt.Errorf("upserting alert %s: %w", feature.ID, err)
		}
	}
	return nil
}

func parseOptionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
