// Package noaa implements the NOAA Climate Data Online v2 client of spec
// §4.3: stationsNear (bbox-bounded station search) and dailyGhcnd
// (paginated daily-summary fetch). Shaped after the teacher's
// NOAAWeatherClient (constructor-injected http client, header-setting
// idiom, private response-envelope structs) but routed through the shared
// httpfabric.Client and carrying the NOAA token header instead of a bare
// User-Agent.
package noaa

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/geo"
	"github.com/ngmaloney/weatherd/internal/httpfabric"
	"github.com/ngmaloney/weatherd/internal/werrors"
)

const baseURL = "https://www.ncdc.noaa.gov/cdo-web/api/v2"

// Client wraps an httpfabric.Client bound to the "NOAA" upstream.
type Client struct {
	fabric *httpfabric.Client
	token  string
	logger *zap.Logger
}

// New builds a NOAA CDO client.
func New(fabric *httpfabric.Client, token string, logger *zap.Logger) *Client {
	return &Client{fabric: fabric, token: token, logger: logger}
}

func (c *Client) headers() map[string]string {
	return map[string]string{"token": c.token}
}

// StationHit is one row of a /stations search.
type StationHit struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Elevation   float64 `json:"elevation"`
	Datacoverage float64 `json:"datacoverage"`
}

type stationsResponse struct {
	Metadata struct {
		Resultset struct {
			Count  int `json:"count"`
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		} `json:"resultset"`
	} `json:"metadata"`
	Results []StationHit `json:"results"`
}

// StationsNear calls GET /stations with an extent computed from radiusKm
// per spec §4.3, sorted by datacoverage, capped to limit results.
func (c *Client) StationsNear(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]StationHit, error) {
	minLat, minLon, maxLat, maxLon := geo.BoundingExtent(lat, lon, radiusKm)
	url := fmt.Sprintf("%s/stations?datasetid=GHCND&extent=%.4f,%.4f,%.4f,%.4f&sortfield=datacoverage&limit=%d",
		baseURL, minLat, minLon, maxLat, maxLon, limit)

	result, err := c.fabric.Do(ctx, "GET", url, c.headers(), nil)
	if err != nil {
		return nil, err
	}
	var out stationsResponse
	if err := json.Unmarshal(result.Body, &out); err != nil {
		return nil, werrors.Wrap(werrors.Unexpected, "noaa_stations_decode_failed", err)
	}
	return out.Results, nil
}

// DailyDatum is one flat (date, datatype, value) row as NOAA returns it.
type DailyDatum struct {
	Date     string  `json:"date"`
	Datatype string  `json:"datatype"`
	Station  string  `json:"station"`
	Value    float64 `json:"value"`
}

type dailyResponse struct {
	Metadata struct {
		Resultset struct {
			Count int `json:"count"`
		} `json:"resultset"`
	} `json:"metadata"`
	Results []DailyDatum `json:"results"`
}

// DailyGhcnd paginates GET /data for one station across [startDate,endDate],
// stopping once offset+limit exceeds the reported result count, per spec
// §4.3.
func (c *Client) DailyGhcnd(ctx context.Context, stationID, startDate, endDate string, limit int) ([]DailyDatum, error) {
	var all []DailyDatum
	offset := 0
	for {
		url := fmt.Sprintf(
			"%s/data?datasetid=GHCND&stationid=%s&startdate=%s&enddate=%s&datatypeid=TMAX&datatypeid=TMIN&datatypeid=PRCP&units=metric&limit=%d&offset=%d",
			baseURL, stationID, startDate, endDate, limit, offset)

		result, err := c.fabric.Do(ctx, "GET", url, c.headers(), nil)
		if err != nil {
			return all, err
		}
		var page dailyResponse
		if err := json.Unmarshal(result.Body, &page); err != nil {
			return all, werrors.Wrap(werrors.Unexpected, "noaa_daily_decode_failed", err)
		}
		all = append(all, page.Results...)

		if offset+limit > page.Metadata.Resultset.Count || len(page.Results) == 0 {
			break
		}
		offset += limit
	}
	return all, nil
}
