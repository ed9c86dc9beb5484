// Package nws implements the NWS client of spec §4.2: points, forecastHourly,
// and activeAlertsForPoint, each returning a parsed JSON document over the
// shared httpfabric.Client. The per-operation shape (constructor-injected
// fabric client, private response-envelope structs, header-setting idiom)
// is grounded on the teacher's NOAAWeatherClient/NOAAAlertClient
// (internal/noaa/weather_client.go, internal/noaa/alert_client.go).
package nws

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/httpfabric"
	"github.com/ngmaloney/weatherd/internal/werrors"
)

const baseURL = "https://api.weather.gov"

// Client wraps an httpfabric.Client bound to the "NWS" upstream.
type Client struct {
	fabric    *httpfabric.Client
	userAgent string
	logger    *zap.Logger
}

// New builds an NWS client. userAgent MUST identify the operating service
// per spec §4.2 and §6.
func New(fabric *httpfabric.Client, userAgent string, logger *zap.Logger) *Client {
	return &Client{fabric: fabric, userAgent: userAgent, logger: logger}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"User-Agent": c.userAgent,
		"Accept":     "application/geo+json",
	}
}

// PointsResponse is the parsed /points/{lat},{lon} document.
type PointsResponse struct {
	Properties struct {
		GridID           string `json:"gridId"`
		GridX            int    `json:"gridX"`
		GridY            int    `json:"gridY"`
		ForecastGridData string `json:"forecastGridData"`
		ForecastHourly   string `json:"forecastHourly"`
	} `json:"properties"`
}

// Points calls GET /points/{lat},{lon}.
func (c *Client) Points(ctx context.Context, lat, lon float64) (*PointsResponse, error) {
	url := fmt.Sprintf("%s/points/%.4f,%.4f", baseURL, lat, lon)
	result, err := c.fabric.Do(ctx, "GET", url, c.headers(), nil)
	if err != nil {
		return nil, err
	}
	var out PointsResponse
	if err := json.Unmarshal(result.Body, &out); err != nil {
		return nil, werrors.Wrap(werrors.Unexpected, "nws_points_decode_failed", err)
	}
	return &out, nil
}

// ForecastPeriod is one raw hourly period as NWS returns it; normalisation
// to SI units happens in the ingest pipeline, not here, so raw_json stays
// forensically faithful per spec §4.5.
type ForecastPeriod struct {
	Number                int     `json:"number"`
	StartTime             string  `json:"startTime"`
	EndTime               string  `json:"endTime"`
	IsDaytime             bool    `json:"isDaytime"`
	Temperature           float64 `json:"temperature"`
	TemperatureUnit       string  `json:"temperatureUnit"`
	WindSpeed             string  `json:"windSpeed"`
	WindDirection         string  `json:"windDirection"`
	ShortForecast         string  `json:"shortForecast"`
	RelativeHumidity      *struct {
		Value *float64 `json:"value"`
	} `json:"relativeHumidity"`
	ProbabilityOfPrecip *struct {
		Value *float64 `json:"value"`
	} `json:"probabilityOfPrecipitation"`
}

// ForecastHourlyResponse is the parsed hourly-forecast document.
type ForecastHourlyResponse struct {
	Properties struct {
		UpdateTime string           `json:"updateTime"`
		Periods    []ForecastPeriod `json:"periods"`
	} `json:"properties"`
}

// ForecastHourly calls GET on the gridpoint's stored hourly URL.
func (c *Client) ForecastHourly(ctx context.Context, url string) (*ForecastHourlyResponse, []byte, error) {
	result, err := c.fabric.Do(ctx, "GET", url, c.headers(), nil)
	if err != nil {
		return nil, nil, err
	}
	var out ForecastHourlyResponse
	if err := json.Unmarshal(result.Body, &out); err != nil {
		return nil, nil, werrors.Wrap(werrors.Unexpected, "nws_hourly_decode_failed", err)
	}
	return &out, result.Body, nil
}

// AlertFeature is one GeoJSON alert feature.
type AlertFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Event       string `json:"event"`
		Severity    string `json:"severity"`
		Certainty   string `json:"certainty"`
		Urgency     string `json:"urgency"`
		Headline    string `json:"headline"`
		Description string `json:"description"`
		Instruction string `json:"instruction"`
		Effective   string `json:"effective"`
		Onset       string `json:"onset"`
		Expires     string `json:"expires"`
		Ends        string `json:"ends"`
		Status      string `json:"status"`
		MessageType string `json:"messageType"`
		AreaDesc    string `json:"areaDesc"`
	} `json:"properties"`
	Geometry json.RawMessage `json:"geometry"`
}

// ActiveAlertsResponse is the parsed /alerts/active document.
type ActiveAlertsResponse struct {
	Features []AlertFeature `json:"features"`
}

// ActiveAlertsForPoint calls GET /alerts/active?point={lat},{lon}.
func (c *Client) ActiveAlertsForPoint(ctx context.Context, lat, lon float64) (*ActiveAlertsResponse, error) {
	url := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", baseURL, lat, lon)
	result, err := c.fabric.Do(ctx, "GET", url, c.headers(), nil)
	if err != nil {
		return nil, err
	}
	var out ActiveAlertsResponse
	if err := json.Unmarshal(result.Body, &out); err != nil {
		return nil, werrors.Wrap(werrors.Unexpected, "nws_alerts_decode_failed", err)
	}
	return &out, nil
}
