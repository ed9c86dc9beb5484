package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngmaloney/weatherd/internal/models"
)

func f64(v float64) *float64 { return &v }

func TestBucketDailyTracksMinMaxAndPrecip(t *testing.T) {
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	periods := []models.HourlyForecast{
		{StartTime: day, TemperatureC: f64(10), PrecipProb: f64(0.1)},
		{StartTime: day.Add(6 * time.Hour), TemperatureC: f64(22), PrecipProb: f64(0.4)},
		{StartTime: day.Add(18 * time.Hour), TemperatureC: f64(5), PrecipProb: f64(0.2)},
		{StartTime: day.AddDate(0, 0, 1), TemperatureC: f64(15)},
	}

	buckets := bucketDaily(periods)
	require.Len(t, buckets, 2)

	first := buckets[0]
	assert.Equal(t, "2026-07-01", first.Date)
	assert.Equal(t, 22.0, *first.TMaxC)
	assert.Equal(t, 5.0, *first.TMinC)
	assert.Equal(t, 0.4, *first.MaxPrecip)

	second := buckets[1]
	assert.Equal(t, "2026-07-02", second.Date)
	assert.Nil(t, second.MaxPrecip)
}

func TestBucketDailyEmptyInput(t *testing.T) {
	assert.Empty(t, bucketDaily(nil))
}

func TestParseRangeDaysDefaultAndClamp(t *testing.T) {
	assert.Equal(t, 7, parseRangeDays("", 7))
	assert.Equal(t, 3, parseRangeDays("3d", 7))
	assert.Equal(t, 1, parseRangeDays("0d", 7))
	assert.Equal(t, 90, parseRangeDays("999d", 7))
	assert.Equal(t, 7, parseRangeDays("garbage", 7))
}

func TestRoundsEqual(t *testing.T) {
	assert.True(t, roundsEqual(34.05, 34.05))
	assert.True(t, roundsEqual(34.0500001, 34.05))
	assert.False(t, roundsEqual(34.05, 34.06))
}

func TestSourceTypesForWidensPointToGridpoint(t *testing.T) {
	assert.ElementsMatch(t, []models.SourceType{models.SourcePoint, models.SourceGridpoint}, sourceTypesFor(models.SourcePoint))
	assert.Equal(t, []models.SourceType{models.SourceStation}, sourceTypesFor(models.SourceStation))
	assert.Equal(t, []models.SourceType{models.SourceTracked}, sourceTypesFor(models.SourceTracked))
}

func TestForecastSourceTypesRemapsPointToGridpointOnly(t *testing.T) {
	assert.Equal(t, []models.SourceType{models.SourceGridpoint}, forecastSourceTypes(models.SourcePoint))
	assert.Equal(t, []models.SourceType{models.SourceStation}, forecastSourceTypes(models.SourceStation))
	assert.Equal(t, []models.SourceType{models.SourceTracked}, forecastSourceTypes(models.SourceTracked))
}

func TestParseSourceTypeRejectsUnknown(t *testing.T) {
	_, ok := parseSourceType("bogus")
	assert.False(t, ok)

	st, ok := parseSourceType("gridpoint")
	assert.True(t, ok)
	assert.Equal(t, models.SourceGridpoint, st)
}
