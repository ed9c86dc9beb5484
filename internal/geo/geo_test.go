package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDWSingleStationSanity(t *testing.T) {
	v := 12.5
	got, ok := IDW([]Weighted{{Value: &v, DistanceM: 3000}})
	require.True(t, ok)
	assert.InDelta(t, v, got, 1e-9)
}

func TestIDWPointSummaryLaw(t *testing.T) {
	v1, v2, v3 := 10.0, 20.0, 40.0
	got, ok := IDW([]Weighted{
		{Value: &v1, DistanceM: 1000},
		{Value: &v2, DistanceM: 2000},
		{Value: &v3, DistanceM: 4000},
	})
	require.True(t, ok)
	assert.InDelta(t, 17.1429, got, 1e-3)
}

func TestIDWSkipsNil(t *testing.T) {
	v := 5.0
	got, ok := IDW([]Weighted{
		{Value: nil, DistanceM: 10},
		{Value: &v, DistanceM: 100},
	})
	require.True(t, ok)
	assert.InDelta(t, 5.0, got, 1e-9)
}

func TestIDWNoValuesNotOK(t *testing.T) {
	_, ok := IDW([]Weighted{{Value: nil, DistanceM: 10}})
	assert.False(t, ok)
}

func TestBBoxMonotonicity(t *testing.T) {
	a := BBox{MinLat: 10, MinLon: 10, MaxLat: 11, MaxLon: 11}
	b := BBox{MinLat: 9, MinLon: 9, MaxLat: 12, MaxLon: 12}
	assert.True(t, b.Contains(a))
	assert.False(t, a.Contains(b))
}

func TestParseBBoxRoundTrip(t *testing.T) {
	bb, err := ParseBBox("-118.5,34.0,-118.2,34.3")
	require.NoError(t, err)
	assert.Equal(t, -118.5, bb.MinLon)
	assert.Equal(t, 34.0, bb.MinLat)
	assert.Equal(t, -118.2, bb.MaxLon)
	assert.Equal(t, 34.3, bb.MaxLat)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 34.0521, Round(34.05214999, 4))
	assert.Equal(t, -118.4, Round(-118.40001, 3))
}

func TestBoundingExtentAndHaversine(t *testing.T) {
	minLat, minLon, maxLat, maxLon := BoundingExtent(34.0, -118.0, 111.0)
	assert.InDelta(t, 33.0, minLat, 0.01)
	assert.InDelta(t, 35.0, maxLat, 0.01)
	assert.Less(t, minLon, -118.0)
	assert.Greater(t, maxLon, -118.0)

	d := HaversineKm(34.0, -118.0, 34.0, -118.0)
	assert.InDelta(t, 0, d, 1e-9)
}
