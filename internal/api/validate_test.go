package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func reqWithQuery(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/?"+query, nil)
}

func TestParseLatLonValid(t *testing.T) {
	lat, lon, ok := parseLatLon(reqWithQuery("lat=34.05&lon=-118.4"))
	assert.True(t, ok)
	assert.Equal(t, 34.05, lat)
	assert.Equal(t, -118.4, lon)
}

func TestParseLatLonOutOfRange(t *testing.T) {
	_, _, ok := parseLatLon(reqWithQuery("lat=91&lon=0"))
	assert.False(t, ok)

	_, _, ok = parseLatLon(reqWithQuery("lat=0&lon=181"))
	assert.False(t, ok)
}

func TestParseLatLonMissing(t *testing.T) {
	_, _, ok := parseLatLon(reqWithQuery(""))
	assert.False(t, ok)
}

func TestClampIntDefaultsOnBlank(t *testing.T) {
	assert.Equal(t, 5, clampInt(reqWithQuery(""), "limit", 5, 1, 10))
}

func TestClampIntClampsToRange(t *testing.T) {
	assert.Equal(t, 10, clampInt(reqWithQuery("limit=999"), "limit", 5, 1, 10))
	assert.Equal(t, 1, clampInt(reqWithQuery("limit=-5"), "limit", 5, 1, 10))
}

func TestClampIntDefaultsOnUnparseable(t *testing.T) {
	assert.Equal(t, 5, clampInt(reqWithQuery("limit=abc"), "limit", 5, 1, 10))
}

func TestParseBBoxRequiresParam(t *testing.T) {
	_, ok := parseBBox(reqWithQuery(""))
	assert.False(t, ok)
}

func TestParseBBoxValid(t *testing.T) {
	bb, ok := parseBBox(reqWithQuery("bbox=-119,33,-118,34"))
	assert.True(t, ok)
	assert.Equal(t, -119.0, bb.MinLon)
	assert.Equal(t, 33.0, bb.MinLat)
	assert.Equal(t, -118.0, bb.MaxLon)
	assert.Equal(t, 34.0, bb.MaxLat)
}

func TestParseBoolDefaultsAndParses(t *testing.T) {
	assert.False(t, parseBool(reqWithQuery(""), "withData", false))
	assert.True(t, parseBool(reqWithQuery("withData=true"), "withData", false))
	assert.False(t, parseBool(reqWithQuery("withData=bogus"), "withData", false))
}
