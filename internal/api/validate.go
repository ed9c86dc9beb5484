package api

import (
	"net/http"
	"strconv"

	"github.com/ngmaloney/weatherd/internal/geo"
)

// parseLatLon reads and range-checks lat/lon query parameters per spec
// §4.8's "latitude ∈ [-90, 90], longitude ∈ [-180, 180]" validation rule.
func parseLatLon(r *http.Request) (lat, lon float64, ok bool) {
	latS := r.URL.Query().Get("lat")
	lonS := r.URL.Query().Get("lon")
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(lonS, 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// clampInt parses an integer query parameter, clamping to [min, max] and
// falling back to def on a blank or unparseable value, per spec §4.8.
func clampInt(r *http.Request, key string, def, min, max int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// parseBBox reads the bbox query parameter as "minLon,minLat,maxLon,maxLat".
func parseBBox(r *http.Request) (geo.BBox, bool) {
	s := r.URL.Query().Get("bbox")
	if s == "" {
		return geo.BBox{}, false
	}
	bb, err := geo.ParseBBox(s)
	if err != nil {
		return geo.BBox{}, false
	}
	return bb, true
}

func parseBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
