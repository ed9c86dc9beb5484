package api

// featureCollection is the minimal GeoJSON envelope spec §6 requires for
// the gridpoints/alerts/stations/layers routes. No third-party GeoJSON
// library appears anywhere in the pack for a weather-serving component, so
// this is a direct struct literal rather than an encoding library.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string                 `json:"type"`
	Geometry   interface{}            `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

func pointGeometry(lon, lat float64) geometry {
	return geometry{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

func pointFeature(lon, lat float64, props map[string]interface{}) feature {
	return feature{Type: "Feature", Geometry: pointGeometry(lon, lat), Properties: props}
}

func newFeatureCollection(features []feature) featureCollection {
	if features == nil {
		features = []feature{}
	}
	return featureCollection{Type: "FeatureCollection", Features: features}
}
