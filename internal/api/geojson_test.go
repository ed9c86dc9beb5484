package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointFeatureShape(t *testing.T) {
	f := pointFeature(-118.4, 34.05, map[string]interface{}{"grid_id": "LOX:154,45"})
	assert.Equal(t, "Feature", f.Type)

	body, err := json.Marshal(f)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))

	geom := decoded["geometry"].(map[string]interface{})
	assert.Equal(t, "Point", geom["type"])
	coords := geom["coordinates"].([]interface{})
	assert.Equal(t, -118.4, coords[0])
	assert.Equal(t, 34.05, coords[1])
}

func TestNewFeatureCollectionWrapsFeatures(t *testing.T) {
	fc := newFeatureCollection([]feature{pointFeature(0, 0, nil)})
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 1)
}

func TestFeatureGeometryCanBeNil(t *testing.T) {
	f := feature{Type: "Feature", Geometry: nil, Properties: map[string]interface{}{"alert_id": "x"}}
	body, err := json.Marshal(f)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Nil(t, decoded["geometry"])
}
