package stationsfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngmaloney/weatherd/internal/geo"
)

func TestLoadAndFilterByBBox(t *testing.T) {
	line := "USW00023174  34.0522 -118.2437  100.0 CA LOS ANGELES DOWNTOWN USC         "
	path := filepath.Join(t.TempDir(), "ghcnd-stations.txt")
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o644))

	src, err := Load(path)
	require.NoError(t, err)
	require.Len(t, src.All(), 1)
	assert.Equal(t, "GHCND:USW00023174", src.All()[0].StationID)

	inside := geo.BBox{MinLat: 33, MinLon: -119, MaxLat: 35, MaxLon: -117}
	matched, err := src.StationsInBBox(inside)
	require.NoError(t, err)
	assert.Len(t, matched, 1)

	outside := geo.BBox{MinLat: 40, MinLon: -90, MaxLat: 41, MaxLon: -89}
	matched, err = src.StationsInBBox(outside)
	require.NoError(t, err)
	assert.Empty(t, matched)
}
