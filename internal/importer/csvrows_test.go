package importer

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectWideSchemaAccepts(t *testing.T) {
	idx, ok := detectWideSchema([]string{"STATION", "DATE", "PRCP", "TMAX", "TMIN"})
	require.True(t, ok)
	assert.Equal(t, 0, idx["STATION"])
}

func TestDetectWideSchemaRejectsMissingMeasure(t *testing.T) {
	_, ok := detectWideSchema([]string{"STATION", "DATE", "NAME"})
	assert.False(t, ok)
}

func TestDetectWideSchemaRejectsMissingKeyColumn(t *testing.T) {
	_, ok := detectWideSchema([]string{"DATE", "PRCP"})
	assert.False(t, ok)
}

func TestReadWideRowsConvertsTenths(t *testing.T) {
	csvBody := "STATION,DATE,TMAX,TMIN,PRCP\nUSW00023174,2024-09-01,250,150,30\n"
	idx, ok := detectWideSchema(strings.Split(strings.SplitN(csvBody, "\n", 2)[0], ","))
	require.True(t, ok)

	r := csv.NewReader(strings.NewReader(strings.SplitN(csvBody, "\n", 2)[1]))
	rows, err := readWideRows(r, idx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "GHCND:USW00023174", rows[0].StationID)
	require.NotNil(t, rows[0].TMaxC)
	assert.InDelta(t, 25.0, *rows[0].TMaxC, 0.001)
	require.NotNil(t, rows[0].TMinC)
	assert.InDelta(t, 15.0, *rows[0].TMinC, 0.001)
	require.NotNil(t, rows[0].PrcpMM)
	assert.InDelta(t, 3.0, *rows[0].PrcpMM, 0.001)
}

func TestNormalizeStationIDIdempotent(t *testing.T) {
	assert.Equal(t, "GHCND:ABC123", normalizeStationID("ABC123"))
	assert.Equal(t, "GHCND:ABC123", normalizeStationID("GHCND:ABC123"))
}
