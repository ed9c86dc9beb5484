package nws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitNormalisationScenario(t *testing.T) {
	// Scenario 2 of spec §8: 72F, "10 mph", NE, precip 30 -> C/mps/deg/frac.
	tempC := TemperatureC(72, "F")
	assert.InDelta(t, 22.22, tempC, 0.01)

	wind := WindSpeedMPS("10 mph")
	require.NotNil(t, wind)
	assert.InDelta(t, 4.4704, *wind, 0.0001)

	dir := WindDirDeg("NE")
	require.NotNil(t, dir)
	assert.Equal(t, 45.0, *dir)

	value := 30.0
	p := PrecipProb(&value)
	require.NotNil(t, p)
	assert.InDelta(t, 0.30, *p, 1e-9)
}

func TestWindSpeedKnots(t *testing.T) {
	wind := WindSpeedMPS("5 kt")
	require.NotNil(t, wind)
	assert.InDelta(t, 2.57222, *wind, 0.0001)
}

func TestWindSpeedEmptyIsNil(t *testing.T) {
	assert.Nil(t, WindSpeedMPS(""))
}

func TestWindDirUnknownIsNil(t *testing.T) {
	assert.Nil(t, WindDirDeg("Variable"))
}
