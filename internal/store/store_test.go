package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStationIDAddsMissingPrefix(t *testing.T) {
	assert.Equal(t, "GHCND:USW00023174", normalizeStationID("USW00023174"))
	assert.Equal(t, "GHCND:USW00023174", normalizeStationID("GHCND:USW00023174"))
}

func TestGridIDComposesCanonicalString(t *testing.T) {
	assert.Equal(t, "LOX:154,45", gridID("LOX", 154, 45))
}

func TestJoinPlaceholdersJoinsWithCommas(t *testing.T) {
	assert.Equal(t, "$2", joinPlaceholders([]string{"$2"}))
	assert.Equal(t, "$2,$3,$4", joinPlaceholders([]string{"$2", "$3", "$4"}))
}
