package importer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	s, err := LoadState(path)
	require.NoError(t, err)
	assert.EqualValues(t, 0, s.LastSeen("GHCND:USW00023174"))

	require.NoError(t, s.Record("GHCND:USW00023174", 1700000000000))

	reloaded, err := LoadState(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1700000000000, reloaded.LastSeen("GHCND:USW00023174"))
}

func TestStateMissingFileIsEmpty(t *testing.T) {
	s, err := LoadState(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, s.LastSeen("anything"))
}
