package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndSnapshot(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Record("NWS", true)
	r.Record("NWS", false)
	r.Record("NWS", true)

	snaps := r.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, "NWS", snaps[0].Service)
	assert.Equal(t, 3, snaps[0].CallsLastHour)
	assert.Equal(t, 1, snaps[0].FailuresLastHour)
	assert.InDelta(t, 33.33, snaps[0].FailurePct, 0.01)
}

func TestSnapshotEvictsExpiredSamples(t *testing.T) {
	r := NewRegistry(time.Minute)
	base := time.Now()
	r.now = func() time.Time { return base }
	r.Record("NOAA", false)

	r.now = func() time.Time { return base.Add(2 * time.Minute) }
	snaps := r.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, 0, snaps[0].CallsLastHour)
}
