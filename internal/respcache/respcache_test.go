package respcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGetHit(t *testing.T) {
	c := New()
	e := c.Set("route|lat=1", []byte(`{"a":1}`), "application/json", 15*time.Second, 30*time.Second)
	require.NotEmpty(t, e.ETag)

	got, ok := c.Get("route|lat=1")
	require.True(t, ok)
	assert.Equal(t, e.ETag, got.ETag)
	assert.Equal(t, []byte(`{"a":1}`), got.Body)
}

func TestCacheMissUnknownKey(t *testing.T) {
	c := New()
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New()
	fixed := time.Now()
	c.now = func() time.Time { return fixed }
	c.Set("k", []byte("body"), "text/plain", 15*time.Second, 30*time.Second)

	c.now = func() time.Time { return fixed.Add(16 * time.Second) }
	_, ok := c.Get("k")
	assert.False(t, ok, "entry should be expired past max-age")
}

func TestEntrySameBodySameETag(t *testing.T) {
	c := New()
	e1 := c.Set("k1", []byte("same"), "text/plain", time.Second, time.Second)
	e2 := c.Set("k2", []byte("same"), "text/plain", time.Second, time.Second)
	assert.Equal(t, e1.ETag, e2.ETag)
}

func TestCacheControlHeader(t *testing.T) {
	c := New()
	e := c.Set("k", []byte("x"), "application/json", 15*time.Second, 30*time.Second)
	assert.Equal(t, "public, max-age=15, stale-while-revalidate=30", e.CacheControl())
}

func TestKeyCanonicalisation(t *testing.T) {
	params := map[string]string{
		"lat": FormatCoord(40.71280001),
		"lon": FormatCoord(-74.00600009),
	}
	k1 := Key("/api/forecast/hourly/point", params)

	params2 := map[string]string{
		"lon": FormatCoord(-74.00600009),
		"lat": FormatCoord(40.71280001),
	}
	k2 := Key("/api/forecast/hourly/point", params2)

	assert.Equal(t, k1, k2, "parameter order must not affect the canonical key")
}

func TestFormatBBoxValRounding(t *testing.T) {
	assert.Equal(t, "-74.006", FormatBBoxVal(-74.0060009))
}

func TestFormatBool(t *testing.T) {
	assert.Equal(t, "true", FormatBool(true))
	assert.Equal(t, "false", FormatBool(false))
}
