package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngmaloney/weatherd/internal/respcache"
)

func TestServeCachedMissBuildsAndStores(t *testing.T) {
	cache := respcache.New()
	calls := 0
	build := func() (interface{}, error) {
		calls++
		return map[string]string{"hello": "world"}, nil
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	require.NoError(t, serveCached(w, r, cache, "key", defaultMaxAge, defaultStale, build))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("ETag"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "max-age=60")
	assert.Equal(t, 1, calls)
}

func TestServeCachedHitSkipsBuild(t *testing.T) {
	cache := respcache.New()
	calls := 0
	build := func() (interface{}, error) {
		calls++
		return map[string]string{"hello": "world"}, nil
	}

	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	require.NoError(t, serveCached(httptest.NewRecorder(), r, cache, "key", defaultMaxAge, defaultStale, build))
	require.NoError(t, serveCached(httptest.NewRecorder(), r, cache, "key", defaultMaxAge, defaultStale, build))

	assert.Equal(t, 1, calls)
}

func TestServeCachedIfNoneMatchReturns304(t *testing.T) {
	cache := respcache.New()
	build := func() (interface{}, error) { return map[string]string{"a": "b"}, nil }

	first := httptest.NewRecorder()
	require.NoError(t, serveCached(first, httptest.NewRequest(http.MethodGet, "/x", nil), cache, "key", defaultMaxAge, defaultStale, build))
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	require.NoError(t, serveCached(second, r, cache, "key", defaultMaxAge, defaultStale, build))

	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.Bytes())
}

func TestServeCachedPropagatesBuildError(t *testing.T) {
	cache := respcache.New()
	build := func() (interface{}, error) { return nil, assert.AnError }
	err := serveCached(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil), cache, "key", defaultMaxAge, defaultStale, build)
	assert.ErrorIs(t, err, assert.AnError)
}
