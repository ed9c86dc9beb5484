package httpfabric

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/breaker"
	"github.com/ngmaloney/weatherd/internal/metrics"
	"github.com/ngmaloney/weatherd/internal/ratelimit"
	"github.com/ngmaloney/weatherd/internal/werrors"
)

func newTestClient(t *testing.T) (*Client, *metrics.Registry) {
	t.Helper()
	registry := metrics.NewRegistry(time.Hour)
	b := breaker.New(breaker.Config{Upstream: "TEST", Threshold: 100, Window: time.Minute, CoolDown: time.Minute})
	bucket := ratelimit.NewBucket(1000)
	return New("TEST", bucket, b, registry, zap.NewNop(), time.Second), registry
}

func TestSuccessRecordsOneMetric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, registry := newTestClient(t)
	result, err := c.Do(context.Background(), "GET", srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)

	snaps := registry.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, 1, snaps[0].CallsLastHour)
	assert.Equal(t, 0, snaps[0].FailuresLastHour)
}

func TestRetryAfterHonoured(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := newTestClient(t)
	start := time.Now()
	result, err := c.Do(context.Background(), "GET", srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 2, calls)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPermanentFailureNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, registry := newTestClient(t)
	_, err := c.Do(context.Background(), "GET", srv.URL, nil, nil)
	require.Error(t, err)
	werr, ok := werrors.As(err)
	require.True(t, ok)
	assert.Equal(t, werrors.UpstreamPermanent, werr.Kind)
	assert.Equal(t, 1, calls)

	snaps := registry.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, 1, snaps[0].FailuresLastHour)
}

func TestEmptyURLIsValidationError(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Do(context.Background(), "GET", "", nil, nil)
	require.Error(t, err)
	werr, ok := werrors.As(err)
	require.True(t, ok)
	assert.Equal(t, werrors.Validation, werr.Kind)
}
