package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngmaloney/weatherd/internal/werrors"
)

func TestBreakerOpensAfterThresholdFailures(t *testing.T) {
	b := New(Config{
		Upstream:  "NOAA",
		Threshold: 5,
		Window:    60 * time.Second,
		CoolDown:  300 * time.Second,
	})

	boom := errors.New("500")
	for i := 0; i < 5; i++ {
		err := b.Do(context.Background(), func(ctx context.Context) error { return boom })
		require.Error(t, err)
	}

	err := b.Do(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn must not run while breaker is open")
		return nil
	})
	werr, ok := werrors.As(err)
	require.True(t, ok)
	assert.Equal(t, werrors.BreakerOpen, werr.Kind)
}

func TestBreakerClosesOnSuccessAfterCoolDown(t *testing.T) {
	b := New(Config{
		Upstream:  "NOAA",
		Threshold: 1,
		Window:    time.Minute,
		CoolDown:  10 * time.Millisecond,
	})

	boom := errors.New("500")
	_ = b.Do(context.Background(), func(ctx context.Context) error { return boom })
	assert.Equal(t, "open", b.State())

	time.Sleep(20 * time.Millisecond)

	err := b.Do(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "closed", b.State())
}
