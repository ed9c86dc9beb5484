package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSchedulerRunsJobImmediatelyThenOnDelay(t *testing.T) {
	s := New(zap.NewNop())
	var calls int32
	s.Register("test-family", 20*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop(time.Second)
}

func TestSchedulerFailureDoesNotStopFamily(t *testing.T) {
	s := New(zap.NewNop())
	var calls int32
	s.Register("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return assertErr
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop(time.Second)
}

func TestApproximateCronBuckets(t *testing.T) {
	assert.Equal(t, "*/5 * * * *", approximateCron(5*time.Minute))
	assert.Equal(t, "0 */2 * * *", approximateCron(2*time.Hour))
	assert.Equal(t, "0 0 */7 * *", approximateCron(7*24*time.Hour))
}

var assertErr = &testErr{"boom"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
