package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketAllowsBurstUpToCapacity(t *testing.T) {
	b := NewBucket(1) // capacity 10
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	for i := 0; i < 10; i++ {
		assert.NoError(t, b.Acquire(ctx))
	}
}

func TestBucketMinimumCapacityOne(t *testing.T) {
	b := NewBucket(0.01)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, b.Acquire(ctx))
}
