// Package ratelimit implements the per-upstream token bucket of spec §4.1:
// continuous refill at qps, capacity max(1, qps*10), FIFO-fair blocking
// acquisition.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Bucket wraps golang.org/x/time/rate.Limiter, the token-bucket
// implementation pulled from the KJStillabower-weather-alert-service
// dependency set, configured to the capacity/refill rule spec §4.1 names.
type Bucket struct {
	limiter *rate.Limiter
}

// NewBucket builds a bucket refilling at qps tokens/second with capacity
// max(1, qps*10), per spec §4.1.
func NewBucket(qps float64) *Bucket {
	capacity := int(qps * 10)
	if capacity < 1 {
		capacity = 1
	}
	return &Bucket{limiter: rate.NewLimiter(rate.Limit(qps), capacity)}
}

// Acquire blocks, cooperatively and FIFO-fair, until at least one token is
// available, then consumes it.
func (b *Bucket) Acquire(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}
