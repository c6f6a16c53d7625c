// Package ratelimit gates outbound requests with a per-source token bucket.
package ratelimit

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket with capacity and refill rate both equal to the
// configured requests-per-second, so a full burst is available after idle and
// the steady-state emission rate converges on the configured rate.
type Limiter struct {
	bucket *rate.Limiter
}

// New creates a limiter allowing rps requests per second. Rates below one
// request per second still allow a single immediate request after idle.
func New(rps float64) *Limiter {
	burst := int(math.Floor(rps))
	if burst < 1 {
		burst = 1
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Allow reports whether a request may proceed immediately, consuming a token
// when it may.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}
