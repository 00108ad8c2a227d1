package lockd

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/mgdigital/resolvelock/logger"
)

// RateLimiter bounds how fast a Server accepts requests, independent of
// how many connections or contexts are open.
type RateLimiter interface {
	Allow() bool
	Wait(ctx context.Context) error
}

// tokenBucketRateLimiter implements RateLimiter with a token bucket.
type tokenBucketRateLimiter struct {
	limiter *rate.Limiter
	log     logger.Logger
}

// NewTokenBucketRateLimiter builds a RateLimiter allowing maxRequests per
// window, with burst capacity burst. A non-positive window disables
// limiting entirely.
func NewTokenBucketRateLimiter(maxRequests, burst int, window time.Duration, log logger.Logger) RateLimiter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithComponent("lockd.ratelimit")

	var rps rate.Limit
	if window.Seconds() > 0 {
		rps = rate.Limit(float64(maxRequests) / window.Seconds())
	} else {
		rps = rate.Inf
		log.Warnw("rate limit window is zero or negative, disabling rate limiter", "window", window)
	}
	if burst <= 0 {
		burst = 1
		if rps != rate.Inf {
			log.Warnw("rate limit burst is zero or negative, setting to 1", "burst", burst)
		}
	}

	return &tokenBucketRateLimiter{
		limiter: rate.NewLimiter(rps, burst),
		log:     log,
	}
}

func (rl *tokenBucketRateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

func (rl *tokenBucketRateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}
