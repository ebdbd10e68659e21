// Package ratelimit provides the randomized delay policy applied between
// network operations. Delays are the only defence the pipeline has against
// tripping the remote site's anti-automation heuristics, so every navigation
// goes through here.
package ratelimit

import (
	"context"
	"log"
	"math/rand"
	"time"
)

const (
	backoffBase = time.Minute
	backoffCap  = 30 * time.Minute
)

// Limiter injects randomized delays between operations. It holds no state
// beyond the batch counter; callers may reset that between logical runs.
type Limiter struct {
	minDelay        time.Duration
	maxDelay        time.Duration
	storefrontDelay time.Duration
	batchDelay      time.Duration
	batchSize       int
	requestCount    int
	logger          *log.Logger
}

// Options tune the delay bands. Zero values fall back to the defaults used
// across the project (3-8s between pages, 5-10s between storefronts, a 30s
// pause every 50 requests).
type Options struct {
	MinDelay        time.Duration
	MaxDelay        time.Duration
	StorefrontDelay time.Duration
	BatchDelay      time.Duration
	BatchSize       int
	Logger          *log.Logger
}

func New(opts Options) *Limiter {
	l := &Limiter{
		minDelay:        opts.MinDelay,
		maxDelay:        opts.MaxDelay,
		storefrontDelay: opts.StorefrontDelay,
		batchDelay:      opts.BatchDelay,
		batchSize:       opts.BatchSize,
		logger:          opts.Logger,
	}
	if l.minDelay <= 0 {
		l.minDelay = 3 * time.Second
	}
	if l.maxDelay <= 0 {
		l.maxDelay = 8 * time.Second
	}
	if l.storefrontDelay <= 0 {
		l.storefrontDelay = 5 * time.Second
	}
	if l.batchDelay <= 0 {
		l.batchDelay = 30 * time.Second
	}
	if l.batchSize <= 0 {
		l.batchSize = 50
	}
	if l.logger == nil {
		l.logger = log.Default()
	}
	return l
}

// Wait sleeps for d, or for a random duration in [minDelay, maxDelay] when d
// is zero. Returns early with ctx.Err() on cancellation.
func (l *Limiter) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = l.randomDelay(l.minDelay, l.maxDelay)
	}
	return sleep(ctx, d)
}

// WaitBetweenPages applies the page-transition delay band.
func (l *Limiter) WaitBetweenPages(ctx context.Context) error {
	d := l.randomDelay(l.minDelay, l.maxDelay)
	l.logger.Printf("  waiting %.1fs...", d.Seconds())
	return sleep(ctx, d)
}

// WaitBetweenStorefronts applies the larger identity-transition delay band,
// [storefrontDelay, 2*storefrontDelay].
func (l *Limiter) WaitBetweenStorefronts(ctx context.Context) error {
	d := l.randomDelay(l.storefrontDelay, 2*l.storefrontDelay)
	l.logger.Printf("  waiting %.1fs before next storefront...", d.Seconds())
	return sleep(ctx, d)
}

// WaitForBatch counts one request and injects the long batch pause every
// batchSize requests.
func (l *Limiter) WaitForBatch(ctx context.Context) error {
	l.requestCount++
	if l.requestCount%l.batchSize != 0 {
		return nil
	}
	l.logger.Printf("  batch pause: waiting %.0fs after %d requests", l.batchDelay.Seconds(), l.requestCount)
	return sleep(ctx, l.batchDelay)
}

// ExponentialBackoff sleeps min(base * 2^attempt, 30m). Used after a
// rate-limit signal from the remote side.
func (l *Limiter) ExponentialBackoff(ctx context.Context, attempt int) error {
	d := Backoff(attempt)
	l.logger.Printf("  rate limited, backing off %.1fm (attempt %d)", d.Minutes(), attempt+1)
	return sleep(ctx, d)
}

// Backoff computes the backoff duration for a given attempt without sleeping.
func Backoff(attempt int) time.Duration {
	d := backoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	if d > backoffCap {
		return backoffCap
	}
	return d
}

// ResetRequestCount clears the batch counter between logical runs.
func (l *Limiter) ResetRequestCount() {
	l.requestCount = 0
}

// RequestCount reports requests seen since the last reset.
func (l *Limiter) RequestCount() int {
	return l.requestCount
}

func (l *Limiter) randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min+1)))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
