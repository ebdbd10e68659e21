package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesUpToCap(t *testing.T) {
	assert.Equal(t, time.Minute, Backoff(0))
	assert.Equal(t, 2*time.Minute, Backoff(1))
	assert.Equal(t, 4*time.Minute, Backoff(2))
	assert.Equal(t, 16*time.Minute, Backoff(4))
	assert.Equal(t, 30*time.Minute, Backoff(5))
	assert.Equal(t, 30*time.Minute, Backoff(20))
}

func TestWaitForBatchCountsRequests(t *testing.T) {
	l := New(Options{
		BatchSize:  3,
		BatchDelay: time.Millisecond,
	})

	ctx := context.Background()
	require.NoError(t, l.WaitForBatch(ctx))
	require.NoError(t, l.WaitForBatch(ctx))
	assert.Equal(t, 2, l.RequestCount())

	// third request crosses the batch boundary and pauses
	start := time.Now()
	require.NoError(t, l.WaitForBatch(ctx))
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
	assert.Equal(t, 3, l.RequestCount())

	l.ResetRequestCount()
	assert.Equal(t, 0, l.RequestCount())
}

func TestWaitRandomStaysInBand(t *testing.T) {
	l := New(Options{
		MinDelay: time.Millisecond,
		MaxDelay: 5 * time.Millisecond,
	})
	for i := 0; i < 20; i++ {
		d := l.randomDelay(l.minDelay, l.maxDelay)
		assert.GreaterOrEqual(t, d, time.Millisecond)
		assert.LessOrEqual(t, d, 5*time.Millisecond)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	l := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
