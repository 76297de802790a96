package edgar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

func TestHostLimiter_PerHost(t *testing.T) {
	l := NewHostLimiter(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "www.sec.gov"))
	require.NoError(t, l.Wait(ctx, "data.sec.gov"), "hosts are throttled independently")

	err := l.Wait(ctx, "www.sec.gov")
	assert.Error(t, err, "second request within the interval must wait")
}

func TestHostLimiter_RecordRateLimit(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	l := NewHostLimiter(time.Millisecond)
	l.now = func() time.Time { return now }

	l.RecordRateLimit("www.sec.gov", 0)
	assert.Equal(t, now.Add(DefaultRetryAfter), l.BlockedUntil("www.sec.gov"))

	l.RecordRateLimit("www.sec.gov", time.Second)
	assert.Equal(t, now.Add(DefaultRetryAfter), l.BlockedUntil("www.sec.gov"), "shorter delays never shrink the block")

	l.RecordRateLimit("www.sec.gov", time.Minute)
	assert.Equal(t, now.Add(time.Minute), l.BlockedUntil("www.sec.gov"))
	assert.True(t, l.BlockedUntil("data.sec.gov").IsZero())
}

func TestHostLimiter_WaitHonoursBlock(t *testing.T) {
	l := NewHostLimiter(0)
	l.RecordRateLimit("www.sec.gov", 30*time.Millisecond)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "www.sec.gov"))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestHostLimiter_BlockPastDeadline(t *testing.T) {
	l := NewHostLimiter(0)
	l.RecordRateLimit("www.sec.gov", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	err := l.Wait(ctx, "www.sec.gov")
	assert.Less(t, time.Since(start), 500*time.Millisecond, "returns without waiting")
	require.ErrorIs(t, err, domain.ErrRateLimited)

	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "www.sec.gov", rle.Host)

	require.NoError(t, l.Wait(context.Background(), "data.sec.gov"))
}
