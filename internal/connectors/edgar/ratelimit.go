package edgar

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRetryAfter is the back-off used when a rate-limit response
// carries no Retry-After header.
const DefaultRetryAfter = 10 * time.Second

// HostLimiter throttles requests per host.
type HostLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	hosts    map[string]*hostState
	now      func() time.Time
}

type hostState struct {
	bucket       *rate.Limiter
	blockedUntil time.Time
}

// NewHostLimiter releases at most one request per interval to each host.
func NewHostLimiter(interval time.Duration) *HostLimiter {
	return &HostLimiter{
		interval: interval,
		hosts:    make(map[string]*hostState),
		now:      time.Now,
	}
}

func (l *HostLimiter) state(host string) *hostState {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.hosts[host]
	if !ok {
		limit := rate.Inf
		if l.interval > 0 {
			limit = rate.Every(l.interval)
		}
		s = &hostState{bucket: rate.NewLimiter(limit, 1)}
		l.hosts[host] = s
	}
	return s
}

// Wait blocks until a request to host is allowed.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	s := l.state(host)

	// 1. Honour a recorded Retry-After
	l.mu.Lock()
	wait := s.blockedUntil.Sub(l.now())
	l.mu.Unlock()

	if wait > 0 {
		if deadline, ok := ctx.Deadline(); ok && l.now().Add(wait).After(deadline) {
			return &RateLimitError{Host: host, RetryAfter: wait}
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	// 2. Proactive throttling
	return s.bucket.Wait(ctx)
}

// RecordRateLimit blocks host for retryAfter, or DefaultRetryAfter when
// retryAfter is not positive.
func (l *HostLimiter) RecordRateLimit(host string, retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	s := l.state(host)

	l.mu.Lock()
	defer l.mu.Unlock()
	until := l.now().Add(retryAfter)
	if until.After(s.blockedUntil) {
		s.blockedUntil = until
	}
}

// BlockedUntil returns when host may next be contacted after a rate limit.
func (l *HostLimiter) BlockedUntil(host string) time.Time {
	s := l.state(host)
	l.mu.Lock()
	defer l.mu.Unlock()
	return s.blockedUntil
}
