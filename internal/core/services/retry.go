package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// Backoff bounds shared by every external call.
const (
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 30 * time.Second
)

// retryPolicy bounds retries of one kind of external call.
type retryPolicy struct {
	// maxAttempts is the total number of attempts, including the first.
	maxAttempts int

	// timeout bounds each attempt; zero means no per-attempt timeout.
	// An attempt that times out fails with domain.ErrUnavailable.
	timeout time.Duration

	initial time.Duration
	max     time.Duration
	jitter  float64
}

func newRetryPolicy(maxAttempts int, timeout time.Duration) retryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return retryPolicy{
		maxAttempts: maxAttempts,
		timeout:     timeout,
		initial:     DefaultInitialInterval,
		max:         DefaultMaxInterval,
		jitter:      backoff.DefaultRandomizationFactor,
	}
}

// withIntervals returns a copy of p with different backoff intervals.
func (p retryPolicy) withIntervals(initial, max time.Duration) retryPolicy {
	p.initial = initial
	p.max = max
	p.jitter = 0
	return p
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrUnavailable) || errors.Is(err, domain.ErrRateLimited)
}

// withRetry runs fn until it succeeds, fails permanently or attempts run out.
// Each attempt gets its own timeout. The last error is returned unchanged
// so callers can match the taxonomy with errors.Is.
func withRetry(ctx context.Context, p retryPolicy, op string, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initial
	b.MaxInterval = p.max
	b.RandomizationFactor = p.jitter
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.maxAttempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := p.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("%s: attempt %d/%d failed: %v (retrying in %s)", op, attempt, p.maxAttempts, err, wait)
	}

	return backoff.RetryNotify(operation, policy, notify)
}

func (p retryPolicy) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.timeout <= 0 {
		return fn(ctx)
	}

	actx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := fn(actx)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out after %s: %w", domain.ErrUnavailable, p.timeout, err)
	}
	return err
}
