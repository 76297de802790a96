package edgar

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// ErrBodyTooLarge reports a response larger than the client accepts.
// It is never retried.
var ErrBodyTooLarge = fmt.Errorf("%w: response body exceeds size limit", domain.ErrInvalidInput)

// RateLimitError reports that a host asked us to back off. StatusCode is
// zero when an earlier back-off outlasts the caller's deadline.
type RateLimitError struct {
	Host       string
	StatusCode int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("edgar: %s is rate limited, retry after %s", e.Host, e.RetryAfter)
	}
	return fmt.Sprintf("edgar: rate limited by %s (status %d), retry after %s", e.Host, e.StatusCode, e.RetryAfter)
}

// Unwrap lets callers match domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError represents a failed EDGAR request. StatusCode is zero for
// network failures.
type APIError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("edgar: request %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("edgar: API error %d (URL: %s)", e.StatusCode, e.URL)
}

// Unwrap maps the failure onto the domain taxonomy.
func (e *APIError) Unwrap() []error {
	var sentinel error
	switch {
	case e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone:
		sentinel = domain.ErrNotFound
	case e.StatusCode == 0 || e.StatusCode >= 500:
		sentinel = domain.ErrUnavailable
	}

	errs := make([]error, 0, 2)
	if sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
