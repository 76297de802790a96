package edgar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.FilingRegistry = (*Client)(nil)

const (
	// DefaultBaseURL hosts the archives and the ticker map.
	DefaultBaseURL = "https://www.sec.gov"

	// DefaultDataURL hosts the submissions API.
	DefaultDataURL = "https://data.sec.gov"

	// DefaultMinInterval keeps us well under EDGAR's 10 requests per second.
	DefaultMinInterval = 200 * time.Millisecond

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxBodySize bounds a downloaded filing.
	maxBodySize = 128 << 20
)

var contactEmail = regexp.MustCompile(`[^@\s]+@[^@\s]+\.[^@\s]+`)

// Client talks to EDGAR.
type Client struct {
	http      *http.Client
	userAgent string
	baseURL   string
	dataURL   string
	limiter   *HostLimiter
	maxBody   int64

	overrides map[string]string

	tickersMu sync.Mutex
	tickers   map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates an EDGAR client from registry settings. The User-Agent
// must contain a contact email.
func New(cfg domain.RegistrySettings, opts ...Option) (*Client, error) {
	if !contactEmail.MatchString(cfg.UserAgent) {
		return nil, fmt.Errorf("%w: registry user_agent must contain a contact email, got %q", domain.ErrConfig, cfg.UserAgent)
	}

	interval := cfg.MinInterval.Std()
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		baseURL:   strings.TrimRight(orDefault(cfg.BaseURL, DefaultBaseURL), "/"),
		dataURL:   strings.TrimRight(orDefault(cfg.DataURL, DefaultDataURL), "/"),
		limiter:   NewHostLimiter(interval),
		maxBody:   maxBodySize,
		overrides: make(map[string]string, len(cfg.CIKs)),
	}
	for ticker, cik := range cfg.CIKs {
		c.overrides[strings.ToUpper(strings.TrimSpace(ticker))] = padCIK(cik)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Limiter returns the per-host limiter.
func (c *Client) Limiter() *HostLimiter {
	return c.limiter
}

// get performs a throttled GET and returns the body and its media type.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: bad url %q: %v", domain.ErrInvalidInput, rawURL, err)
	}

	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return nil, "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")

	logger.Debug("edgar: GET %s", rawURL)
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, "", err
		}
		return nil, "", &APIError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.limiter.RecordRateLimit(u.Host, retryAfter)
		if retryAfter <= 0 {
			retryAfter = DefaultRetryAfter
		}
		return nil, "", &RateLimitError{Host: u.Host, StatusCode: resp.StatusCode, RetryAfter: retryAfter}
	case resp.StatusCode >= 300:
		return nil, "", &APIError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, "", &APIError{URL: rawURL, Err: err}
	}
	if int64(len(body)) > c.maxBody {
		return nil, "", &APIError{StatusCode: resp.StatusCode, URL: rawURL, Err: ErrBodyTooLarge}
	}

	mediaType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}
	return body, mediaType, nil
}

// parseRetryAfter reads delay-seconds; HTTP dates are also accepted.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
