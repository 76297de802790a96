// Package httpapi holds the JSON-over-HTTP plumbing shared by the
// embedding and LLM provider adapters, including the mapping of
// provider failures onto the domain's retryable error kinds.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

// maxResponseSize bounds a provider response body.
const maxResponseSize = 64 << 20

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: API returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: API returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap classifies the status: 429 is ErrRateLimited, 5xx is
// ErrUnavailable and authentication failures are ErrConfig. Anything
// else is permanent and unwraps to nil.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case e.StatusCode >= 500:
		return domain.ErrUnavailable
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return domain.ErrConfig
	default:
		return nil
	}
}

// Client sends JSON requests to one provider.
type Client struct {
	HTTP     *http.Client
	Provider string

	// Header is applied to every request (auth, API version).
	Header http.Header
}

// New creates a client for provider.
func New(provider string, httpClient *http.Client, header http.Header) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if header == nil {
		header = http.Header{}
	}
	return &Client{HTTP: httpClient, Provider: provider, Header: header}
}

// PostJSON sends in as a JSON body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.Provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.Provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// Get issues a GET and decodes the response into out, which may be nil.
func (c *Client) Get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.Provider, err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	for key, values := range c.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrUnavailable, c.Provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %w", domain.ErrUnavailable, c.Provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Provider:   c.Provider,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", domain.ErrUnavailable, c.Provider, err)
	}
	return nil
}

// errorMessage extracts a provider error message from the common
// {"error": {"message": ...}} and {"error": "..."} shapes.
func errorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	const maxRaw = 200
	if len(body) > maxRaw {
		body = body[:maxRaw]
	}
	return string(bytes.TrimSpace(body))
}
