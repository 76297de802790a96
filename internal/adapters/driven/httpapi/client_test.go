package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgeintel/filingqa/internal/core/domain"
)

func TestStatusError_Classification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusInternalServerError, domain.ErrUnavailable},
		{http.StatusBadGateway, domain.ErrUnavailable},
		{http.StatusUnauthorized, domain.ErrConfig},
		{http.StatusForbidden, domain.ErrConfig},
	}
	for _, tt := range tests {
		err := &StatusError{Provider: "p", StatusCode: tt.status}
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}

	bad := &StatusError{Provider: "p", StatusCode: http.StatusBadRequest}
	assert.NotErrorIs(t, bad, domain.ErrUnavailable)
	assert.NotErrorIs(t, bad, domain.ErrRateLimited)
}

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Write([]byte(`{"value": 42}`))
	}))
	defer server.Close()

	c := New("test", server.Client(), http.Header{"Authorization": {"Bearer k"}})
	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, c.PostJSON(context.Background(), server.URL, map[string]string{"a": "b"}, &out))
	assert.Equal(t, 42, out.Value)
}

func TestClient_ErrorBodies(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		kind    error
	}{
		{"nested message", 429, `{"error":{"message":"slow down"}}`, "slow down", domain.ErrRateLimited},
		{"flat message", 503, `{"error":"model loading"}`, "model loading", domain.ErrUnavailable},
		{"plain text", 500, "boom\n", "boom", domain.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := New("test", server.Client(), nil).Get(context.Background(), server.URL, nil)
			require.Error(t, err)
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.message, se.Message)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestClient_NetworkErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	err := New("test", nil, nil).Get(context.Background(), url, nil)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New("test", server.Client(), nil).Get(ctx, server.URL, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrUnavailable)
}

func TestClient_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	var out map[string]any
	err := New("test", server.Client(), nil).Get(context.Background(), server.URL, &out)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
