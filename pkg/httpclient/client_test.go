package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func TestHeaderRoundTripper(t *testing.T) {
	var seen http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: &HeaderRoundTripper{
		Headers: map[string]string{"User-Agent": "codeleak"},
		Next:    http.DefaultTransport,
	}}

	t.Run("adds missing headers", func(t *testing.T) {
		req, _ := http.NewRequest("GET", server.URL, nil)
		resp, err := client.Do(req)
		assert.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, "codeleak", seen.Get("User-Agent"))
	})

	t.Run("keeps explicitly set headers", func(t *testing.T) {
		req, _ := http.NewRequest("GET", server.URL, nil)
		req.Header.Set("User-Agent", "custom")
		resp, err := client.Do(req)
		assert.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, "custom", seen.Get("User-Agent"))
	})
}

func TestVerificationClientCheckRetry(t *testing.T) {
	client := NewVerificationClient(5 * time.Second)
	ctx := context.Background()

	tests := []struct {
		name       string
		statusCode int
		want       bool
	}{
		{name: "success", statusCode: 200, want: false},
		{name: "unauthorized is a result, not a failure", statusCode: 401, want: false},
		{name: "not found", statusCode: 404, want: false},
		{name: "rate limited", statusCode: 429, want: true},
		{name: "server error", statusCode: 500, want: true},
		{name: "not implemented", statusCode: 501, want: false},
		{name: "bad gateway", statusCode: 502, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retry, err := client.CheckRetry(ctx, &http.Response{StatusCode: tt.statusCode}, nil)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, retry)
		})
	}

	t.Run("transport errors retry", func(t *testing.T) {
		retry, err := client.CheckRetry(ctx, nil, assert.AnError)
		assert.NoError(t, err)
		assert.True(t, retry)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		retry, err := client.CheckRetry(cancelled, nil, assert.AnError)
		assert.Error(t, err)
		assert.False(t, retry)
	})
}

func TestVerificationClientConfiguration(t *testing.T) {
	client := NewVerificationClient(3 * time.Second)
	assert.Equal(t, 2, client.RetryMax)
	assert.Equal(t, 3*time.Second, client.HTTPClient.Timeout)
	assert.Nil(t, client.Logger)
}
