package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSuccessNoRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoRetriesServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// Non-2xx responses come back alongside the error with the body open, so
// callers can parse the provider's error payload.
func TestDoClientErrorReturnsResponse(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad input"}`))
	}))
	defer server.Close()

	client := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"error":"bad input"}`, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// A retryable status that exhausts its retries still hands back the last
// response, body open, wrapped in a RetryableError.
func TestDoExhaustedRetriesReturnsLastResponse(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := New(WithMaxRetries(1), WithBaseDelay(time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	assert.True(t, IsRetryable(err))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "upstream exploded", string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDoHonorsRetryAfter(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("retry-after", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithMaxRetries(2),
		WithBaseDelay(time.Millisecond),
		WithHeaderParser(ParseOpenAIHeaders),
	)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestParseOpenAIHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("retry-after", "7")
	headers.Set("x-ratelimit-remaining-requests", "12")
	headers.Set("x-ratelimit-remaining-tokens", "34000")

	info := ParseOpenAIHeaders(headers)
	assert.Equal(t, 7*time.Second, info.RetryAfter)
	assert.Equal(t, 12, info.RequestsRemaining)
	assert.Equal(t, 34000, info.TokensRemaining)
}

func TestIsRetryable(t *testing.T) {
	err := &RetryableError{StatusCode: 429, Message: "rate limited"}
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(assert.AnError))
}
