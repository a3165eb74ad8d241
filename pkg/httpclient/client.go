// Package httpclient provides the shared retrying HTTP client used by all
// outbound API integrations (LLM providers, embedders, tools).
package httpclient

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// RetryStrategy classifies how a failed request should be retried.
type RetryStrategy int

const (
	// NoRetry fails immediately.
	NoRetry RetryStrategy = iota

	// ConservativeRetry allows a couple of quick retries for transient
	// server errors.
	ConservativeRetry

	// SmartRetry honors rate-limit headers, falling back to exponential
	// backoff when the server gives no hint.
	SmartRetry
)

// RateLimitInfo carries whatever rate-limit hints a provider exposes.
type RateLimitInfo struct {
	RetryAfter        time.Duration
	ResetTime         int64
	RequestsRemaining int
	TokensRemaining   int
}

// HeaderParser extracts rate-limit info from provider response headers.
type HeaderParser func(http.Header) RateLimitInfo

// StrategyFunc maps an HTTP status code to a retry strategy.
type StrategyFunc func(statusCode int) RetryStrategy

type Client struct {
	client       *http.Client
	maxRetries   int
	baseDelay    time.Duration
	headerParser HeaderParser
	strategyFunc StrategyFunc
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func WithMaxRetries(max int) Option {
	return func(c *Client) {
		c.maxRetries = max
	}
}

func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = delay
	}
}

func WithHeaderParser(parser HeaderParser) Option {
	return func(c *Client) {
		c.headerParser = parser
	}
}

func WithStrategy(strategyFunc StrategyFunc) Option {
	return func(c *Client) {
		c.strategyFunc = strategyFunc
	}
}

func New(opts ...Option) *Client {
	client := &Client{
		client:       &http.Client{Timeout: 60 * time.Second},
		maxRetries:   3,
		baseDelay:    2 * time.Second,
		strategyFunc: DefaultStrategy,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// DefaultStrategy retries rate limits and outages smartly and transient
// server errors conservatively.
func DefaultStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// Do executes the request, retrying according to the configured strategy.
// Requests that may be retried must set req.GetBody so the body can be
// replayed; http.NewRequest does this automatically for common body types.
//
// Do may return both a response and an error: any non-2xx status yields
// the last response with its body open alongside an "HTTP <status>" error,
// so callers must check resp != nil before err and own parsing (and
// closing) the error body. A nil response means the request never
// completed (transport failure or cancelled context).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		var limits RateLimitInfo
		if c.headerParser != nil {
			limits = c.headerParser(resp.Header)
		}

		statusErr := fmt.Errorf("HTTP %d", resp.StatusCode)
		strategy := c.strategyFunc(resp.StatusCode)
		if strategy == NoRetry {
			return resp, statusErr
		}

		delay := c.delayFor(strategy, attempt, limits)
		if attempt >= c.maxRetries || delay <= 0 {
			return resp, &RetryableError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("giving up after %d attempts", attempt+1),
				RetryAfter: delay,
				Err:        statusErr,
			}
		}

		// The body will not be read; drop it so the connection is reused.
		resp.Body.Close()

		slog.Debug("Retrying HTTP request",
			"url", req.URL.String(),
			"attempt", attempt+1,
			"max", c.maxRetries,
			"delay", delay)

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) delayFor(strategy RetryStrategy, attempt int, limits RateLimitInfo) time.Duration {
	switch strategy {
	case SmartRetry:
		if limits.RetryAfter > 0 {
			return limits.RetryAfter
		}
		if limits.ResetTime > 0 {
			if delay := time.Until(time.Unix(limits.ResetTime, 0)); delay > 0 {
				return delay
			}
		}
		exponential := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		jitter := time.Duration(float64(exponential) * 0.1)
		return exponential + jitter

	case ConservativeRetry:
		if attempt >= 2 {
			return 0
		}
		return time.Duration(2+attempt) * time.Second

	default:
		return 0
	}
}
