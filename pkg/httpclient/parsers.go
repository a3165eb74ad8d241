package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseOpenAIHeaders reads the x-ratelimit-* headers emitted by OpenAI and
// OpenAI-compatible gateways (Groq, OpenRouter).
func ParseOpenAIHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{RequestsRemaining: -1, TokensRemaining: -1}

	if v := headers.Get("retry-after"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	if v := headers.Get("x-ratelimit-reset-requests"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && info.RetryAfter == 0 {
			info.RetryAfter = d
		}
	}
	if v := headers.Get("x-ratelimit-remaining-requests"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			info.RequestsRemaining = n
		}
	}
	if v := headers.Get("x-ratelimit-remaining-tokens"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			info.TokensRemaining = n
		}
	}

	return info
}

// ParseGeminiHeaders reads the Retry-After header, which is all the Gemini
// REST API exposes.
func ParseGeminiHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{RequestsRemaining: -1, TokensRemaining: -1}

	if v := headers.Get("retry-after"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	return info
}
