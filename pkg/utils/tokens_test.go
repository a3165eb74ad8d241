package utils

import "testing"

func TestTokenCounterCount(t *testing.T) {
	counter := NewTokenCounter()

	short := counter.Count("gpt-4o", "hello world")
	if short < 1 || short > 5 {
		t.Errorf("unexpected token count for short text: %d", short)
	}

	long := counter.Count("gpt-4o", "The quick brown fox jumps over the lazy dog, again and again.")
	if long <= short {
		t.Errorf("longer text should count more tokens: %d <= %d", long, short)
	}

	// Unknown model must not panic and must still count something.
	if n := counter.Count("some-future-model", "hello world"); n < 1 {
		t.Errorf("fallback count should be positive, got %d", n)
	}
}
