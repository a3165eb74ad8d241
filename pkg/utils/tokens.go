// Package utils holds small shared helpers.
package utils

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens with the model's tokenizer, caching loaded
// encodings. Unknown models fall back to cl100k_base.
type TokenCounter struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken
}

func NewTokenCounter() *TokenCounter {
	return &TokenCounter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

func (c *TokenCounter) encoding(model string) *tiktoken.Tiktoken {
	c.mu.RLock()
	enc, ok := c.encodings[model]
	c.mu.RUnlock()
	if ok {
		return enc
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodings[model]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			c.encodings[model] = nil
			return nil
		}
	}
	c.encodings[model] = enc
	return enc
}

// Count returns the token count of text for the given model. If no
// tokenizer can be loaded it estimates at four characters per token.
func (c *TokenCounter) Count(model, text string) int {
	if enc := c.encoding(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(text)/4 + 1
}
