// Package vector provides vector store backends: chromem (embedded,
// persistent) and Qdrant (gRPC).
package vector

import (
	"context"
	"fmt"

	"github.com/atelier-ai/atelier/pkg/config"
)

// Document is one embedded chunk to store.
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is one semantic search hit. Score is cosine similarity in
// [0, 1], higher is closer.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// Provider is a vector database holding named collections.
type Provider interface {
	Upsert(ctx context.Context, collection string, docs []Document) error
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error)
	Delete(ctx context.Context, collection string, ids []string) error
	DeleteCollection(ctx context.Context, collection string) error
	Close() error
}

// New builds a provider from its config.
func New(cfg config.VectorStoreConfig) (Provider, error) {
	switch cfg.Type {
	case config.VectorStoreChromem:
		return NewChromem(cfg)
	case config.VectorStoreQdrant:
		return NewQdrant(cfg)
	default:
		return nil, fmt.Errorf("unknown vector store type: %s", cfg.Type)
	}
}
