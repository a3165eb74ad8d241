package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/vector"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, nil
}

func (fakeEmbedder) Dimension() int { return 2 }

// recordingProvider captures upserted documents per collection.
type recordingProvider struct {
	mu   sync.Mutex
	docs map[string][]vector.Document
}

func (p *recordingProvider) Upsert(_ context.Context, collection string, docs []vector.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.docs == nil {
		p.docs = make(map[string][]vector.Document)
	}
	p.docs[collection] = append(p.docs[collection], docs...)
	return nil
}

func (p *recordingProvider) Search(context.Context, string, []float32, int) ([]vector.SearchResult, error) {
	return nil, nil
}

func (p *recordingProvider) Delete(context.Context, string, []string) error { return nil }
func (p *recordingProvider) DeleteCollection(context.Context, string) error { return nil }
func (p *recordingProvider) Close() error                                   { return nil }

func TestStoreIndexCountsChunks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte(strings.Repeat("alpha ", 40)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte(strings.Repeat("bravo ", 40)), 0o644))

	provider := &recordingProvider{}
	store, err := NewStore("docs", config.DocumentStoreConfig{
		Path:            dir,
		IncludePatterns: []string{"*.md"},
		MaxFileSize:     1 << 20,
		Chunking:        config.ChunkingConfig{Strategy: "simple", Size: 50},
	}, fakeEmbedder{}, provider)
	require.NoError(t, err)

	stats, err := store.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 0, stats.Failed)
	assert.Greater(t, stats.Chunks, 2)
	assert.Len(t, provider.docs["docs"], stats.Chunks)
}
