package vector

import (
	"context"
	"testing"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemUpsertAndSearch(t *testing.T) {
	store, err := NewChromem(config.VectorStoreConfig{
		Type: config.VectorStoreChromem,
		Path: t.TempDir(),
	})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	docs := []Document{
		{ID: "a", Content: "cats are mammals", Vector: []float32{1, 0, 0}, Metadata: map[string]string{"source": "a.txt"}},
		{ID: "b", Content: "go is a language", Vector: []float32{0, 1, 0}, Metadata: map[string]string{"source": "b.txt"}},
		{ID: "c", Content: "dogs are mammals", Vector: []float32{0.9, 0.1, 0}, Metadata: map[string]string{"source": "c.txt"}},
	}
	require.NoError(t, store.Upsert(ctx, "docs", docs))

	results, err := store.Search(ctx, "docs", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "cats are mammals", results[0].Content)
	assert.Equal(t, "a.txt", results[0].Metadata["source"])
	assert.Equal(t, "c", results[1].ID)
}

func TestChromemSearchClampsTopK(t *testing.T) {
	store, err := NewChromem(config.VectorStoreConfig{
		Type: config.VectorStoreChromem,
		Path: t.TempDir(),
	})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "docs", []Document{
		{ID: "only", Content: "one doc", Vector: []float32{1, 0}},
	}))

	results, err := store.Search(ctx, "docs", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	empty, err := store.Search(ctx, "empty", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestChromemDelete(t *testing.T) {
	store, err := NewChromem(config.VectorStoreConfig{
		Type: config.VectorStoreChromem,
		Path: t.TempDir(),
	})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "docs", []Document{
		{ID: "x", Content: "to be removed", Vector: []float32{1, 0}},
		{ID: "y", Content: "to stay", Vector: []float32{0, 1}},
	}))

	require.NoError(t, store.Delete(ctx, "docs", []string{"x"}))

	results, err := store.Search(ctx, "docs", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "y", results[0].ID)
}
