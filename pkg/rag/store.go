package rag

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/embedders"
	"github.com/atelier-ai/atelier/pkg/vector"
)

// indexWorkers bounds concurrent file extraction and embedding.
const indexWorkers = 4

// IndexStats summarizes one indexing run.
type IndexStats struct {
	Documents int
	Chunks    int
	Failed    int
	Duration  time.Duration
}

// Store is one configured document store: a directory source indexed into
// a vector collection through a chunker and an embedder.
type Store struct {
	name     string
	source   *DirectorySource
	chunker  Chunker
	embedder embedders.Embedder
	provider vector.Provider
}

func NewStore(name string, cfg config.DocumentStoreConfig, embedder embedders.Embedder, provider vector.Provider) (*Store, error) {
	chunker, err := NewChunker(cfg.Chunking)
	if err != nil {
		return nil, err
	}
	return &Store{
		name:     name,
		source:   NewDirectorySource(cfg),
		chunker:  chunker,
		embedder: embedder,
		provider: provider,
	}, nil
}

func (s *Store) Name() string             { return s.name }
func (s *Store) Source() *DirectorySource { return s.source }

// Index walks the source directory and indexes every matching file.
func (s *Store) Index(ctx context.Context) (*IndexStats, error) {
	start := time.Now()

	paths, err := s.source.List()
	if err != nil {
		return nil, err
	}

	type fileResult struct {
		chunks int
		err    error
	}

	stats := &IndexStats{}
	results := make(chan fileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(indexWorkers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			chunks, err := s.IndexFile(ctx, path)
			if err != nil {
				slog.Warn("Failed to index document", "store", s.name, "path", path, "error", err)
			}
			results <- fileResult{chunks: chunks, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	for res := range results {
		if res.err != nil {
			stats.Failed++
			indexErrors.WithLabelValues(s.name).Inc()
			continue
		}
		stats.Documents++
		stats.Chunks += res.chunks
		indexedDocuments.WithLabelValues(s.name).Inc()
		indexedChunks.WithLabelValues(s.name).Add(float64(res.chunks))
	}
	stats.Duration = time.Since(start)

	slog.Info("Indexed document store",
		"store", s.name,
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return stats, nil
}

// IndexFile extracts, chunks, embeds, and upserts a single file. Chunk IDs
// derive from the path and chunk index, so reindexing overwrites in place.
func (s *Store) IndexFile(ctx context.Context, path string) (int, error) {
	extracted, err := Extract(ctx, path)
	if err != nil {
		return 0, err
	}

	chunks := s.chunker.Chunk(extracted.Content)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed %s: %w", path, err)
	}

	docs := make([]vector.Document, len(chunks))
	for i, c := range chunks {
		metadata := map[string]string{
			"source":      path,
			"file":        filepath.Base(path),
			"chunk_index": fmt.Sprintf("%d", c.Index),
		}
		for k, v := range extracted.Metadata {
			metadata[k] = v
		}
		docs[i] = vector.Document{
			ID:       chunkID(path, c.Index),
			Content:  c.Text,
			Vector:   vectors[i],
			Metadata: metadata,
		}
	}

	if err := s.provider.Upsert(ctx, s.name, docs); err != nil {
		return 0, fmt.Errorf("failed to upsert %s: %w", path, err)
	}
	return len(docs), nil
}

// Search embeds the query and returns the topK closest chunks.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]vector.SearchResult, error) {
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.provider.Search(ctx, s.name, queryVector, topK)
}

func chunkID(path string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", path, index))).String()
}
