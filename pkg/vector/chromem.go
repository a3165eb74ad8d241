package vector

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/atelier-ai/atelier/pkg/config"
)

// Chromem is an embedded, file-persisted vector store. Vectors are always
// pre-computed by an embedder, so the collection embedding function only
// exists to satisfy the API.
type Chromem struct {
	db *chromem.DB

	mu          sync.RWMutex
	collections map[string]*chromem.Collection

	embeddingFunc chromem.EmbeddingFunc
}

func NewChromem(cfg config.VectorStoreConfig) (*Chromem, error) {
	db, err := chromem.NewPersistentDB(cfg.Path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database at %s: %w", cfg.Path, err)
	}

	return &Chromem{
		db:          db,
		collections: make(map[string]*chromem.Collection),
		embeddingFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, fmt.Errorf("vectors must be pre-computed")
		},
	}, nil
}

func (p *Chromem) getCollection(name string) (*chromem.Collection, error) {
	p.mu.RLock()
	if col, ok := p.collections[name]; ok {
		p.mu.RUnlock()
		return col, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if col, ok := p.collections[name]; ok {
		return col, nil
	}

	col, err := p.db.GetOrCreateCollection(name, nil, p.embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %q: %w", name, err)
	}
	p.collections[name] = col
	return col, nil
}

func (p *Chromem) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}

	converted := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		converted = append(converted, chromem.Document{
			ID:        d.ID,
			Content:   d.Content,
			Metadata:  d.Metadata,
			Embedding: d.Vector,
		})
	}

	if err := col.AddDocuments(ctx, converted, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert documents: %w", err)
	}
	return nil
}

func (p *Chromem) Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return nil, err
	}

	// chromem rejects queries asking for more results than stored.
	if count := col.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			ID:       r.ID,
			Content:  r.Content,
			Score:    r.Similarity,
			Metadata: r.Metadata,
		})
	}
	return out, nil
}

func (p *Chromem) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

func (p *Chromem) DeleteCollection(ctx context.Context, collection string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}
	delete(p.collections, collection)
	return nil
}

func (p *Chromem) Close() error { return nil }
