// Package rag implements document indexing and retrieval: directory
// sources, text extraction, chunking, embedding, vector search, and the
// self-reflective answer flow built on top of them.
package rag

import (
	"fmt"
	"strings"

	"github.com/atelier-ai/atelier/pkg/config"
)

// Chunk is one piece of a document ready for embedding.
type Chunk struct {
	Text  string
	Index int
}

// Chunker splits extracted text.
type Chunker interface {
	Chunk(text string) []Chunk
}

// NewChunker builds a chunker from config.
func NewChunker(cfg config.ChunkingConfig) (Chunker, error) {
	switch cfg.Strategy {
	case "simple":
		return &simpleChunker{size: cfg.Size}, nil
	case "overlapping":
		return &overlappingChunker{size: cfg.Size, overlap: cfg.Overlap}, nil
	case "paragraph":
		return &paragraphChunker{size: cfg.Size}, nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy: %s", cfg.Strategy)
	}
}

// simpleChunker cuts fixed-size pieces with no overlap.
type simpleChunker struct {
	size int
}

func (c *simpleChunker) Chunk(text string) []Chunk {
	return sliceChunks(text, c.size, 0)
}

// overlappingChunker cuts fixed-size pieces where each chunk repeats the
// tail of the previous one, so sentences split at a boundary still appear
// whole somewhere.
type overlappingChunker struct {
	size    int
	overlap int
}

func (c *overlappingChunker) Chunk(text string) []Chunk {
	return sliceChunks(text, c.size, c.overlap)
}

func sliceChunks(text string, size, overlap int) []Chunk {
	runes := []rune(text)
	if len(runes) <= size {
		return []Chunk{{Text: text, Index: 0}}
	}

	step := size - overlap
	chunks := make([]Chunk, 0, (len(runes)/step)+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, Chunk{Text: string(runes[start:end]), Index: len(chunks)})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// paragraphChunker splits on blank lines and packs consecutive paragraphs
// until the size limit, so related sentences stay together. Oversized
// paragraphs fall back to fixed-size slicing.
type paragraphChunker struct {
	size int
}

func (c *paragraphChunker) Chunk(text string) []Chunk {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []Chunk
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, Chunk{Text: current.String(), Index: len(chunks)})
			current.Reset()
		}
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if len([]rune(p)) > c.size {
			flush()
			for _, piece := range sliceChunks(p, c.size, 0) {
				chunks = append(chunks, Chunk{Text: piece.Text, Index: len(chunks)})
			}
			continue
		}

		if current.Len() > 0 && current.Len()+len(p)+2 > c.size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()

	if len(chunks) == 0 {
		return []Chunk{{Text: "", Index: 0}}
	}
	return chunks
}
