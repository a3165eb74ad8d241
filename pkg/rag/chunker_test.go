package rag

import (
	"strings"
	"testing"

	"github.com/atelier-ai/atelier/pkg/config"
)

func TestOverlappingChunker(t *testing.T) {
	chunker, err := NewChunker(config.ChunkingConfig{Strategy: "overlapping", Size: 100, Overlap: 20})
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("abcdefghij", 25) // 250 chars
	chunks := chunker.Chunk(text)

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
	// Each chunk starts with the last 20 chars of the previous one.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		tail := prev[len(prev)-20:]
		if !strings.HasPrefix(chunks[i].Text, tail) {
			t.Errorf("chunk %d does not overlap with its predecessor", i)
		}
	}
}

func TestSimpleChunkerShortInput(t *testing.T) {
	chunker, err := NewChunker(config.ChunkingConfig{Strategy: "simple", Size: 1000})
	if err != nil {
		t.Fatal(err)
	}

	chunks := chunker.Chunk("short text")
	if len(chunks) != 1 || chunks[0].Text != "short text" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}

	empty := chunker.Chunk("")
	if len(empty) != 1 || empty[0].Text != "" {
		t.Fatalf("empty input should yield one empty chunk, got %+v", empty)
	}
}

func TestParagraphChunkerPacksParagraphs(t *testing.T) {
	chunker, err := NewChunker(config.ChunkingConfig{Strategy: "paragraph", Size: 100})
	if err != nil {
		t.Fatal(err)
	}

	text := "First paragraph here.\n\nSecond paragraph here.\n\n" + strings.Repeat("x", 150) + "\n\nLast one."
	chunks := chunker.Chunk(text)

	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "First paragraph") || !strings.Contains(chunks[0].Text, "Second paragraph") {
		t.Errorf("small paragraphs should pack together, got %q", chunks[0].Text)
	}
	for _, c := range chunks {
		if len(c.Text) > 150 {
			t.Errorf("chunk exceeds size bound: %d chars", len(c.Text))
		}
	}
}

func TestNewChunkerUnknownStrategy(t *testing.T) {
	if _, err := NewChunker(config.ChunkingConfig{Strategy: "semantic", Size: 100}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
