package config

import (
	"fmt"
	"os"
)

// Vector store backends.
const (
	VectorStoreChromem = "chromem"
	VectorStoreQdrant  = "qdrant"
)

// VectorStoreConfig describes one vector database.
type VectorStoreConfig struct {
	Type string `yaml:"type,omitempty" jsonschema:"enum=chromem,enum=qdrant"`

	// chromem
	Path string `yaml:"path,omitempty" jsonschema:"description=Persistence directory for chromem"`

	// qdrant
	Host   string `yaml:"host,omitempty"`
	Port   int    `yaml:"port,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls,omitempty"`
}

func (c *VectorStoreConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = VectorStoreChromem
	}
	switch c.Type {
	case VectorStoreChromem:
		if c.Path == "" {
			c.Path = "./.atelier/vectors"
		}
	case VectorStoreQdrant:
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == 0 {
			c.Port = 6334
		}
		if c.APIKey == "" {
			c.APIKey = os.Getenv("QDRANT_API_KEY")
		}
	}
}

func (c *VectorStoreConfig) Validate() error {
	switch c.Type {
	case VectorStoreChromem, VectorStoreQdrant:
	default:
		return fmt.Errorf("unknown vector store type: %s", c.Type)
	}
	return nil
}

// ChunkingConfig controls how extracted text is split before embedding.
type ChunkingConfig struct {
	Strategy string `yaml:"strategy,omitempty" jsonschema:"enum=simple,enum=overlapping,enum=paragraph"`
	Size     int    `yaml:"size,omitempty" jsonschema:"description=Target chunk size in characters"`
	Overlap  int    `yaml:"overlap,omitempty"`
}

func (c *ChunkingConfig) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = "overlapping"
	}
	if c.Size == 0 {
		c.Size = 1200
	}
	if c.Overlap == 0 && c.Strategy == "overlapping" {
		c.Overlap = 200
	}
}

func (c *ChunkingConfig) Validate() error {
	switch c.Strategy {
	case "simple", "overlapping", "paragraph":
	default:
		return fmt.Errorf("unknown chunking strategy: %s", c.Strategy)
	}
	if c.Size < 50 || c.Size > 32000 {
		return fmt.Errorf("chunk size must be between 50 and 32000")
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("overlap must be non-negative and smaller than size")
	}
	return nil
}

// DocumentStoreConfig describes a directory of documents indexed into a
// vector store.
type DocumentStoreConfig struct {
	Path            string         `yaml:"path"`
	IncludePatterns []string       `yaml:"include_patterns,omitempty"`
	ExcludePatterns []string       `yaml:"exclude_patterns,omitempty"`
	MaxFileSize     int64          `yaml:"max_file_size,omitempty"`
	VectorStore     string         `yaml:"vector_store,omitempty"`
	Embedder        string         `yaml:"embedder,omitempty"`
	Chunking        ChunkingConfig `yaml:"chunking,omitempty"`
	WatchChanges    bool           `yaml:"watch_changes,omitempty"`
}

func (c *DocumentStoreConfig) SetDefaults(root *Config) {
	if len(c.IncludePatterns) == 0 {
		c.IncludePatterns = []string{"*.txt", "*.md", "*.pdf", "*.docx", "*.xlsx"}
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = 50 * 1024 * 1024
	}
	if c.VectorStore == "" {
		c.VectorStore = firstKey(root.VectorStores)
	}
	if c.Embedder == "" {
		c.Embedder = firstKey(root.Embedders)
	}
	c.Chunking.SetDefaults()
}

func (c *DocumentStoreConfig) Validate(root *Config) error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if _, ok := root.VectorStores[c.VectorStore]; !ok {
		return fmt.Errorf("references unknown vector store: %s", c.VectorStore)
	}
	if _, ok := root.Embedders[c.Embedder]; !ok {
		return fmt.Errorf("references unknown embedder: %s", c.Embedder)
	}
	return c.Chunking.Validate()
}

// firstKey returns the lexically smallest key so defaulting is stable.
func firstKey[T any](m map[string]T) string {
	first := ""
	for k := range m {
		if first == "" || k < first {
			first = k
		}
	}
	return first
}
