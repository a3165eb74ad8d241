// Package config defines the YAML configuration surface and its loading,
// env expansion, defaulting, and validation rules.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration, loaded from a single YAML file.
type Config struct {
	Version     string `yaml:"version,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`

	Logger LoggerConfig `yaml:"logger,omitempty"`

	LLMs         map[string]LLMConfig         `yaml:"llms,omitempty"`
	Embedders    map[string]EmbedderConfig    `yaml:"embedders,omitempty"`
	VectorStores map[string]VectorStoreConfig `yaml:"vector_stores,omitempty"`

	Agents    map[string]AgentConfig    `yaml:"agents,omitempty"`
	Pipelines map[string]PipelineConfig `yaml:"pipelines,omitempty"`
	Tools     map[string]ToolConfig     `yaml:"tools,omitempty"`

	DocumentStores map[string]DocumentStoreConfig `yaml:"document_stores,omitempty"`

	SelfRAG SelfRAGConfig `yaml:"selfrag,omitempty"`
	Session SessionConfig `yaml:"session,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
}

// LoggerConfig controls the global slog setup.
type LoggerConfig struct {
	Level  string `yaml:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `yaml:"format,omitempty" jsonschema:"enum=text,enum=json"`
}

func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

func (c *LoggerConfig) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logger format: %s", c.Format)
	}
	return nil
}

// Load reads the config file, expands environment references, applies
// defaults, and validates. A .env file next to the working directory is
// loaded first so ${VAR} references can resolve against it.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit env vars still win.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Config from raw YAML bytes.
func Parse(data []byte) (*Config, error) {
	expanded := ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) SetDefaults() {
	c.Logger.SetDefaults()

	if c.LLMs == nil {
		c.LLMs = make(map[string]LLMConfig)
	}
	if c.Embedders == nil {
		c.Embedders = make(map[string]EmbedderConfig)
	}
	if c.VectorStores == nil {
		c.VectorStores = make(map[string]VectorStoreConfig)
	}
	if c.Agents == nil {
		c.Agents = make(map[string]AgentConfig)
	}
	if c.Pipelines == nil {
		c.Pipelines = make(map[string]PipelineConfig)
	}
	if c.Tools == nil {
		c.Tools = make(map[string]ToolConfig)
	}
	if c.DocumentStores == nil {
		c.DocumentStores = make(map[string]DocumentStoreConfig)
	}

	// Zero-config: a bare file still yields a usable chat agent.
	if len(c.LLMs) == 0 {
		c.LLMs["default"] = LLMConfig{}
	}
	if len(c.Agents) == 0 {
		c.Agents["assistant"] = AgentConfig{}
	}

	for name := range c.LLMs {
		llm := c.LLMs[name]
		llm.SetDefaults()
		c.LLMs[name] = llm
	}
	for name := range c.Embedders {
		e := c.Embedders[name]
		e.SetDefaults()
		c.Embedders[name] = e
	}
	for name := range c.VectorStores {
		vs := c.VectorStores[name]
		vs.SetDefaults()
		c.VectorStores[name] = vs
	}
	for name := range c.Agents {
		a := c.Agents[name]
		a.SetDefaults(c)
		c.Agents[name] = a
	}
	for name := range c.Pipelines {
		p := c.Pipelines[name]
		p.SetDefaults()
		c.Pipelines[name] = p
	}

	c.SelfRAG.SetDefaults(c)
	c.materializeBuiltinTools()

	for name := range c.Tools {
		t := c.Tools[name]
		t.SetDefaults(name)
		c.Tools[name] = t
	}
	for name := range c.DocumentStores {
		ds := c.DocumentStores[name]
		ds.SetDefaults(c)
		c.DocumentStores[name] = ds
	}

	c.Session.SetDefaults()
	c.Server.SetDefaults()
}

// materializeBuiltinTools creates config entries for built-in tools that
// agents (or the selfrag fallback) reference by name alone, so
// `tools: [web_search]` works without a tools: section.
func (c *Config) materializeBuiltinTools() {
	materialize := func(name string) {
		if _, ok := c.Tools[name]; !ok && isBuiltinTool(name) {
			c.Tools[name] = ToolConfig{Type: name}
		}
	}
	for _, a := range c.Agents {
		for _, tool := range a.Tools {
			materialize(tool)
		}
	}
	if c.SelfRAG.SearchTool != "" {
		materialize(c.SelfRAG.SearchTool)
	}
}

func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	for name, llm := range c.LLMs {
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("llm '%s': %w", name, err)
		}
	}
	for name, e := range c.Embedders {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("embedder '%s': %w", name, err)
		}
	}
	for name, vs := range c.VectorStores {
		if err := vs.Validate(); err != nil {
			return fmt.Errorf("vector store '%s': %w", name, err)
		}
	}
	for name, a := range c.Agents {
		if err := a.Validate(c); err != nil {
			return fmt.Errorf("agent '%s': %w", name, err)
		}
	}
	for name, p := range c.Pipelines {
		if err := p.Validate(c); err != nil {
			return fmt.Errorf("pipeline '%s': %w", name, err)
		}
	}
	for name, t := range c.Tools {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tool '%s': %w", name, err)
		}
		for _, store := range t.DocumentStores {
			if _, ok := c.DocumentStores[store]; !ok {
				return fmt.Errorf("tool '%s': references unknown document store: %s", name, store)
			}
		}
	}
	for name, ds := range c.DocumentStores {
		if err := ds.Validate(c); err != nil {
			return fmt.Errorf("document store '%s': %w", name, err)
		}
	}

	if err := c.SelfRAG.Validate(c); err != nil {
		return fmt.Errorf("selfrag: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}
