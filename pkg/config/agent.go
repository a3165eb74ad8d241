package config

import "fmt"

// HistoryConfig bounds conversation history fed back to the LLM.
type HistoryConfig struct {
	MaxTokens int    `yaml:"max_tokens,omitempty"`
	Model     string `yaml:"model,omitempty" jsonschema:"description=Tokenizer model used for counting"`
}

func (c *HistoryConfig) SetDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = 8000
	}
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
}

// AgentConfig describes one agent: an LLM, an instruction, and tools.
type AgentConfig struct {
	Description   string        `yaml:"description,omitempty"`
	LLM           string        `yaml:"llm,omitempty"`
	Instruction   string        `yaml:"instruction,omitempty"`
	Tools         []string      `yaml:"tools,omitempty"`
	MaxIterations int           `yaml:"max_iterations,omitempty" jsonschema:"description=Tool-call round trips allowed per run"`
	History       HistoryConfig `yaml:"history,omitempty"`
}

func (c *AgentConfig) SetDefaults(root *Config) {
	if c.LLM == "" {
		c.LLM = firstKey(root.LLMs)
	}
	if c.Instruction == "" {
		c.Instruction = "You are a helpful assistant."
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 8
	}
	c.History.SetDefaults()
}

func (c *AgentConfig) Validate(root *Config) error {
	if _, ok := root.LLMs[c.LLM]; !ok {
		return fmt.Errorf("references unknown llm: %s", c.LLM)
	}
	// Built-ins referenced by name alone are materialized into root.Tools
	// during SetDefaults, so every valid reference has an entry here.
	for _, tool := range c.Tools {
		if _, ok := root.Tools[tool]; !ok {
			return fmt.Errorf("references unknown tool: %s", tool)
		}
	}
	if c.MaxIterations < 1 || c.MaxIterations > 50 {
		return fmt.Errorf("max_iterations must be between 1 and 50")
	}
	return nil
}
