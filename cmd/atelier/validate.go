package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/atelier-ai/atelier/pkg/config"
)

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	Path        string `arg:"" help:"Configuration file path." type:"path"`
	PrintConfig bool   `short:"p" name:"print-config" help:"Print the expanded configuration (defaults applied, env vars resolved)."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(c.Path)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Path, err)
	}

	if c.PrintConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	}

	fmt.Printf("%s is valid: %d llm(s), %d agent(s), %d pipeline(s), %d tool(s), %d document store(s)\n",
		c.Path, len(cfg.LLMs), len(cfg.Agents), len(cfg.Pipelines), len(cfg.Tools), len(cfg.DocumentStores))
	return nil
}

// SchemaCmd prints the JSON Schema for the config file, for editor
// completion and config linting.
type SchemaCmd struct {
	Compact bool `help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "Atelier Configuration Schema"
	schema.Description = "Configuration schema for atelier agents, pipelines, tools, and document stores"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(schema)
}
