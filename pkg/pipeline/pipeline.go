// Package pipeline runs sequential chains of agents, passing each step's
// output to the next through prompt templates.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/atelier-ai/atelier/pkg/agent"
	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/llms"
)

// StepAgent is the part of agent.Agent a pipeline step needs.
type StepAgent interface {
	Name() string
	Run(ctx context.Context, history []llms.Message, input string, sink agent.TextSink) (*agent.RunResult, error)
}

// StepResult is the output of one completed step.
type StepResult struct {
	Step     string
	Agent    string
	Output   string
	Duration time.Duration
}

// Result is the outcome of a full pipeline run.
type Result struct {
	Steps    []StepResult
	Output   string
	Duration time.Duration
}

// Pipeline is a named, ordered chain of agent steps.
type Pipeline struct {
	name   string
	cfg    config.PipelineConfig
	agents map[string]StepAgent
}

// New builds a pipeline. agents must contain every agent the steps name;
// config validation guarantees that when built from a loaded config.
func New(name string, cfg config.PipelineConfig, agents map[string]StepAgent) (*Pipeline, error) {
	for _, step := range cfg.Steps {
		if _, ok := agents[step.Agent]; !ok {
			return nil, fmt.Errorf("pipeline %s: unknown agent %q in step %q", name, step.Agent, step.Name)
		}
	}
	return &Pipeline{name: name, cfg: cfg, agents: agents}, nil
}

func (p *Pipeline) Name() string { return p.name }

// Run executes the steps in order. vars override the config defaults and
// fill {name} placeholders; each step additionally sees the previous
// step's output as {previous_output}. A failing step aborts the run.
func (p *Pipeline) Run(ctx context.Context, vars map[string]string, sink agent.TextSink) (*Result, error) {
	start := time.Now()

	merged := make(map[string]string, len(p.cfg.Vars)+len(vars)+1)
	for k, v := range p.cfg.Vars {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}
	merged["previous_output"] = ""

	result := &Result{}
	for i, step := range p.cfg.Steps {
		prompt, err := render(step.Prompt, merged)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}

		slog.Info("Running pipeline step",
			"pipeline", p.name, "step", step.Name, "agent", step.Agent)

		stepStart := time.Now()
		runResult, err := p.agents[step.Agent].Run(ctx, nil, prompt, sink)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s) failed: %w", i+1, step.Name, err)
		}

		if step.OutputFile != "" {
			if err := writeOutput(step.OutputFile, runResult.Text); err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
			}
		}

		merged["previous_output"] = runResult.Text
		merged[step.Name] = runResult.Text
		result.Steps = append(result.Steps, StepResult{
			Step:     step.Name,
			Agent:    step.Agent,
			Output:   runResult.Text,
			Duration: time.Since(stepStart),
		})
	}

	if len(result.Steps) > 0 {
		result.Output = result.Steps[len(result.Steps)-1].Output
	}
	result.Duration = time.Since(start)
	return result, nil
}

func writeOutput(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
