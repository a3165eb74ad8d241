package config

import "fmt"

// PipelineStepConfig is one sequential step. The prompt template may
// reference input vars as {name} and the previous step's output as
// {previous_output}.
type PipelineStepConfig struct {
	Name       string `yaml:"name"`
	Agent      string `yaml:"agent"`
	Prompt     string `yaml:"prompt"`
	OutputFile string `yaml:"output_file,omitempty"`
}

// PipelineConfig is an ordered chain of agent steps.
type PipelineConfig struct {
	Description string               `yaml:"description,omitempty"`
	Vars        map[string]string    `yaml:"vars,omitempty" jsonschema:"description=Default values for template vars"`
	Steps       []PipelineStepConfig `yaml:"steps"`
}

func (c *PipelineConfig) SetDefaults() {
	for i := range c.Steps {
		if c.Steps[i].Name == "" {
			c.Steps[i].Name = fmt.Sprintf("step-%d", i+1)
		}
	}
}

func (c *PipelineConfig) Validate(root *Config) error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range c.Steps {
		if step.Agent == "" {
			return fmt.Errorf("step %d (%s): agent is required", i+1, step.Name)
		}
		if _, ok := root.Agents[step.Agent]; !ok {
			return fmt.Errorf("step %d (%s): references unknown agent: %s", i+1, step.Name, step.Agent)
		}
		if step.Prompt == "" {
			return fmt.Errorf("step %d (%s): prompt is required", i+1, step.Name)
		}
	}
	return nil
}
