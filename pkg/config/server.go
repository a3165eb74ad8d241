package config

import "fmt"

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Host          string `yaml:"host,omitempty"`
	Port          int    `yaml:"port,omitempty"`
	EnableMetrics bool   `yaml:"enable_metrics,omitempty"`
	ReadTimeout   int    `yaml:"read_timeout,omitempty"`
	WriteTimeout  int    `yaml:"write_timeout,omitempty" jsonschema:"description=Seconds; generous because agent runs are slow"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 300
	}
}

func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
