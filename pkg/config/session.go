package config

import "fmt"

// Session store backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendSQL    = "sql"
)

// SQLConfig selects a database driver and connection string for session
// persistence.
type SQLConfig struct {
	Driver string `yaml:"driver,omitempty" jsonschema:"enum=sqlite,enum=postgres,enum=mysql"`
	DSN    string `yaml:"dsn,omitempty" jsonschema:"description=Driver-specific connection string or sqlite file path"`
}

// SessionConfig controls chat session persistence.
type SessionConfig struct {
	Backend string    `yaml:"backend,omitempty" jsonschema:"enum=memory,enum=sql"`
	SQL     SQLConfig `yaml:"sql,omitempty"`
}

func (c *SessionConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = SessionBackendMemory
	}
	if c.Backend == SessionBackendSQL {
		if c.SQL.Driver == "" {
			c.SQL.Driver = "sqlite"
		}
		if c.SQL.Driver == "sqlite" && c.SQL.DSN == "" {
			c.SQL.DSN = "./.atelier/sessions.db"
		}
	}
}

func (c *SessionConfig) Validate() error {
	switch c.Backend {
	case SessionBackendMemory:
		return nil
	case SessionBackendSQL:
	default:
		return fmt.Errorf("unknown session backend: %s", c.Backend)
	}

	switch c.SQL.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported sql driver: %s", c.SQL.Driver)
	}
	if c.SQL.DSN == "" {
		return fmt.Errorf("dsn is required for sql backend")
	}
	return nil
}
