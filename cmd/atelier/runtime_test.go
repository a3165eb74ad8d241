package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRuntimeFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atelier.yaml")
	cfg := `
llms:
  local:
    type: ollama
agents:
  helper:
    llm: local
    instruction: "You help."
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	rt, err := buildRuntime(path, "warn", "")
	require.NoError(t, err)
	defer rt.Close()

	ag, err := rt.agent("helper")
	require.NoError(t, err)
	assert.Equal(t, "helper", ag.Name())

	_, err = rt.agent("nope")
	assert.Error(t, err)

	resolved, err := resolveAgent(rt, "")
	require.NoError(t, err)
	assert.Equal(t, "helper", resolved.Name())
}

func TestLoadConfigZeroConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Len(t, cfg.Agents, 1)
	assert.Contains(t, cfg.Agents, "assistant")
}

func TestBuildRuntimeMissingFile(t *testing.T) {
	_, err := buildRuntime(filepath.Join(t.TempDir(), "absent.yaml"), "", "")
	assert.Error(t, err)
}
