// Command atelier runs config-first LLM agents from the terminal: chat
// sessions, one-shot calls, multi-step pipelines, document indexing, and
// self-reflective retrieval answering.
//
// Usage:
//
//	atelier chat                         # zero-config chat (API key from env)
//	atelier chat -c atelier.yaml writer
//	atelier pipeline -c atelier.yaml blog-post --var topic="Go generics"
//	atelier index -c atelier.yaml --watch
//	atelier answer -c atelier.yaml "What does the handbook say about leave?"
//	atelier serve -c atelier.yaml
package main

import (
	"fmt"
	"runtime/debug"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Chat     ChatCmd     `cmd:"" default:"withargs" help:"Interactive chat with an agent."`
	Call     CallCmd     `cmd:"" help:"Run an agent once and print the answer."`
	Pipeline PipelineCmd `cmd:"" help:"Run a multi-step agent pipeline."`
	Index    IndexCmd    `cmd:"" help:"Index document stores into their vector stores."`
	Answer   AnswerCmd   `cmd:"" help:"Answer a question with graded retrieval."`
	Serve    ServeCmd    `cmd:"" help:"Serve agents and retrieval over HTTP."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Print the JSON Schema for the config file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file (zero-config defaults when omitted)." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." placeholder:"LEVEL"`
	LogFormat string `help:"Log format (text, json)." placeholder:"FORMAT"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("atelier version %s\n", version)
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("atelier"),
		kong.Description("Atelier - config-first LLM agents, pipelines, and retrieval"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
