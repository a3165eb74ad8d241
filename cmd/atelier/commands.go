package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atelier-ai/atelier/pkg/pipeline"
	"github.com/atelier-ai/atelier/pkg/rag"
	"github.com/atelier-ai/atelier/pkg/server"
)

const timeRound = 10 * time.Millisecond

// CallCmd runs an agent once and prints the answer.
type CallCmd struct {
	Agent  string `arg:"" help:"Agent name."`
	Prompt string `arg:"" help:"Prompt to send."`
}

func (c *CallCmd) Run(cli *CLI) error {
	rt, err := buildRuntime(cli.Config, cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}
	defer rt.Close()

	ag, err := rt.agent(c.Agent)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_, err = ag.Run(ctx, nil, c.Prompt, func(text string) { fmt.Print(text) })
	if err != nil {
		return err
	}
	fmt.Println()
	return nil
}

// PipelineCmd runs a configured multi-step pipeline.
type PipelineCmd struct {
	Name string   `arg:"" optional:"" help:"Pipeline name (defaults to the only configured pipeline)."`
	Var  []string `help:"Template variable as key=value (repeatable)." placeholder:"KEY=VALUE"`
}

func (c *PipelineCmd) Run(cli *CLI) error {
	rt, err := buildRuntime(cli.Config, cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}
	defer rt.Close()

	name := c.Name
	if name == "" {
		if len(rt.cfg.Pipelines) != 1 {
			return fmt.Errorf("pick a pipeline: %s", strings.Join(pipelineNames(rt), ", "))
		}
		for n := range rt.cfg.Pipelines {
			name = n
		}
	}
	pc, ok := rt.cfg.Pipelines[name]
	if !ok {
		return fmt.Errorf("unknown pipeline: %s (configured: %s)", name, strings.Join(pipelineNames(rt), ", "))
	}

	vars := make(map[string]string)
	for _, kv := range c.Var {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return fmt.Errorf("invalid --var %q, expected key=value", kv)
		}
		vars[key] = value
	}

	stepAgents := make(map[string]pipeline.StepAgent, len(rt.agents))
	for agentName, ag := range rt.agents {
		stepAgents[agentName] = ag
	}
	p, err := pipeline.New(name, pc, stepAgents)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := p.Run(ctx, vars, func(text string) { fmt.Print(text) })
	if err != nil {
		return err
	}
	fmt.Println()

	for _, step := range result.Steps {
		fmt.Fprintf(os.Stderr, "%-20s %-16s %s\n", step.Step, step.Agent, step.Duration.Round(timeRound))
	}
	fmt.Fprintf(os.Stderr, "pipeline %s finished in %s\n", name, result.Duration.Round(timeRound))
	return nil
}

func pipelineNames(rt *runtime) []string {
	names := make([]string, 0, len(rt.cfg.Pipelines))
	for name := range rt.cfg.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndexCmd indexes document stores into their vector stores.
type IndexCmd struct {
	Stores []string `arg:"" optional:"" help:"Document store names (defaults to all)."`
	Watch  bool     `help:"Keep watching for file changes and reindex incrementally."`
}

func (c *IndexCmd) Run(cli *CLI) error {
	rt, err := buildRuntime(cli.Config, cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}
	defer rt.Close()

	names := c.Stores
	if len(names) == 0 {
		for name := range rt.stores {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		return fmt.Errorf("no document stores configured")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	selected := make([]*rag.Store, 0, len(names))
	for _, name := range names {
		store, ok := rt.stores[name]
		if !ok {
			return fmt.Errorf("unknown document store: %s", name)
		}
		selected = append(selected, store)
	}

	for _, store := range selected {
		stats, err := store.Index(ctx)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", store.Name(), err)
		}
		fmt.Printf("%s: %d documents, %d chunks (%d failed) in %s\n",
			store.Name(), stats.Documents, stats.Chunks, stats.Failed, stats.Duration.Round(timeRound))
	}

	if !c.Watch {
		return nil
	}

	fmt.Println("Watching for changes, Ctrl-C to stop.")
	g, ctx := errgroup.WithContext(ctx)
	for _, store := range selected {
		watcher, err := rag.NewWatcher(store)
		if err != nil {
			return fmt.Errorf("watching %s: %w", store.Name(), err)
		}
		g.Go(func() error { return watcher.Run(ctx) })
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// AnswerCmd answers one question with graded retrieval.
type AnswerCmd struct {
	Question string `arg:"" help:"Question to answer."`
}

func (c *AnswerCmd) Run(cli *CLI) error {
	rt, err := buildRuntime(cli.Config, cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}
	defer rt.Close()

	selfrag, err := rt.selfRAG()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	answer, err := selfrag.Answer(ctx, c.Question)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintf(os.Stderr, "\nSources: %s\n", strings.Join(answer.Sources, ", "))
	}
	if answer.UsedWebSearch {
		fmt.Fprintln(os.Stderr, "Supplemented with web search results.")
	}
	return nil
}

// ServeCmd serves agents and retrieval answering over HTTP.
type ServeCmd struct {
	Host string `help:"Bind host (overrides config)." placeholder:"HOST"`
	Port int    `help:"Bind port (overrides config)." placeholder:"PORT"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	rt, err := buildRuntime(cli.Config, cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}
	defer rt.Close()

	serverCfg := rt.cfg.Server
	if c.Host != "" {
		serverCfg.Host = c.Host
	}
	if c.Port != 0 {
		serverCfg.Port = c.Port
	}

	runners := make(map[string]server.Runner, len(rt.agents))
	for name, ag := range rt.agents {
		runners[name] = ag
	}

	// Retrieval answering is optional on the server; agents alone are a
	// valid deployment.
	var answerer server.Answerer
	if len(rt.stores) > 0 {
		selfrag, err := rt.selfRAG()
		if err != nil {
			return err
		}
		answerer = selfrag
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := server.New(serverCfg, server.Options{
		Agents:   runners,
		Sessions: rt.sessions,
		Answerer: answerer,
	})
	fmt.Printf("Serving %d agent(s) on http://%s:%d\n", len(runners), serverCfg.Host, serverCfg.Port)
	return srv.Start(ctx)
}
