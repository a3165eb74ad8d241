package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"github.com/atelier-ai/atelier/pkg/agent"
	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/session"
)

// ChatCmd is an interactive chat loop against one configured agent.
type ChatCmd struct {
	Agent   string `arg:"" optional:"" help:"Agent name (defaults to the only configured agent)."`
	Session string `help:"Resume an existing session by ID." placeholder:"ID"`
	Plain   bool   `help:"Stream raw text instead of rendering markdown."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	rt, err := buildRuntime(cli.Config, cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}
	defer rt.Close()

	ag, err := resolveAgent(rt, c.Agent)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess, err := c.openSession(ctx, rt, ag.Name())
	if err != nil {
		return err
	}

	var render func(string) (string, error)
	if !c.Plain {
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err == nil {
			render = renderer.Render
		}
	}

	fmt.Printf("Chatting with %s (session %s). /quit to exit, /clear for a fresh session.\n\n", ag.Name(), sess.ID)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("You: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			switch input {
			case "/quit", "/exit":
				return nil
			case "/clear":
				if sess, err = rt.sessions.CreateSession(ctx, ag.Name()); err != nil {
					return err
				}
				fmt.Printf("Started fresh session %s\n", sess.ID)
				continue
			default:
				fmt.Printf("Unknown command: %s\n", input)
				continue
			}
		}

		if err := c.turn(ctx, rt.sessions, ag, sess.ID, input, render); err != nil {
			if ctx.Err() != nil {
				fmt.Println()
				return nil
			}
			fmt.Printf("Error: %v\n\n", err)
		}
	}
}

func (c *ChatCmd) openSession(ctx context.Context, rt *runtime, agentName string) (*session.Session, error) {
	if c.Session != "" {
		return rt.sessions.GetSession(ctx, c.Session)
	}
	return rt.sessions.CreateSession(ctx, agentName)
}

func (c *ChatCmd) turn(ctx context.Context, store session.Store, ag *agent.Agent, sessionID, input string, render func(string) (string, error)) error {
	stored, err := store.Messages(ctx, sessionID)
	if err != nil {
		return err
	}
	history := make([]llms.Message, 0, len(stored))
	for _, m := range stored {
		history = append(history, llms.Message{Role: m.Role, Content: m.Content})
	}

	var sink agent.TextSink
	if render == nil {
		fmt.Printf("\n%s: ", ag.Name())
		sink = func(text string) { fmt.Print(text) }
	}

	result, err := ag.Run(ctx, history, input, sink)
	if err != nil {
		return err
	}

	if render != nil {
		rendered, rerr := render(result.Text)
		if rerr != nil {
			rendered = result.Text
		}
		fmt.Printf("\n%s:\n%s\n", ag.Name(), rendered)
	} else {
		fmt.Print("\n\n")
	}

	if err := store.AppendMessage(ctx, sessionID, llms.RoleUser, input); err != nil {
		return err
	}
	return store.AppendMessage(ctx, sessionID, llms.RoleAssistant, result.Text)
}

// resolveAgent picks the named agent, or the only one when unnamed.
func resolveAgent(rt *runtime, name string) (*agent.Agent, error) {
	if name != "" {
		return rt.agent(name)
	}
	if len(rt.agents) == 1 {
		for _, ag := range rt.agents {
			return ag, nil
		}
	}
	return nil, fmt.Errorf("multiple agents configured, pick one of: %s", strings.Join(agentNames(rt.agents), ", "))
}
