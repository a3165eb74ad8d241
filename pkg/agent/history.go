package agent

import (
	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/utils"
)

// trimHistory drops the oldest turns until the conversation fits the
// token budget. The leading system message and the newest message always
// survive, and a tool result is never left without the assistant turn
// that requested it.
func trimHistory(messages []llms.Message, counter *utils.TokenCounter, model string, maxTokens int) []llms.Message {
	if len(messages) == 0 {
		return messages
	}

	var system []llms.Message
	rest := messages
	if messages[0].Role == llms.RoleSystem {
		system = messages[:1]
		rest = messages[1:]
	}

	budget := maxTokens
	for _, m := range system {
		budget -= counter.Count(model, m.Content)
	}

	// Walk from the newest message backwards, keeping what fits.
	total := 0
	cut := 0
	for i := len(rest) - 1; i >= 0; i-- {
		total += counter.Count(model, rest[i].Content)
		if total > budget {
			cut = i + 1
			break
		}
	}

	// Never start the window on a tool result.
	for cut < len(rest) && rest[cut].Role == llms.RoleTool {
		cut++
	}

	// The newest message is the input for this turn; keep it even when it
	// alone blows the budget.
	if cut >= len(rest) {
		cut = len(rest) - 1
	}

	if cut == 0 {
		return messages
	}
	return append(system, rest[cut:]...)
}
