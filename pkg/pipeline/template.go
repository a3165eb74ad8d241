package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// render substitutes {name} placeholders from vars. Unknown placeholders
// are an error so a typo in a step prompt fails loudly, not silently.
func render(template string, vars map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		missing = append(missing, name)
		return match
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("undefined template vars: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
