package config

import (
	"os"
	"regexp"
	"strings"
)

var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`)
	envBraced      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	envSimple      = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// ExpandEnv expands ${VAR:-default}, ${VAR}, and $VAR references.
// Unset variables without a default expand to the empty string.
func ExpandEnv(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	// ${VAR:-default} must run before ${VAR}.
	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})

	s = envBraced.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envBraced.FindStringSubmatch(match)[1])
	})

	s = envSimple.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envSimple.FindStringSubmatch(match)[1])
	})

	return s
}
