package prompt

import (
	"embed"
	"fmt"
	"os"
	"strings"
)

//go:embed rules/*.md
var rulesFS embed.FS

// Rule variants shipped with the binary.
const (
	RulesConcise  = "concise"
	RulesExtended = "extended"
)

// LoadRules returns the rules text for an embedded variant, or the contents
// of path when path is set. The result is read once at start-up.
func LoadRules(variant, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read rules file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if variant == "" {
		variant = RulesConcise
	}
	data, err := rulesFS.ReadFile("rules/" + variant + ".md")
	if err != nil {
		return "", fmt.Errorf("unknown rules variant %q", variant)
	}
	return strings.TrimSpace(string(data)), nil
}
