// Package display formats user-facing warnings for the nrinstall commands.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Keys       []string // Related configuration keys (optional)
	Suggestion string   // Action to take (optional)
}

// Display writes the warning to out, in yellow when color is enabled.
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Keys) > 0 {
		b.WriteString("    ")
		if len(w.Keys) == 1 {
			b.WriteString("Affected key:\n")
		} else {
			b.WriteString("Affected keys:\n")
		}
		for i, key := range w.Keys {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, key))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	color.New(color.FgYellow).Fprint(out, b.String())
}

// WarnUnreplacedKeys creates a warning for rules whose placeholder never
// appeared in the template.
func WarnUnreplacedKeys(keys []string) Warning {
	return Warning{
		Title:      "Placeholder not found for some keys",
		Message:    "The template did not contain the expected placeholder values, so these keys were left unchanged",
		Keys:       keys,
		Suggestion: "Check that the template is the unmodified newrelic.ini.template shipped with the agent",
	}
}
