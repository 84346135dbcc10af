// Package tap records test outcomes and renders them in the Test Anything
// Protocol.
//
// A Report is append-only: checks are recorded in the order they run and
// the rendered plan line always reflects the number recorded so far.
//
//	report := tap.New()
//	report.Attempt("install package", func() error {
//	    return dpkg.Install(ctx, file)
//	})
//	fmt.Print(report)
package tap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDirective is returned when a directive does not start with SKIP
// or TODO.
var ErrInvalidDirective = errors.New("directive must start with either SKIP or TODO")

// Directive prefixes.
const (
	DirectiveSkip = "SKIP"
	DirectiveTodo = "TODO"
)

// Outcome is a single recorded test result.
type Outcome struct {
	OK          bool
	Description string
	Directive   string
	Comment     string
}

// NewOutcome builds an outcome, validating the directive. An empty
// description, directive or comment is omitted from the rendered line.
func NewOutcome(ok bool, description, directive, comment string) (Outcome, error) {
	if directive != "" && !validDirective(directive) {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidDirective, directive)
	}
	return Outcome{
		OK:          ok,
		Description: description,
		Directive:   directive,
		Comment:     comment,
	}, nil
}

// NewOutcomeFromLabel is NewOutcome taking the protocol label instead of a
// bool: "ok" in any case passes, anything else fails.
func NewOutcomeFromLabel(label, description, directive, comment string) (Outcome, error) {
	return NewOutcome(strings.EqualFold(label, "ok"), description, directive, comment)
}

func validDirective(directive string) bool {
	return hasPrefixFold(directive, DirectiveSkip) || hasPrefixFold(directive, DirectiveTodo)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// IsSkip reports whether the outcome carries a SKIP directive.
func (o Outcome) IsSkip() bool {
	return hasPrefixFold(o.Directive, DirectiveSkip)
}

// IsTodo reports whether the outcome carries a TODO directive.
func (o Outcome) IsTodo() bool {
	return hasPrefixFold(o.Directive, DirectiveTodo)
}

// Label returns "ok" or "not ok".
func (o Outcome) Label() string {
	if o.OK {
		return "ok"
	}
	return "not ok"
}

// String renders the outcome without its test number. Each comment line is
// trimmed and emitted on its own "# " line, and an empty comment line is a
// bare "#". No rendered line ends in whitespace, so the output is not
// byte-identical to renderers that join fields with a trailing space.
func (o Outcome) String() string {
	var b strings.Builder
	b.WriteString(o.Label())

	if o.Description != "" {
		b.WriteString(" ")
		b.WriteString(o.Description)
	}
	if o.Directive != "" {
		b.WriteString(" # ")
		b.WriteString(o.Directive)
	}
	if o.Comment != "" {
		for _, line := range strings.Split(o.Comment, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				b.WriteString("\n#")
				continue
			}
			b.WriteString("\n# ")
			b.WriteString(line)
		}
	}
	return b.String()
}

func withReason(prefix, reason string) string {
	if reason == "" {
		return prefix
	}
	return prefix + " " + reason
}
