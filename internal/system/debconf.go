package system

import (
	"context"
	"fmt"
	"strings"
)

// DebconfSetSelectionsPath is the default debconf-set-selections location.
const DebconfSetSelectionsPath = "/usr/bin/debconf-set-selections"

// Selection is one canned debconf answer.
type Selection struct {
	Package  string
	Question string
	Type     string
	Value    string
}

func (s Selection) String() string {
	return fmt.Sprintf("%s %s %s %s", s.Package, s.Question, s.Type, s.Value)
}

// Debconf collects debconf selections and writes them in one batch.
type Debconf struct {
	Runner     CommandRunner
	Path       string
	selections []Selection
}

// NewDebconf returns an empty selection set.
func NewDebconf(runner CommandRunner) *Debconf {
	return &Debconf{Runner: runner, Path: DebconfSetSelectionsPath}
}

// Set queues a selection.
func (d *Debconf) Set(pkg, question, datatype, value string) {
	d.selections = append(d.selections, Selection{
		Package:  pkg,
		Question: question,
		Type:     datatype,
		Value:    value,
	})
}

// Selections returns the queued selections.
func (d *Debconf) Selections() []Selection {
	out := make([]Selection, len(d.selections))
	copy(out, d.selections)
	return out
}

// Write pipes the queued selections to debconf-set-selections. Nothing is
// run when no selections are queued.
func (d *Debconf) Write(ctx context.Context) error {
	if len(d.selections) == 0 {
		return nil
	}

	var b strings.Builder
	for _, s := range d.selections {
		b.WriteString(s.String())
		b.WriteString("\n")
	}

	if _, err := d.Runner.Run(ctx, strings.NewReader(b.String()), d.Path); err != nil {
		return fmt.Errorf("debconf-set-selections: %w", err)
	}
	return nil
}
