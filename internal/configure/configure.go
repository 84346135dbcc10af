// Package configure rewrites placeholder values in agent ini templates.
//
// The templates are never parsed as INI: comments, blank lines, spacing and
// key order must survive untouched, so each line is matched against a
// literal key/placeholder pattern and only the value span is replaced.
package configure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Built-in keys and placeholders used by the agent's newrelic.ini template.
const (
	LicenseKey         = "newrelic.license"
	LicensePlaceholder = "REPLACE_WITH_REAL_KEY"
	AppNameKey         = "newrelic.appname"
	AppNamePlaceholder = "PHP Application"
)

// Rule replaces Placeholder with Value on lines assigning Key.
type Rule struct {
	Key         string
	Placeholder string
	Value       string
}

// Replacement is the (placeholder, value) pair stored in a Table.
type Replacement struct {
	Placeholder string
	Value       string
}

// Table maps configuration keys to their replacement.
type Table map[string]Replacement

// Rules returns the table as rules sorted by key.
func (t Table) Rules() []Rule {
	rules := make([]Rule, 0, len(t))
	for key, r := range t {
		rules = append(rules, Rule{Key: key, Placeholder: r.Placeholder, Value: r.Value})
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Key < rules[j].Key
	})
	return rules
}

// DefaultTable returns the two rules applied by the configure tool.
func DefaultTable(license, appName string) Table {
	return Table{
		LicenseKey: {Placeholder: LicensePlaceholder, Value: license},
		AppNameKey: {Placeholder: AppNamePlaceholder, Value: appName},
	}
}

// Stats describes a completed rewrite.
type Stats struct {
	// Lines is the number of lines read, including a final unterminated line.
	Lines int
	// Replaced counts rewritten lines per key.
	Replaced map[string]int
}

// Total returns the number of rewritten lines.
func (s Stats) Total() int {
	total := 0
	for _, n := range s.Replaced {
		total += n
	}
	return total
}

// matcher matches lines of the form
//
//	<ws>KEY<ws>=<ws>["]PLACEHOLDER["]<ws>
//
// comparing key and placeholder as raw bytes. Whitespace is space, tab, CR,
// LF and form feed. Either quote may be missing on its own.
type matcher struct {
	rule Rule
}

func newMatcher(rule Rule) matcher {
	return matcher{rule: rule}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f'
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

// onlyTail reports whether s is an optional quote followed by whitespace.
func onlyTail(s string) bool {
	s = strings.TrimPrefix(s, `"`)
	return skipSpace(s, 0) == len(s)
}

// replace returns line with the placeholder span swapped for the rule value.
// The head up to the opening quote and the tail from the closing quote on are
// copied as found.
func (m matcher) replace(line string) (string, bool) {
	i := skipSpace(line, 0)
	if !strings.HasPrefix(line[i:], m.rule.Key) {
		return "", false
	}
	i = skipSpace(line, i+len(m.rule.Key))
	if i == len(line) || line[i] != '=' {
		return "", false
	}
	i = skipSpace(line, i+1)

	// The placeholder may itself start with a quote, so try with and then
	// without consuming the opening one.
	starts := []int{i}
	if strings.HasPrefix(line[i:], `"`) {
		starts = []int{i + 1, i}
	}
	for _, start := range starts {
		rest, ok := strings.CutPrefix(line[start:], m.rule.Placeholder)
		if ok && onlyTail(rest) {
			return line[:start] + m.rule.Value + rest, true
		}
	}
	return "", false
}

// Rewriter applies a fixed set of rules. It holds no mutable state and may be
// shared between goroutines.
type Rewriter struct {
	matchers []matcher
}

// NewRewriter builds matchers for rules in the order given. For any line the first
// matching rule wins.
func NewRewriter(rules ...Rule) *Rewriter {
	matchers := make([]matcher, 0, len(rules))
	for _, rule := range rules {
		matchers = append(matchers, newMatcher(rule))
	}
	return &Rewriter{matchers: matchers}
}

// Keys returns the configured keys in rule order.
func (rw *Rewriter) Keys() []string {
	keys := make([]string, 0, len(rw.matchers))
	for _, m := range rw.matchers {
		keys = append(keys, m.rule.Key)
	}
	return keys
}

// RewriteLine rewrites a single line without its newline terminator. It
// returns the line unchanged and false when no rule matches.
func (rw *Rewriter) RewriteLine(line string) (string, bool) {
	_, out, ok := rw.rewriteLine(line)
	return out, ok
}

func (rw *Rewriter) rewriteLine(line string) (string, string, bool) {
	for _, m := range rw.matchers {
		if out, ok := m.replace(line); ok {
			return m.rule.Key, out, true
		}
	}
	return "", line, false
}

// Rewrite streams r to w line by line. Line terminators are split off before
// matching and written back as found, so a missing final newline stays
// missing.
func (rw *Rewriter) Rewrite(r io.Reader, w io.Writer) (Stats, error) {
	stats := Stats{Replaced: make(map[string]int)}
	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)

	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return stats, fmt.Errorf("failed to read template: %w", readErr)
		}
		if line == "" && readErr != nil {
			break
		}
		stats.Lines++

		body, newline := strings.CutSuffix(line, "\n")
		key, out, ok := rw.rewriteLine(body)
		if ok {
			stats.Replaced[key]++
		}
		if _, err := writer.WriteString(out); err != nil {
			return stats, fmt.Errorf("failed to write configuration: %w", err)
		}
		if newline {
			if err := writer.WriteByte('\n'); err != nil {
				return stats, fmt.Errorf("failed to write configuration: %w", err)
			}
		}

		if readErr != nil {
			break
		}
	}

	if err := writer.Flush(); err != nil {
		return stats, fmt.Errorf("failed to write configuration: %w", err)
	}
	return stats, nil
}

// Rewrite is a convenience wrapper around NewRewriter(rules...).Rewrite.
func Rewrite(r io.Reader, w io.Writer, rules ...Rule) (Stats, error) {
	return NewRewriter(rules...).Rewrite(r, w)
}

// Unused returns the keys of rules that never fired.
func (rw *Rewriter) Unused(stats Stats) []string {
	var unused []string
	for _, key := range rw.Keys() {
		if stats.Replaced[key] == 0 {
			unused = append(unused, key)
		}
	}
	return unused
}
