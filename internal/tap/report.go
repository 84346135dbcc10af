package tap

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrResultInvalid is the failure recorded when a result check rejects the
// value returned by an attempted action.
var ErrResultInvalid = errors.New("Result was invalid")

// Report accumulates outcomes in the order they are recorded.
// A Report is not safe for concurrent use.
type Report struct {
	outcomes []Outcome
}

// New returns an empty report.
func New() *Report {
	return &Report{}
}

// Add appends an outcome.
func (r *Report) Add(o Outcome) {
	r.outcomes = append(r.outcomes, o)
}

// Ok records a passing test.
func (r *Report) Ok(description string) {
	r.Add(Outcome{OK: true, Description: description})
}

// NotOk records a failing test.
func (r *Report) NotOk(description string) {
	r.Add(Outcome{OK: false, Description: description})
}

// Skip records a skipped test, which counts as passing.
func (r *Report) Skip(description, reason string) {
	r.Add(Outcome{OK: true, Description: description, Directive: withReason(DirectiveSkip, reason)})
}

// Todo records a test that is expected to fail.
func (r *Report) Todo(description, reason string) {
	r.Add(Outcome{OK: false, Description: description, Directive: withReason(DirectiveTodo, reason)})
}

// Fail records a failing test with err's message as the comment. A nil err
// records the failure without a comment.
func (r *Report) Fail(description string, err error) {
	o := Outcome{OK: false, Description: description}
	if err != nil {
		o.Comment = err.Error()
	}
	r.Add(o)
}

// Attempt runs action and records its outcome: ok if it returns nil, not ok
// with the error message as comment otherwise. A panic inside action is
// recorded as a failure. Attempt never returns the failure to the caller;
// the returned Outcome is what was recorded.
func (r *Report) Attempt(description string, action func() error) Outcome {
	res := Run(func() (struct{}, error) {
		return struct{}{}, action()
	})
	return r.record(description, res.Err)
}

// AttemptResult runs action and records its outcome. When valid is non-nil
// it is applied to the returned value, and a false result is recorded as a
// failure with the comment "Result was invalid".
func AttemptResult[T any](r *Report, description string, action func() (T, error), valid func(T) bool) Outcome {
	res := Run(action)
	if res.OK() && valid != nil && !valid(res.Value) {
		res.Err = ErrResultInvalid
	}
	return r.record(description, res.Err)
}

// Check records whether cond returned true. It is shorthand for
// AttemptResult with a bool action and an identity check.
func (r *Report) Check(description string, cond func() bool) Outcome {
	return AttemptResult(r, description, func() (bool, error) {
		return cond(), nil
	}, func(ok bool) bool { return ok })
}

func (r *Report) record(description string, err error) Outcome {
	o := Outcome{OK: err == nil, Description: description}
	if err != nil {
		o.Comment = err.Error()
	}
	r.Add(o)
	return o
}

// Len returns the number of recorded outcomes.
func (r *Report) Len() int {
	return len(r.outcomes)
}

// Outcomes returns a copy of the recorded outcomes.
func (r *Report) Outcomes() []Outcome {
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Summary counts recorded outcomes by kind.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
	Todo    int
}

// Summary returns outcome counts. Skipped tests count as passed and TODO
// tests as failed, matching their protocol status.
func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.outcomes)}
	for _, o := range r.outcomes {
		if o.OK {
			s.Passed++
		} else {
			s.Failed++
		}
		switch {
		case o.IsSkip():
			s.Skipped++
		case o.IsTodo():
			s.Todo++
		}
	}
	return s
}

// Passed reports whether every outcome passed or is marked TODO.
func (r *Report) Passed() bool {
	for _, o := range r.outcomes {
		if !o.OK && !o.IsTodo() {
			return false
		}
	}
	return true
}

// String renders the report: a "1..N" plan line followed by one numbered
// line per outcome and a final newline.
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString("1..")
	b.WriteString(strconv.Itoa(len(r.outcomes)))
	for i, o := range r.outcomes {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" ")
		b.WriteString(o.String())
	}
	b.WriteString("\n")
	return b.String()
}

// WriteTo writes the rendered report to w.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.String())
	if err != nil {
		return int64(n), fmt.Errorf("failed to write report: %w", err)
	}
	return int64(n), nil
}
