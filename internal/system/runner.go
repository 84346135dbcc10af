// Package system wraps the operating system tools used by the package
// installation tests: apt-get, dpkg, debconf-set-selections and php.
//
// Every wrapper runs its tool through a CommandRunner and fails on a
// non-zero exit status, embedding the tool's combined output in the error.
package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) (output string, err error)
}

// CommandError is returned when a command exits with a non-zero status.
type CommandError struct {
	Name     string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with non-zero status %d", e.Name, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += " and output:\n" + out
	}
	return msg
}

// ExecRunner runs commands with os/exec and returns combined stdout/stderr.
type ExecRunner struct {
	// Env replaces the process environment when non-nil.
	Env []string
}

// NewExecRunner creates a runner that inherits the current environment.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// NewNonInteractiveRunner creates a runner for package tools: the
// environment holds only DEBIAN_FRONTEND=noninteractive and the caller's PATH
// so no maintainer script prompts.
func NewNonInteractiveRunner() *ExecRunner {
	return &ExecRunner{Env: []string{
		"DEBIAN_FRONTEND=noninteractive",
		"PATH=" + os.Getenv("PATH"),
	}}
}

// Run executes name with args. A non-zero exit status is reported as a
// *CommandError; failures to start the command are wrapped as-is.
func (r *ExecRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if r.Env != nil {
		cmd.Env = r.Env
	}
	if stdin != nil {
		cmd.Stdin = stdin
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(output), &CommandError{
				Name:     name,
				ExitCode: exitErr.ExitCode(),
				Output:   string(output),
			}
		}
		return string(output), fmt.Errorf("failed to run %s: %w", name, err)
	}
	return string(output), nil
}
