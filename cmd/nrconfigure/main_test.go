package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestStandaloneConfigure(t *testing.T) {
	configureCmd := newCommand()

	var stdout, stderr bytes.Buffer
	configureCmd.SetIn(strings.NewReader("newrelic.license = REPLACE_WITH_REAL_KEY\n"))
	configureCmd.SetOut(&stdout)
	configureCmd.SetErr(&stderr)
	configureCmd.SetArgs([]string{"abc123", "My App"})

	if err := configureCmd.Execute(); err != nil {
		t.Fatalf("Execute() returned error: %v", err)
	}
	if stdout.String() != "newrelic.license = abc123\n" {
		t.Errorf("Unexpected output %q", stdout.String())
	}
}

func TestStandaloneConfigure_RequiresTwoArgs(t *testing.T) {
	configureCmd := newCommand()

	var stdout, stderr bytes.Buffer
	configureCmd.SetIn(strings.NewReader(""))
	configureCmd.SetOut(&stdout)
	configureCmd.SetErr(&stderr)
	configureCmd.SetArgs([]string{"abc123"})

	err := configureCmd.Execute()
	if err == nil {
		t.Fatal("Expected error with one argument")
	}
	if !strings.Contains(err.Error(), "requires at least 2 arg(s)") {
		t.Errorf("Unexpected error %v", err)
	}
	// main reports the error; the command itself must stay quiet.
	if strings.Contains(stderr.String(), "Error:") {
		t.Errorf("Error printed by the command as well: %q", stderr.String())
	}
}
