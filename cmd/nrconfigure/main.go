// Command nrconfigure reads the newrelic.ini template on stdin and writes
// it to stdout with the license key and application name filled in.
//
//	nrconfigure LICENSE-KEY APP-NAME < newrelic.ini.template > newrelic.ini
package main

import (
	"fmt"
	"os"

	"github.com/newrelic/nrinstall/internal/cmd"
	"github.com/spf13/cobra"
)

func newCommand() *cobra.Command {
	configureCmd := cmd.NewConfigureCommand()
	configureCmd.Use = "nrconfigure LICENSE-KEY APP-NAME"
	configureCmd.Version = cmd.Version
	configureCmd.SilenceErrors = true
	return configureCmd
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
