package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for nrinstall
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nrinstall",
		Short: "Configure and test New Relic PHP agent installs",
		Long: `nrinstall fills in the license key and application name in the
agent's newrelic.ini template, and drives the end-to-end Debian package
test, reporting every check in Test Anything Protocol (TAP) form.`,
		Version: Version,
		// main prints the returned error; usage stays quiet on errors
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewConfigureCommand())
	cmd.AddCommand(NewPkgtestCommand())

	return cmd
}
