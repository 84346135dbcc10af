package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/newrelic/nrinstall/internal/configure"
	"github.com/newrelic/nrinstall/internal/display"
	"github.com/newrelic/nrinstall/internal/filelock"
	"github.com/spf13/cobra"
)

// NewConfigureCommand creates the configure subcommand
func NewConfigureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure LICENSE-KEY APP-NAME",
		Short: "Fill in newrelic.ini from the shipped template",
		Long: `Read the newrelic.ini template and write it back with the license key
and application name placeholders replaced. Every other byte of the
template is copied unchanged.

By default the template is read from stdin and the result written to
stdout:

  nrinstall configure 0123456789abcdef "My App" < newrelic.ini.template > newrelic.ini

Exit code: 0 on success, 1 on missing arguments or I/O errors`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")
			lockTimeout, _ := cmd.Flags().GetDuration("lock-timeout")
			return runConfigure(cmd, args[0], args[1], input, output, lockTimeout)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringP("input", "i", "", "Template to read (default: stdin)")
	cmd.Flags().StringP("output", "o", "", "File to write atomically (default: stdout)")
	cmd.Flags().Duration("lock-timeout", 30*time.Second, "How long to wait for another writer of --output")

	return cmd
}

func runConfigure(cmd *cobra.Command, license, appName, input, output string, lockTimeout time.Duration) error {
	in := cmd.InOrStdin()
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("failed to open template: %w", err)
		}
		defer f.Close()
		in = f
	}

	rw := configure.NewRewriter(configure.DefaultTable(license, appName).Rules()...)

	var stats configure.Stats
	write := func(w io.Writer) error {
		var err error
		stats, err = rw.Rewrite(in, w)
		return err
	}

	var err error
	if output != "" {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, lockTimeout)
		defer cancel()
		err = filelock.LockAndWrite(ctx, output, write)
	} else {
		err = write(cmd.OutOrStdout())
	}
	if err != nil {
		return err
	}

	if unused := rw.Unused(stats); len(unused) > 0 {
		display.WarnUnreplacedKeys(unused).Display(cmd.ErrOrStderr())
	}
	return nil
}
