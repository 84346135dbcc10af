package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/nrinstall/internal/config"
	"github.com/newrelic/nrinstall/internal/logger"
	"github.com/newrelic/nrinstall/internal/pkgtest"
	"github.com/newrelic/nrinstall/internal/tap"
	"github.com/spf13/cobra"
)

const (
	formatTAP   = "tap"
	formatJUnit = "junit"
)

// NewPkgtestCommand creates the pkgtest subcommand
func NewPkgtestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkgtest",
		Short: "Run the Debian package install test",
		Long: `Install, purge and reinstall the agent packages, then check the daemon
binary, the generated newrelic.ini and that PHP loads the agent.

Every check is reported; a failing check never stops the run. The report
is written to stdout as TAP (default) or JUnit XML, and progress is
logged to stderr.

Exit code: 0 if every check passed, 1 otherwise`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPkgtest(cmd, nil)
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("config", "", "Path to config file (default: built-in settings)")
	cmd.Flags().String("format", formatTAP, "Report format: tap or junit")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("timeout", "", "Maximum run time (e.g., 30m, 1h)")
	cmd.Flags().String("package-dir", "", "Directory holding the built .deb files")

	return cmd
}

// runPkgtest runs the suite with the flags from cmd. Extra suite options are
// applied after the defaults so tests can substitute the host.
func runPkgtest(cmd *cobra.Command, opts []pkgtest.Option) error {
	cfg, err := pkgtestConfig(cmd)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format != formatTAP && format != formatJUnit {
		return fmt.Errorf("invalid format %q, must be one of: %s, %s", format, formatTAP, formatJUnit)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	suite := pkgtest.New(cfg, append([]pkgtest.Option{pkgtest.WithLogger(log)}, opts...)...)
	started := time.Now()
	report := suite.Run(ctx)

	out := cmd.OutOrStdout()
	switch format {
	case formatJUnit:
		err = report.WriteJUnit(out, tap.JUnitOptions{
			Suite:     "nrinstall-pkgtest",
			Timestamp: started,
			Properties: map[string]string{
				"run_id":      suite.RunID(),
				"package_dir": cfg.PackageDir,
			},
		})
	default:
		_, err = report.WriteTo(out)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if !report.Passed() {
		summary := report.Summary()
		return fmt.Errorf("%d of %d checks failed", summary.Failed, summary.Total)
	}
	return nil
}

func pkgtestConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	var logLevel, packageDir *string
	var timeout *time.Duration
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		logLevel = &v
	}
	if cmd.Flags().Changed("package-dir") {
		v, _ := cmd.Flags().GetString("package-dir")
		packageDir = &v
	}
	if cmd.Flags().Changed("timeout") {
		v, _ := cmd.Flags().GetString("timeout")
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", v, err)
		}
		timeout = &d
	}
	cfg.MergeWithFlags(logLevel, timeout, packageDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
