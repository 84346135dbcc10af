// Package pkgtest runs the end-to-end installation test for the agent's
// Debian packages and records every check in a TAP report.
//
// The sequence installs the packages without PHP present, purges them,
// installs the PHP CLI, installs the packages again and then verifies the
// daemon binary, the generated newrelic.ini and that PHP loads the agent.
// No check aborts the run: failures become "not ok" lines and the run
// continues so the report is always complete.
package pkgtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/nrinstall/internal/config"
	"github.com/newrelic/nrinstall/internal/fileutil"
	"github.com/newrelic/nrinstall/internal/ini"
	"github.com/newrelic/nrinstall/internal/logger"
	"github.com/newrelic/nrinstall/internal/system"
	"github.com/newrelic/nrinstall/internal/tap"
)

// Suite holds the collaborators for one test run.
type Suite struct {
	cfg       *config.Config
	pkgRunner system.CommandRunner
	phpRunner system.CommandRunner
	fs        fileutil.FileSystem
	log       *logger.ConsoleLogger
	runID     string
	report    *tap.Report
}

// Option configures a Suite.
type Option func(*Suite)

// WithRunners sets the runner used for package tools (apt-get, dpkg,
// debconf-set-selections) and the runner used for php.
func WithRunners(pkgRunner, phpRunner system.CommandRunner) Option {
	return func(s *Suite) {
		s.pkgRunner = pkgRunner
		s.phpRunner = phpRunner
	}
}

// WithFileSystem replaces the filesystem used for installed-file checks.
func WithFileSystem(fsys fileutil.FileSystem) Option {
	return func(s *Suite) {
		s.fs = fsys
	}
}

// WithLogger sets the progress logger.
func WithLogger(log *logger.ConsoleLogger) Option {
	return func(s *Suite) {
		s.log = log
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(s *Suite) {
		s.runID = id
	}
}

// New creates a Suite for cfg. Without options it runs real commands against
// the real filesystem and discards log output.
func New(cfg *config.Config, opts ...Option) *Suite {
	s := &Suite{
		cfg:       cfg,
		pkgRunner: system.NewNonInteractiveRunner(),
		phpRunner: system.NewExecRunner(),
		fs:        fileutil.OSFileSystem{},
		log:       logger.NewConsoleLogger(nil, cfg.LogLevel),
		runID:     uuid.New().String(),
		report:    tap.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunID returns the run identifier.
func (s *Suite) RunID() string {
	return s.runID
}

// Report returns the outcomes recorded so far.
func (s *Suite) Report() *tap.Report {
	return s.report
}

// Run executes the whole installation sequence and returns the report.
func (s *Suite) Run(ctx context.Context) *tap.Report {
	start := time.Now()
	s.log.LogRunStart(s.runID, s.cfg.Packages)

	apt := system.NewApt(s.pkgRunner)

	// Without PHP: the packages must install and purge cleanly.
	s.log.LogInfo("Installing packages without PHP")
	s.installPackages(ctx)
	s.log.Infof("Purging %d packages", len(s.cfg.Packages))
	s.purgePackages(ctx)

	s.log.Infof("Installing %s", s.cfg.PHP.CLIPackage)
	if o := s.attempt("apt-get update", func() error {
		return apt.Update(ctx)
	}); !o.OK {
		s.log.Warnf("apt-get update failed, installing from stale package lists: %s", o.Comment)
	}
	phpInstalled := s.attempt("install "+s.cfg.PHP.CLIPackage, func() error {
		return apt.Install(ctx, s.cfg.PHP.CLIPackage)
	}).OK
	if !phpInstalled {
		s.log.LogError(s.cfg.PHP.CLIPackage + " is not installed; the agent ini will not be generated")
	}

	// With PHP: the agent ini must be generated from the debconf answers.
	s.log.LogInfo("Installing packages with PHP")
	s.installPackages(ctx)
	s.checkINI()
	if phpInstalled {
		s.checkPHPModule(ctx)
	} else {
		s.report.Skip("newrelic module is loaded into PHP", s.cfg.PHP.CLIPackage+" is not installed")
		s.logLast()
	}

	s.log.LogSummary(s.report.Summary(), time.Since(start))
	return s.report
}

func (s *Suite) installPackages(ctx context.Context) {
	s.attempt("set debconf values", func() error {
		return s.setDebconfValues(ctx)
	})

	dpkg := system.NewDpkg(s.pkgRunner)
	for _, pkg := range s.cfg.Packages {
		file, err := fileutil.FindPackageFile(s.cfg.PackageDir, pkg)
		if err != nil {
			s.report.Fail("install "+pkg, err)
			s.logLast()
			s.logAvailablePackages()
			continue
		}
		s.log.LogDebug("using package file " + file)
		s.attempt("install "+file, func() error {
			return dpkg.Install(ctx, file)
		})
	}

	s.attempt("check daemon install", func() error {
		return fileutil.IsExecutable(s.fs, s.cfg.DaemonPath)
	})
}

func (s *Suite) logAvailablePackages() {
	files, err := fileutil.ListPackageFiles(s.cfg.PackageDir)
	if err != nil {
		s.log.LogWarn(err.Error())
		return
	}
	if len(files) == 0 {
		s.log.LogWarn("no .deb files in " + s.cfg.PackageDir)
		return
	}
	s.log.LogWarn("available packages: " + strings.Join(files, ", "))
}

func (s *Suite) purgePackages(ctx context.Context) {
	dpkg := system.NewDpkg(s.pkgRunner)
	for i := len(s.cfg.Packages) - 1; i >= 0; i-- {
		pkg := s.cfg.Packages[i]
		s.attempt("purge "+pkg, func() error {
			return dpkg.Purge(ctx, pkg)
		})
	}

	s.attempt("check daemon removed", func() error {
		return fileutil.NotExists(s.fs, s.cfg.DaemonPath)
	})
}

func (s *Suite) setDebconfValues(ctx context.Context) error {
	d := system.NewDebconf(s.pkgRunner)
	pkg := s.cfg.Debconf.Package
	d.Set(pkg, pkg+"/license-key", "string", s.cfg.Debconf.LicenseKey)
	d.Set(pkg, pkg+"/application-name", "string", s.cfg.Debconf.AppName)
	for _, sel := range d.Selections() {
		s.log.LogTrace("debconf: " + sel.String())
	}
	return d.Write(ctx)
}

func (s *Suite) checkINI() {
	path := s.cfg.PHP.ExpectedINIPath(func(p string) bool {
		return fileutil.Exists(s.fs, p)
	})
	s.log.Debugf("expecting agent configuration at %s", path)

	s.check("check newrelic.ini exists", func() bool {
		return fileutil.Exists(s.fs, path)
	})

	values, loadErr := ini.Load(s.fs, path)
	if loadErr == nil {
		s.log.Debugf("read %d keys from %s", values.Len(), path)
	}
	s.expectINIValue(values, loadErr, "newrelic.appname", s.cfg.Debconf.AppName)
	s.expectINIValue(values, loadErr, "newrelic.license", s.cfg.Debconf.LicenseKey)
}

func (s *Suite) expectINIValue(values *ini.File, loadErr error, key, want string) {
	s.logResult(tap.AttemptResult(s.report, key+" is set", func() (string, error) {
		if loadErr != nil {
			return "", loadErr
		}
		got, ok := values.Lookup(key)
		if !ok {
			return "", fmt.Errorf("%s is not set", key)
		}
		return got, nil
	}, func(got string) bool {
		return got == want
	}))
}

func (s *Suite) checkPHPModule(ctx context.Context) {
	s.logResult(tap.AttemptResult(s.report, "newrelic module is loaded into PHP", func() (bool, error) {
		return system.HasPHPModule(ctx, s.phpRunner, s.cfg.PHP.Binary, "newrelic")
	}, func(loaded bool) bool {
		return loaded
	}))
}

func (s *Suite) attempt(description string, action func() error) tap.Outcome {
	return s.logResult(s.report.Attempt(description, action))
}

func (s *Suite) check(description string, cond func() bool) tap.Outcome {
	return s.logResult(s.report.Check(description, cond))
}

// logResult logs o as the most recently recorded outcome.
func (s *Suite) logResult(o tap.Outcome) tap.Outcome {
	s.log.LogOutcome(s.report.Len(), o)
	return o
}

func (s *Suite) logLast() {
	outcomes := s.report.Outcomes()
	s.logResult(outcomes[len(outcomes)-1])
}
