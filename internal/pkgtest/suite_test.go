package pkgtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/newrelic/nrinstall/internal/config"
	"github.com/newrelic/nrinstall/internal/logger"
	"github.com/newrelic/nrinstall/internal/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost simulates a Debian machine: dpkg installs and removes files,
// apt-get installs PHP and debconf answers end up in the generated ini.
type fakeHost struct {
	cfg          *config.Config
	files        fstest.MapFS
	selections   string
	phpInstalled bool
	agentLoaded  bool
	failures     map[string]error
	commands     []string
}

func newFakeHost(cfg *config.Config) *fakeHost {
	return &fakeHost{cfg: cfg, files: fstest.MapFS{}, failures: map[string]error{}}
}

func (h *fakeHost) Run(ctx context.Context, stdin io.Reader, name string, args ...string) (string, error) {
	command := strings.TrimSpace(filepath.Base(name) + " " + strings.Join(args, " "))
	h.commands = append(h.commands, command)
	if err, ok := h.failures[command]; ok {
		return "", err
	}

	switch filepath.Base(name) {
	case "debconf-set-selections":
		data, _ := io.ReadAll(stdin)
		h.selections = string(data)
	case "apt-get":
		if len(args) == 3 && args[1] == "install" && args[2] == h.cfg.PHP.CLIPackage {
			h.phpInstalled = true
		}
	case "dpkg":
		h.dpkg(args)
	case "php":
		if !h.phpInstalled {
			return "", &system.CommandError{Name: name, ExitCode: 127}
		}
		modules := "[PHP Modules]\nCore\ndate\n"
		if h.agentLoaded {
			modules += "newrelic\n"
		}
		return modules + "\n[Zend Modules]\n", nil
	}
	return "", nil
}

func (h *fakeHost) dpkg(args []string) {
	switch {
	case args[0] == "-i" && strings.Contains(args[1], "newrelic-daemon_"):
		h.put(h.cfg.DaemonPath, "", 0755)
	case args[0] == "-i" && strings.Contains(args[1], "newrelic-php5_"):
		if h.phpInstalled {
			h.put(h.cfg.PHP.ConfDINI, h.renderINI(), 0644)
			h.agentLoaded = true
		}
	case args[0] == "--purge" && args[1] == "newrelic-daemon":
		delete(h.files, strings.TrimPrefix(h.cfg.DaemonPath, "/"))
	case args[0] == "--purge" && args[1] == "newrelic-php5":
		delete(h.files, strings.TrimPrefix(h.cfg.PHP.ConfDINI, "/"))
		h.agentLoaded = false
	}
}

// renderINI builds the agent ini from the seeded debconf answers.
func (h *fakeHost) renderINI() string {
	var b strings.Builder
	b.WriteString("; generated\n")
	for _, line := range strings.Split(strings.TrimSpace(h.selections), "\n") {
		fields := strings.SplitN(line, " ", 4)
		if len(fields) != 4 {
			continue
		}
		switch {
		case strings.HasSuffix(fields[1], "/license-key"):
			fmt.Fprintf(&b, "newrelic.license = %q\n", fields[3])
		case strings.HasSuffix(fields[1], "/application-name"):
			fmt.Fprintf(&b, "newrelic.appname = %q\n", fields[3])
		}
	}
	return b.String()
}

func (h *fakeHost) put(path, content string, mode fs.FileMode) {
	h.files[strings.TrimPrefix(path, "/")] = &fstest.MapFile{Data: []byte(content), Mode: mode}
}

func (h *fakeHost) Stat(name string) (fs.FileInfo, error) {
	return h.files.Stat(strings.TrimPrefix(name, "/"))
}

func (h *fakeHost) Open(name string) (fs.File, error) {
	return h.files.Open(strings.TrimPrefix(name, "/"))
}

func newTestSuite(t *testing.T) (*Suite, *fakeHost, *bytes.Buffer) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.PackageDir = t.TempDir()
	for _, pkg := range cfg.Packages {
		path := filepath.Join(cfg.PackageDir, pkg+"_4.0.0_amd64.deb")
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}

	host := newFakeHost(cfg)
	logs := &bytes.Buffer{}
	suite := New(cfg,
		WithRunners(host, host),
		WithFileSystem(host),
		WithLogger(logger.NewConsoleLogger(logs, "trace")),
		WithRunID("test-run"),
	)
	return suite, host, logs
}

func TestSuiteRun_AllPass(t *testing.T) {
	suite, host, logs := newTestSuite(t)

	report := suite.Run(context.Background())

	out := report.String()
	assert.True(t, strings.HasPrefix(out, "1..20\n"), out)
	assert.NotContains(t, out, "not ok")
	assert.True(t, report.Passed())
	assert.Equal(t, 20, report.Summary().Passed)

	outcomes := report.Outcomes()
	assert.Equal(t, "set debconf values", outcomes[0].Description)
	assert.Equal(t, "install "+filepath.Join(suite.cfg.PackageDir, "newrelic-php5-common_4.0.0_amd64.deb"), outcomes[1].Description)
	assert.Equal(t, "purge newrelic-php5", outcomes[5].Description)
	assert.Equal(t, "purge newrelic-php5-common", outcomes[7].Description)
	assert.Equal(t, "check daemon removed", outcomes[8].Description)
	assert.Equal(t, "install php5-cli", outcomes[10].Description)
	assert.Equal(t, "newrelic.appname is set", outcomes[17].Description)
	assert.Equal(t, "newrelic module is loaded into PHP", outcomes[19].Description)

	assert.Contains(t, host.selections, "newrelic-php5 newrelic-php5/license-key string 0123456789abcdef0123456789abcdef01234567\n")
	assert.Contains(t, host.selections, "newrelic-php5 newrelic-php5/application-name string Package Test\n")
	assert.Contains(t, host.commands, "apt-get update")

	log := logs.String()
	assert.Contains(t, log, "Starting run test-run: 3 packages")
	assert.Contains(t, log, "[INFO] Installing packages without PHP")
	assert.Contains(t, log, "[INFO] Purging 3 packages")
	assert.Contains(t, log, "[TRACE] debconf: newrelic-php5 newrelic-php5/application-name string Package Test")
	assert.Contains(t, log, "[DEBUG] read 2 keys from /etc/php5/conf.d/newrelic.ini")
	assert.Contains(t, log, "=== Test Summary ===")
	assert.NotContains(t, log, "[WARN]")
	assert.NotContains(t, log, "[ERROR]")
	assert.Equal(t, "test-run", suite.RunID())
}

func TestSuiteRun_FailuresDoNotAbort(t *testing.T) {
	suite, host, logs := newTestSuite(t)
	host.failures["dpkg --purge newrelic-daemon"] = &system.CommandError{
		Name:     "/usr/bin/dpkg",
		ExitCode: 2,
		Output:   "dpkg: error processing package newrelic-daemon",
	}

	report := suite.Run(context.Background())

	assert.Equal(t, 20, report.Len())
	assert.False(t, report.Passed())

	outcomes := report.Outcomes()
	purge := outcomes[6]
	assert.Equal(t, "purge newrelic-daemon", purge.Description)
	assert.False(t, purge.OK)
	assert.Contains(t, purge.Comment, "non-zero status 2")
	assert.Contains(t, purge.Comment, "error processing package newrelic-daemon")

	removed := outcomes[8]
	assert.False(t, removed.OK)
	assert.Contains(t, removed.Comment, "exists")

	assert.Contains(t, report.String(), "7 not ok purge newrelic-daemon\n# dpkg purge newrelic-daemon")
	assert.Contains(t, logs.String(), "Test 7 (purge newrelic-daemon): not ok")
}

func TestSuiteRun_MissingPackageFile(t *testing.T) {
	suite, _, logs := newTestSuite(t)
	require.NoError(t, os.Remove(filepath.Join(suite.cfg.PackageDir, "newrelic-daemon_4.0.0_amd64.deb")))

	report := suite.Run(context.Background())
	outcomes := report.Outcomes()

	assert.Equal(t, 20, report.Len())
	assert.Equal(t, "install newrelic-daemon", outcomes[2].Description)
	assert.False(t, outcomes[2].OK)
	assert.Contains(t, outcomes[2].Comment, "found 0 instances of newrelic-daemon")
	assert.False(t, outcomes[4].OK, "daemon should not be installed")
	assert.Contains(t, report.String(), "3 not ok install newrelic-daemon\n# package file not found")
	assert.Contains(t, logs.String(), "[WARN] available packages: ")
	assert.Contains(t, logs.String(), "newrelic-php5_4.0.0_amd64.deb")
}

func TestSuiteRun_AptUpdateFailure(t *testing.T) {
	suite, host, logs := newTestSuite(t)
	host.failures["apt-get update"] = errors.New("temporary failure resolving archive")

	report := suite.Run(context.Background())
	outcomes := report.Outcomes()

	assert.False(t, outcomes[9].OK)
	assert.True(t, outcomes[10].OK, "php install should still run")
	assert.Equal(t, 1, report.Summary().Failed)
	assert.Contains(t, logs.String(), "[WARN] apt-get update failed, installing from stale package lists: temporary failure resolving archive")
}

func TestSuiteRun_PHPFailure(t *testing.T) {
	suite, host, _ := newTestSuite(t)
	host.failures["php -m"] = errors.New("php crashed")

	report := suite.Run(context.Background())
	outcomes := report.Outcomes()

	assert.True(t, outcomes[17].OK, outcomes[17].Comment)
	assert.False(t, outcomes[19].OK)
	assert.Contains(t, outcomes[19].Comment, "php crashed")
}

func TestSuiteRun_INIMissing(t *testing.T) {
	suite, host, logs := newTestSuite(t)
	host.failures["apt-get -y install php5-cli"] = errors.New("no network")

	report := suite.Run(context.Background())
	outcomes := report.Outcomes()

	assert.False(t, outcomes[10].OK)
	assert.Equal(t, "check newrelic.ini exists", outcomes[16].Description)
	assert.False(t, outcomes[16].OK)
	assert.Equal(t, "Result was invalid", outcomes[16].Comment)
	assert.False(t, outcomes[17].OK)
	assert.Contains(t, outcomes[17].Comment, "failed to open /etc/php5/conf.d/newrelic.ini")

	// Without PHP the module check cannot run and is skipped.
	assert.True(t, outcomes[19].OK)
	assert.True(t, outcomes[19].IsSkip())
	assert.Contains(t, report.String(), "20 ok newrelic module is loaded into PHP # SKIP php5-cli is not installed\n")
	assert.NotContains(t, host.commands, "php -m")
	assert.False(t, report.Passed())
	assert.Contains(t, logs.String(), "[ERROR] php5-cli is not installed")
}

func TestSuiteRun_INIValueMismatch(t *testing.T) {
	suite, host, _ := newTestSuite(t)
	report := suite.Run(context.Background())
	require.True(t, report.Passed())

	// Corrupt the generated file and re-run only the ini checks.
	host.put(suite.cfg.PHP.ConfDINI, "newrelic.appname = \"PHP Application\"\n", 0644)
	suite.checkINI()

	outcomes := suite.Report().Outcomes()
	n := len(outcomes)
	assert.True(t, outcomes[n-3].OK)
	assert.False(t, outcomes[n-2].OK)
	assert.Equal(t, "Result was invalid", outcomes[n-2].Comment)
	assert.False(t, outcomes[n-1].OK)
	assert.Equal(t, "newrelic.license is not set", outcomes[n-1].Comment)
}

func TestNew_Defaults(t *testing.T) {
	suite := New(config.DefaultConfig())
	assert.NotEmpty(t, suite.RunID())
	assert.Equal(t, 0, suite.Report().Len())
}
