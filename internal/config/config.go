// Package config loads the package test configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PHPConfig describes the PHP installation the agent is tested against
type PHPConfig struct {
	// Binary is the PHP CLI used to list loaded modules
	Binary string `yaml:"binary"`

	// CLIPackage is the apt package that provides Binary
	CLIPackage string `yaml:"cli_package"`

	// EnmodPath is the php5enmod helper; when present the agent ini is
	// expected under mods-available instead of conf.d
	EnmodPath string `yaml:"enmod_path"`

	// ModsAvailableINI is the expected agent ini path when EnmodPath exists
	ModsAvailableINI string `yaml:"mods_available_ini"`

	// ConfDINI is the expected agent ini path otherwise
	ConfDINI string `yaml:"conf_d_ini"`
}

// DebconfConfig holds the answers pre-seeded before installing the agent
type DebconfConfig struct {
	// Package owning the debconf questions
	Package string `yaml:"package"`

	// LicenseKey is seeded as <package>/license-key
	LicenseKey string `yaml:"license_key"`

	// AppName is seeded as <package>/application-name
	AppName string `yaml:"app_name"`
}

// Config represents package test configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Timeout bounds the whole test run (0 = no timeout)
	Timeout time.Duration `yaml:"timeout"`

	// PackageDir is searched for <package>_*deb files
	PackageDir string `yaml:"package_dir"`

	// Packages are installed in order and purged in reverse
	Packages []string `yaml:"packages"`

	// DaemonPath is the daemon binary the packages install
	DaemonPath string `yaml:"daemon_path"`

	// PHP contains PHP installation settings
	PHP PHPConfig `yaml:"php"`

	// Debconf contains pre-seeded answers
	Debconf DebconfConfig `yaml:"debconf"`
}

// DefaultConfig returns a Config matching the Debian package layout
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		Timeout:    30 * time.Minute,
		PackageDir: "/packages",
		Packages:   []string{"newrelic-php5-common", "newrelic-daemon", "newrelic-php5"},
		DaemonPath: "/usr/bin/newrelic-daemon",
		PHP: PHPConfig{
			Binary:           "/usr/bin/php",
			CLIPackage:       "php5-cli",
			EnmodPath:        "/usr/sbin/php5enmod",
			ModsAvailableINI: "/etc/php5/mods-available/newrelic.ini",
			ConfDINI:         "/etc/php5/conf.d/newrelic.ini",
		},
		Debconf: DebconfConfig{
			Package:    "newrelic-php5",
			LicenseKey: "0123456789abcdef0123456789abcdef01234567",
			AppName:    "Package Test",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Timeout is a string here so "30m" style durations parse.
	// Nested sections decode onto the defaults, keeping fields the file omits.
	type yamlConfig struct {
		LogLevel   string        `yaml:"log_level"`
		Timeout    string        `yaml:"timeout"`
		PackageDir string        `yaml:"package_dir"`
		Packages   []string      `yaml:"packages"`
		DaemonPath string        `yaml:"daemon_path"`
		PHP        PHPConfig     `yaml:"php"`
		Debconf    DebconfConfig `yaml:"debconf"`
	}

	yamlCfg := yamlConfig{PHP: cfg.PHP, Debconf: cfg.Debconf}
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.PackageDir != "" {
		cfg.PackageDir = yamlCfg.PackageDir
	}
	if yamlCfg.Packages != nil {
		cfg.Packages = yamlCfg.Packages
	}
	if yamlCfg.DaemonPath != "" {
		cfg.DaemonPath = yamlCfg.DaemonPath
	}
	cfg.PHP = yamlCfg.PHP
	cfg.Debconf = yamlCfg.Debconf

	return cfg, nil
}

// ExpectedINIPath returns where the agent package should have installed its
// ini file: mods-available when the enmod helper exists, conf.d otherwise.
func (p PHPConfig) ExpectedINIPath(exists func(path string) bool) string {
	if p.EnmodPath != "" && exists(p.EnmodPath) {
		return p.ModsAvailableINI
	}
	return p.ConfDINI
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(logLevel *string, timeout *time.Duration, packageDir *string) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if packageDir != nil {
		c.PackageDir = *packageDir
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if c.PackageDir == "" {
		return fmt.Errorf("package_dir cannot be empty")
	}
	if len(c.Packages) == 0 {
		return fmt.Errorf("packages cannot be empty")
	}
	for i, pkg := range c.Packages {
		if pkg == "" {
			return fmt.Errorf("packages[%d] cannot be empty", i)
		}
	}
	if c.DaemonPath == "" {
		return fmt.Errorf("daemon_path cannot be empty")
	}

	if c.PHP.Binary == "" {
		return fmt.Errorf("php.binary cannot be empty")
	}
	if c.PHP.ModsAvailableINI == "" || c.PHP.ConfDINI == "" {
		return fmt.Errorf("php.mods_available_ini and php.conf_d_ini must both be set")
	}

	if c.Debconf.Package == "" {
		return fmt.Errorf("debconf.package cannot be empty")
	}

	return nil
}
