package system

import (
	"context"
	"fmt"
	"strings"
)

// Default tool locations.
const (
	AptGetPath = "/usr/bin/apt-get"
	DpkgPath   = "/usr/bin/dpkg"
)

// Apt wraps the apt-get operations used by the tests.
type Apt struct {
	Runner CommandRunner
	Path   string
}

// NewApt returns an Apt using the default apt-get path.
func NewApt(runner CommandRunner) *Apt {
	return &Apt{Runner: runner, Path: AptGetPath}
}

// Install installs the given packages.
func (a *Apt) Install(ctx context.Context, packages ...string) error {
	return a.run(ctx, append([]string{"-y", "install"}, packages...)...)
}

// Purge purges the given packages.
func (a *Apt) Purge(ctx context.Context, packages ...string) error {
	return a.run(ctx, append([]string{"-y", "purge"}, packages...)...)
}

// Update refreshes the package index.
func (a *Apt) Update(ctx context.Context) error {
	return a.run(ctx, "update")
}

func (a *Apt) run(ctx context.Context, args ...string) error {
	if _, err := a.Runner.Run(ctx, nil, a.Path, args...); err != nil {
		return fmt.Errorf("apt-get %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

// Dpkg wraps the dpkg operations used by the tests.
type Dpkg struct {
	Runner CommandRunner
	Path   string
}

// NewDpkg returns a Dpkg using the default dpkg path.
func NewDpkg(runner CommandRunner) *Dpkg {
	return &Dpkg{Runner: runner, Path: DpkgPath}
}

// Install installs a package file.
func (d *Dpkg) Install(ctx context.Context, filename string) error {
	if _, err := d.Runner.Run(ctx, nil, d.Path, "-i", filename); err != nil {
		return fmt.Errorf("dpkg install %s: %w", filename, err)
	}
	return nil
}

// Purge removes a package and its configuration.
func (d *Dpkg) Purge(ctx context.Context, pkg string) error {
	if _, err := d.Runner.Run(ctx, nil, d.Path, "--purge", pkg); err != nil {
		return fmt.Errorf("dpkg purge %s: %w", pkg, err)
	}
	return nil
}
