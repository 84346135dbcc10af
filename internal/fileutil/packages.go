// Package fileutil locates built package files and probes installed files.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ErrPackageNotFound is returned when a package does not have exactly one
// matching file.
var ErrPackageNotFound = errors.New("package file not found")

// FindPackageFile returns the single "<pkg>_*deb" file in dir. Zero or
// several matches are an error, since installing the wrong build would make
// the test meaningless.
func FindPackageFile(dir, pkg string) (string, error) {
	pattern := filepath.Join(dir, pkg+"_*deb")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid package pattern %q: %w", pattern, err)
	}
	if len(files) != 1 {
		return "", fmt.Errorf("%w: found %d instances of %s packages in %s; expected 1",
			ErrPackageNotFound, len(files), pkg, dir)
	}
	return files[0], nil
}

// ListPackageFiles returns every .deb file in dir, sorted.
func ListPackageFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.deb"))
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// FileSystem is the subset of filesystem access the package checks need.
// Names are absolute paths.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	Open(name string) (fs.File, error)
}

// OSFileSystem uses the real filesystem.
type OSFileSystem struct{}

// Stat calls os.Stat.
func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// Open calls os.Open.
func (OSFileSystem) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// Exists reports whether path exists in fsys.
func Exists(fsys FileSystem, path string) bool {
	_, err := fsys.Stat(path)
	return err == nil
}

// IsExecutable returns an error unless path exists, is a regular file and
// has at least one execute bit set.
func IsExecutable(fsys FileSystem, path string) error {
	info, err := fsys.Stat(path)
	if err != nil {
		return fmt.Errorf("%s isn't installed: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s isn't a regular file", path)
	}
	if info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("%s isn't executable", path)
	}
	return nil
}

// NotExists returns an error if path exists.
func NotExists(fsys FileSystem, path string) error {
	if Exists(fsys, path) {
		return fmt.Errorf("%s exists", path)
	}
	return nil
}
