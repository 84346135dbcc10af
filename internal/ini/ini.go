// Package ini extracts flat key = value assignments from an agent ini file.
//
// It is deliberately minimal: sections are ignored, escaped quotes are not
// supported and later assignments overwrite earlier ones.
package ini

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"regexp"
)

var assignment = regexp.MustCompile(`^\s*([^;\s=]+)\s*=\s*"?([^"]*)"?\s*$`)

// File holds the values read from an ini file.
type File struct {
	values map[string]string
}

// New returns an empty File.
func New() *File {
	return &File{values: make(map[string]string)}
}

// Opener opens files by absolute path.
type Opener interface {
	Open(name string) (fs.File, error)
}

// Load reads and parses the file at path from fsys.
func Load(fsys Opener, path string) (*File, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	file := New()
	if err := file.Parse(f); err != nil {
		return nil, err
	}
	return file, nil
}

// Parse reads assignments from r, adding them to f.
func (f *File) Parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if m := assignment.FindStringSubmatch(scanner.Text()); m != nil {
			f.values[m[1]] = m[2]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read ini file: %w", err)
	}
	return nil
}

// Lookup returns the value assigned to key and whether it was present.
func (f *File) Lookup(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (f *File) Len() int {
	return len(f.values)
}
