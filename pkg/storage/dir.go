// Package storage keeps generated files on local disk and issues expiring
// download tokens for them.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidName is returned for names that would escape the base directory.
var ErrInvalidName = errors.New("storage: invalid file name")

// Dir stores flat files under a single base directory.
type Dir struct {
	base string
}

// NewDir creates base if needed.
func NewDir(base string) (*Dir, error) {
	if base == "" {
		base = "./exports"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", base, err)
	}
	return &Dir{base: base}, nil
}

// Write stores data under name, replacing any previous file.
func (d *Dir) Write(name string, data []byte) error {
	path, err := d.path(name)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// Read returns the content of name. Missing files report os.ErrNotExist.
func (d *Dir) Read(name string) ([]byte, error) {
	path, err := d.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Sweep removes files last modified before now-maxAge and returns how many
// were deleted.
func (d *Dir) Sweep(now time.Time, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(d.base)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", d.base, err)
	}
	cutoff := now.Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(d.base, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (d *Dir) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(d.base, name), nil
}
