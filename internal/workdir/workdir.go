// Package workdir manages the request-scoped directory that holds every
// intermediate file of one mix.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Dir is a temporary directory removed by Close.
type Dir struct {
	root string
	once sync.Once
	err  error
}

// New creates a fresh directory under parent. An empty parent means
// os.TempDir().
func New(parent, prefix string) (*Dir, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("create work dir parent: %w", err)
		}
	}
	root, err := os.MkdirTemp(parent, prefix+"-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string { return d.root }

// Path joins elem onto the root.
func (d *Dir) Path(elem ...string) string {
	return filepath.Join(append([]string{d.root}, elem...)...)
}

// Mkdir creates a subdirectory and returns its path.
func (d *Dir) Mkdir(name string) (string, error) {
	p := d.Path(name)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	return p, nil
}

// Close removes the directory and everything in it. Safe to call repeatedly.
func (d *Dir) Close() error {
	d.once.Do(func() {
		d.err = os.RemoveAll(d.root)
	})
	return d.err
}
