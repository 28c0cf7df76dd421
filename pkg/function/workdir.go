package function

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WorkDir is the working context of a hosted module. Relative paths used by the module
// resolve against it instead of the bridge's own location. It replaces a process-wide
// chdir: the value is passed to the module with every request and never mutated.
type WorkDir struct {
	path string
	root *os.Root
}

// OpenWorkDir roots a working context at dir. The directory must exist.
func OpenWorkDir(dir string) (*WorkDir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory %s: %w", dir, err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, err
	}
	return &WorkDir{path: abs, root: root}, nil
}

// Path returns the absolute path of the working context.
func (d *WorkDir) Path() string {
	return d.path
}

// Resolve turns a module-relative name into an absolute path. Absolute names are returned as is.
func (d *WorkDir) Resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.path, name)
}

// Open opens a file inside the working context. Names escaping the root are rejected.
func (d *WorkDir) Open(name string) (*os.File, error) {
	return d.root.Open(name)
}

func (d *WorkDir) ReadFile(name string) ([]byte, error) {
	f, err := d.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Stat reports file info for a name inside the working context.
func (d *WorkDir) Stat(name string) (fs.FileInfo, error) {
	return d.root.Stat(name)
}

func (d *WorkDir) FS() fs.FS {
	return d.root.FS()
}

func (d *WorkDir) Close() error {
	if d == nil || d.root == nil {
		return nil
	}
	return d.root.Close()
}
