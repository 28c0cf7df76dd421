// Package loader resolves the single function module a bridge instance hosts.
//
// The module lives in a conventional directory ("fn" by default). The loader tries, in
// order, a statically linked entry point, a Go plugin (fn.so), a Lua script (fn.lua) and
// an executable (fn.sh or fn). The directory becomes the module's working context; the
// process working directory is left untouched.
package loader

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/3s-rg-codes/fnbridge/pkg/function"
)

const DefaultLocation = "fn"

// Kind identifies where an entry point came from.
type Kind string

const (
	KindStatic     Kind = "static"
	KindPlugin     Kind = "plugin"
	KindLua        Kind = "lua"
	KindExecutable Kind = "executable"
)

const (
	pluginFile = "fn.so"
	luaFile    = "fn.lua"
)

var executableFiles = []string{"fn.sh", "fn"}

// Module is a loaded function module. Exactly one is bound per bridge instance and it
// is shared read-only by all requests.
type Module struct {
	Name       string
	Kind       Kind
	Entry      any
	Convention function.Convention
	WorkDir    *function.WorkDir

	closer io.Closer
}

// Close releases the module's working context and any interpreter it holds.
func (m *Module) Close() error {
	var errs []error
	if m.closer != nil {
		errs = append(errs, m.closer.Close())
	}
	errs = append(errs, m.WorkDir.Close())
	return errors.Join(errs...)
}

type Options struct {
	// BaseDir is the directory Location is resolved against. Defaults to ".".
	BaseDir string
	// Location is the conventional module directory. Defaults to DefaultLocation.
	Location string
	// Static is a statically linked entry point. It wins over anything on disk.
	Static any
	// Convention overrides detection. ConventionAuto runs function.Detect once.
	Convention function.Convention
	Logger     *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.BaseDir == "" {
		o.BaseDir = "."
	}
	if o.Location == "" {
		o.Location = DefaultLocation
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Dir returns the absolute-or-relative module directory the options point at.
func (o Options) Dir() string {
	o.applyDefaults()
	if filepath.IsAbs(o.Location) {
		return o.Location
	}
	return filepath.Join(o.BaseDir, o.Location)
}

// Load resolves the module once. It fails with a *ModuleNotFoundError when nothing
// loadable sits at the location; callers must treat that as fatal.
func Load(ctx context.Context, opts Options) (*Module, error) {
	opts.applyDefaults()
	dir := opts.Dir()
	logger := opts.Logger.With("location", dir)

	info, statErr := os.Stat(dir)
	dirOK := statErr == nil && info.IsDir()

	if opts.Static != nil {
		wdPath := dir
		if !dirOK {
			// statically linked modules may ship without a directory
			wdPath = opts.BaseDir
		}
		wd, err := function.OpenWorkDir(wdPath)
		if err != nil {
			return nil, &ModuleLoadError{Path: wdPath, Kind: KindStatic, Cause: err}
		}
		return finish(&Module{Name: "static", Kind: KindStatic, Entry: opts.Static, WorkDir: wd}, opts.Convention, logger)
	}

	if !dirOK {
		if statErr == nil {
			statErr = &fs.PathError{Op: "open", Path: dir, Err: errors.New("not a directory")}
		}
		return nil, &ModuleNotFoundError{Location: dir, Cause: statErr}
	}

	wd, err := function.OpenWorkDir(dir)
	if err != nil {
		return nil, &ModuleNotFoundError{Location: dir, Cause: err}
	}

	m, err := resolve(ctx, wd, logger)
	if err != nil {
		_ = wd.Close()
		return nil, err
	}
	return finish(m, opts.Convention, logger)
}

func resolve(_ context.Context, wd *function.WorkDir, logger *slog.Logger) (*Module, error) {
	if exists(wd, pluginFile) {
		entry, err := openPlugin(wd.Resolve(pluginFile))
		if err != nil {
			return nil, &ModuleLoadError{Path: wd.Resolve(pluginFile), Kind: KindPlugin, Cause: err}
		}
		return &Module{Name: pluginFile, Kind: KindPlugin, Entry: entry, WorkDir: wd}, nil
	}

	if exists(wd, luaFile) {
		lm, err := openLua(wd, luaFile)
		if err != nil {
			return nil, &ModuleLoadError{Path: wd.Resolve(luaFile), Kind: KindLua, Cause: err}
		}
		return &Module{Name: luaFile, Kind: KindLua, Entry: lm.entry(), Convention: lm.convention, WorkDir: wd, closer: lm}, nil
	}

	for _, name := range executableFiles {
		info, err := wd.Stat(name)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Mode().Perm()&0o111 == 0 {
			logger.Warn("Found function file without execute permission, skipping", "file", name)
			continue
		}
		return &Module{Name: name, Kind: KindExecutable, Entry: newExecutable(wd, name), WorkDir: wd}, nil
	}

	return nil, &ModuleNotFoundError{Location: wd.Path()}
}

func finish(m *Module, configured function.Convention, logger *slog.Logger) (*Module, error) {
	switch {
	case configured != function.ConventionAuto:
		m.Convention = configured
	case m.Convention == function.ConventionAuto:
		conv, err := function.Detect(m.Entry)
		if err != nil {
			_ = m.Close()
			return nil, &ModuleLoadError{Path: m.WorkDir.Path(), Kind: m.Kind, Cause: err}
		}
		m.Convention = conv
	}

	logger.Info("Loaded function module", "name", m.Name, "kind", m.Kind, "convention", m.Convention, "workdir", m.WorkDir.Path())
	return m, nil
}

func exists(wd *function.WorkDir, name string) bool {
	info, err := wd.Stat(name)
	return err == nil && !info.IsDir()
}
