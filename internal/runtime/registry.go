// Package runtime implements the Runtime Registry: discovery of
// installed language packages on disk. The core only consumes the
// Runtime contract; everything about how packages got installed
// (package manager endpoints, CLI installers) is external to it.
package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/google/shlex"
)

// installedSentinel is the file whose presence marks a package version
// directory as fully installed and safe to expose.
const installedSentinel = ".installed"

// manifestName is the optional per-version manifest describing aliases
// and environment variables. Absence is not an error: a bare sentinel
// file is enough to register a runtime with no aliases and no env vars.
const manifestName = "pkg-info.yaml"

// Runtime describes a single installed language package. It is opaque
// to the job engine beyond these fields.
type Runtime struct {
	Language string
	Version  string
	Aliases  []string
	Compiled bool
	PkgDir   string
	EnvVars  map[string]string
	// ExtraArgs is prepended to the caller-supplied args on every run
	// invocation (after the entry file, before the caller's args), parsed
	// shell-style from the manifest's extra_args string (e.g. "-u -O").
	ExtraArgs []string
}

// CompilePath returns the path to the package's compile executable.
// Only meaningful when Compiled is true.
func (r Runtime) CompilePath() string {
	return filepath.Join(r.PkgDir, "compile")
}

// RunPath returns the path to the package's run executable.
func (r Runtime) RunPath() string {
	return filepath.Join(r.PkgDir, "run")
}

// manifest is the on-disk shape of an optional pkg-info.yaml file.
type manifest struct {
	Aliases   []string          `yaml:"aliases"`
	EnvVars   map[string]string `yaml:"env_vars"`
	Compiled  *bool             `yaml:"compiled"`
	ExtraArgs string            `yaml:"extra_args"`
}

// Registry looks up installed Runtimes by identity or alias.
type Registry interface {
	All() []Runtime
	Lookup(language, version string) (Runtime, bool)
	LookupAlias(alias string) (Runtime, bool)
	Refresh(ctx context.Context) error
}

// FileRegistry scans <dataDir>/packages/<language>/<version>/ for
// installed packages.
type FileRegistry struct {
	dataDir string

	mu       sync.RWMutex
	byKey    map[string]Runtime // "language/version"
	byAlias  map[string]Runtime
	versions []Runtime
}

// NewFileRegistry creates a FileRegistry rooted at dataDir and performs
// an initial scan.
func NewFileRegistry(ctx context.Context, dataDir string) (*FileRegistry, error) {
	r := &FileRegistry{dataDir: dataDir}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func packagesDir(dataDir string) string {
	return filepath.Join(dataDir, "packages")
}

// Refresh re-scans the package directory tree. Cancellable via ctx
// because a large package tree on slow storage can take a while.
func (r *FileRegistry) Refresh(ctx context.Context) error {
	root := packagesDir(r.dataDir)
	languages, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			r.replace(nil)
			return nil
		}
		return err
	}

	var found []Runtime
	for _, langEnt := range languages {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !langEnt.IsDir() {
			continue
		}
		language := langEnt.Name()
		langDir := filepath.Join(root, language)
		versions, err := os.ReadDir(langDir)
		if err != nil {
			continue
		}
		for _, verEnt := range versions {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !verEnt.IsDir() {
				continue
			}
			version := verEnt.Name()
			pkgDir := filepath.Join(langDir, version)
			rt, ok, err := loadRuntime(pkgDir, language, version)
			if err != nil || !ok {
				continue
			}
			found = append(found, rt)
		}
	}
	r.replace(found)
	return nil
}

func loadRuntime(pkgDir, language, version string) (Runtime, bool, error) {
	if _, err := os.Stat(filepath.Join(pkgDir, installedSentinel)); err != nil {
		return Runtime{}, false, nil
	}

	rt := Runtime{
		Language: language,
		Version:  version,
		PkgDir:   pkgDir,
	}

	if _, err := os.Stat(filepath.Join(pkgDir, "compile")); err == nil {
		rt.Compiled = true
	}

	m, err := readManifest(filepath.Join(pkgDir, manifestName))
	if err != nil {
		return Runtime{}, false, err
	}
	if m != nil {
		rt.Aliases = m.Aliases
		rt.EnvVars = m.EnvVars
		if m.Compiled != nil {
			rt.Compiled = *m.Compiled
		}
		if m.ExtraArgs != "" {
			args, err := shlex.Split(m.ExtraArgs)
			if err != nil {
				return Runtime{}, false, fmt.Errorf("parse extra_args %q: %w", m.ExtraArgs, err)
			}
			rt.ExtraArgs = args
		}
	}
	return rt, true, nil
}

func readManifest(path string) (*manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var m manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *FileRegistry) replace(found []Runtime) {
	byKey := make(map[string]Runtime, len(found))
	byAlias := make(map[string]Runtime, len(found))
	for _, rt := range found {
		byKey[rt.Language+"/"+rt.Version] = rt
		for _, a := range rt.Aliases {
			byAlias[a] = rt
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey = byKey
	r.byAlias = byAlias
	r.versions = found
}

// All returns every installed Runtime.
func (r *FileRegistry) All() []Runtime {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Runtime, len(r.versions))
	copy(out, r.versions)
	return out
}

// Lookup finds a Runtime by exact (language, version).
func (r *FileRegistry) Lookup(language, version string) (Runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.byKey[language+"/"+version]
	return rt, ok
}

// LookupAlias finds a Runtime by one of its registered aliases.
func (r *FileRegistry) LookupAlias(alias string) (Runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.byAlias[alias]
	return rt, ok
}
