// SPDX-License-Identifier: MPL-2.0

// Package finder locates module directories on the filesystem and serves
// them to a modlink registry.
//
// A module lives in a directory named <module>.mod under one of the
// configured search roots, carrying a modfile.cue (or manifest.toml) plus
// the resources its symbols are backed by. Roots are searched in order;
// the first directory of the right name wins.
package finder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"

	"modlink/pkg/modfile"
	"modlink/pkg/modlink"
	"modlink/pkg/types"
)

type (
	// DirFinder resolves module names to directories under its search roots.
	// It implements modlink.Finder.
	DirFinder struct {
		roots  []string
		logger *log.Logger
	}

	// DirOpener opens a directory-backed resource loader rooted at the
	// module directory. It implements modlink.ResourceOpener.
	DirOpener string

	// dirLoader serves files under one directory as module resources.
	// Resource names are slash-separated and must stay inside the root.
	dirLoader struct {
		root   string
		closed atomic.Bool
	}
)

// NewDirFinder creates a finder over the given search roots, consulted in
// order. A nil logger discards debug output.
func NewDirFinder(logger *log.Logger, roots ...string) *DirFinder {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &DirFinder{roots: roots, logger: logger}
}

// Find implements modlink.Finder.
func (f *DirFinder) Find(name types.ModuleName) (*modlink.Definition, bool, error) {
	if err := name.Validate(); err != nil {
		return nil, false, err
	}
	for _, root := range f.roots {
		dir := filepath.Join(root, string(name)+modfile.ModuleSuffix)
		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("stat module dir %s: %w", dir, err)
		}
		if !info.IsDir() {
			f.logger.Debug("module path exists but is not a directory, skipping", "path", dir)
			continue
		}
		f.logger.Debug("module located", "module", name, "dir", dir)
		return &modlink.Definition{
			Loader:  modfile.NewLoader(),
			Openers: []modlink.ResourceOpener{DirOpener(dir)},
		}, true, nil
	}
	return nil, false, nil
}

// Roots returns the finder's search roots, in consultation order.
func (f *DirFinder) Roots() []string { return f.roots }

// List returns the names of every module directory under the search roots,
// sorted and deduplicated. Entries that are not directories or whose names
// are not valid module names are skipped.
func (f *DirFinder) List() ([]types.ModuleName, error) {
	seen := make(map[types.ModuleName]struct{})
	for _, root := range f.roots {
		entries, err := os.ReadDir(root)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read search root %s: %w", root, err)
		}
		for _, e := range entries {
			if !e.IsDir() || !strings.HasSuffix(e.Name(), modfile.ModuleSuffix) {
				continue
			}
			name := types.ModuleName(strings.TrimSuffix(e.Name(), modfile.ModuleSuffix))
			if err := name.Validate(); err != nil {
				f.logger.Debug("skipping module dir with invalid name", "dir", e.Name())
				continue
			}
			seen[name] = struct{}{}
		}
	}
	names := make([]types.ModuleName, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Open implements modlink.ResourceOpener.
func (d DirOpener) Open() (modlink.ResourceLoader, error) {
	info, err := os.Stat(string(d))
	if err != nil {
		return nil, fmt.Errorf("open module dir %s: %w", string(d), err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("module path %s is not a directory", string(d))
	}
	return &dirLoader{root: string(d)}, nil
}

// Find implements modlink.ResourceLoader.
func (l *dirLoader) Find(name string) (*modlink.Resource, error) {
	if l.closed.Load() {
		return nil, fmt.Errorf("module dir %s: loader is closed", l.root)
	}
	if err := validateResourceName(name); err != nil {
		return nil, err
	}

	path := filepath.Join(l.root, filepath.FromSlash(name))

	// Directory traversal guard: the joined path must stay inside the root.
	rel, err := filepath.Rel(l.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("resource %q escapes the module directory", name)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", name, modlink.ErrResourceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stat resource %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", name, modlink.ErrResourceNotFound)
	}

	return modlink.NewResource(name, path, func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

// Close implements modlink.ResourceLoader.
func (l *dirLoader) Close() error {
	l.closed.Store(true)
	return nil
}

// validateResourceName rejects names that could reach outside the module
// directory before any path math happens.
func validateResourceName(name string) error {
	if name == "" {
		return fmt.Errorf("resource name is empty")
	}
	if strings.ContainsRune(name, '\x00') {
		return fmt.Errorf("resource name contains a null byte")
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(filepath.FromSlash(name)) {
		return fmt.Errorf("resource name %q must be relative", name)
	}
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(name)))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("resource name %q escapes the module directory", name)
	}
	return nil
}
