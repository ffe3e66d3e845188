// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"io"

	"modlink/pkg/types"
)

type (
	// ResourceOpener opens one resource loader for a module. Open is invoked
	// at most once per module per opener, possibly while the registry's short
	// definition section is active, so it must not block indefinitely or take
	// other engine locks.
	ResourceOpener interface {
		Open() (ResourceLoader, error)
	}

	// ResourceLoader serves a module's resources by loader-relative,
	// slash-separated name. Loaders are opened during module definition and
	// closed exactly once, in reverse-open order, when the module (or its
	// registry) is closed.
	ResourceLoader interface {
		// Find returns the named resource, or an error wrapping
		// ErrResourceNotFound when the loader has no such resource.
		Find(name string) (*Resource, error)

		// Close releases the loader. It is called at most once.
		Close() error
	}

	// DescriptorLoader produces a module's descriptor from its opened
	// loaders. The returned descriptor's name must equal expected or the
	// definition fails.
	DescriptorLoader interface {
		Load(expected types.ModuleName, loaders []ResourceLoader) (*Descriptor, error)
	}

	// Definition bundles what a finder yields and Define consumes: how to
	// open the module's resources and how to load its descriptor.
	Definition struct {
		Loader  DescriptorLoader
		Openers []ResourceOpener
	}

	// Finder locates module definitions the registry does not know yet. It
	// is the registry's extension point: finders are consulted, in order,
	// only when a lookup finds nothing locally.
	Finder interface {
		// Find returns the definition for name, or ok=false when this finder
		// has no module of that name.
		Find(name types.ModuleName) (def *Definition, ok bool, err error)
	}

	// Resource is a single named resource served by a loader.
	Resource struct {
		// Name is the loader-relative, slash-separated resource name.
		Name string

		// Source describes where the resource came from (file path, archive
		// entry) for diagnostics.
		Source string

		open func() (io.ReadCloser, error)
	}

	// Symbol is a loadable symbol resolved through a module's visibility
	// rules. Opening the symbol streams its backing resource.
	Symbol struct {
		// Name is the fully qualified symbol name.
		Name types.SymbolName

		// Package is the owning package.
		Package types.PackageName

		// Module is the module that owns the package.
		Module types.ModuleName

		// Resource is the backing resource.
		Resource *Resource
	}

	// OpenerFunc adapts a function to the ResourceOpener interface.
	OpenerFunc func() (ResourceLoader, error)

	// FinderFunc adapts a function to the Finder interface.
	FinderFunc func(name types.ModuleName) (*Definition, bool, error)
)

// Open implements ResourceOpener.
func (f OpenerFunc) Open() (ResourceLoader, error) { return f() }

// Find implements Finder.
func (f FinderFunc) Find(name types.ModuleName) (*Definition, bool, error) { return f(name) }

// NewResource creates a resource backed by the given open function.
func NewResource(name, source string, open func() (io.ReadCloser, error)) *Resource {
	return &Resource{Name: name, Source: source, open: open}
}

// Open returns a reader over the resource contents. Each call opens a fresh
// reader; the caller owns closing it.
func (r *Resource) Open() (io.ReadCloser, error) { return r.open() }

// Open returns a reader over the symbol's backing resource.
func (s *Symbol) Open() (io.ReadCloser, error) { return s.Resource.Open() }
