// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"modlink/pkg/types"
)

// memLoader is an in-memory ResourceLoader for tests. It counts Find calls
// and Close calls, and can be told to fail closing.
type memLoader struct {
	source    string
	resources map[string][]byte
	findCalls atomic.Int64
	closes    atomic.Int64
	closeErr  error
	onClose   func()
}

func newMemLoader(source string, names ...string) *memLoader {
	resources := make(map[string][]byte, len(names))
	for _, name := range names {
		resources[name] = []byte("contents of " + name + " from " + source)
	}
	return &memLoader{source: source, resources: resources}
}

func (l *memLoader) Find(name string) (*Resource, error) {
	l.findCalls.Add(1)
	data, ok := l.resources[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrResourceNotFound)
	}
	return NewResource(name, l.source, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}), nil
}

func (l *memLoader) Close() error {
	l.closes.Add(1)
	if l.onClose != nil {
		l.onClose()
	}
	return l.closeErr
}

// staticDescriptorLoader serves a fixed descriptor (or error) and counts how
// often it was asked.
type staticDescriptorLoader struct {
	desc      *Descriptor
	err       error
	loadCalls atomic.Int64
}

func (d *staticDescriptorLoader) Load(types.ModuleName, []ResourceLoader) (*Descriptor, error) {
	d.loadCalls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.desc, nil
}

// definitionOf bundles a descriptor and loaders into a Definition.
func definitionOf(desc *Descriptor, loaders ...*memLoader) Definition {
	def := Definition{Loader: &staticDescriptorLoader{desc: desc}}
	for _, l := range loaders {
		l := l
		def.Openers = append(def.Openers, OpenerFunc(func() (ResourceLoader, error) { return l, nil }))
	}
	return def
}

// mustDefine defines a module and fails the test on error or on a lost
// definition race (which cannot happen in single-threaded test setup).
func mustDefine(t *testing.T, r *Registry, desc *Descriptor, loaders ...*memLoader) *Handle {
	t.Helper()
	h, err := r.Define(context.Background(), desc.Name, definitionOf(desc, loaders...))
	if err != nil {
		t.Fatalf("Define(%q): %v", desc.Name, err)
	}
	if h == nil {
		t.Fatalf("Define(%q): name already taken", desc.Name)
	}
	return h
}

// exportedPackage is shorthand for a package map with unconditionally
// exported packages.
func exportedPackages(names ...types.PackageName) map[types.PackageName]PackageInfo {
	out := make(map[types.PackageName]PackageInfo, len(names))
	for _, name := range names {
		out[name] = PackageInfo{Access: AccessExported}
	}
	return out
}

// symPath returns the backing resource path tests must seed for a symbol to
// be loadable.
func symPath(t *testing.T, name types.SymbolName) string {
	t.Helper()
	if err := name.Validate(); err != nil {
		t.Fatalf("bad symbol %q: %v", name, err)
	}
	return name.ResourcePath()
}
