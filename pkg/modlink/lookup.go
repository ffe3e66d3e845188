// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"context"
	"errors"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"modlink/pkg/types"
)

// DependencyEdge is one resolved dependency of a linked module.
type DependencyEdge struct {
	// Dependency is the declared edge.
	Dependency Dependency

	// Handle is the module the edge resolved to.
	Handle *Handle
}

// LoadSymbol resolves a fully qualified symbol through the module's
// visibility rules. Resolution may recursively drive this handle — and any
// dependency handles — through their link stages.
//
// The failure modes are distinct: a package no resolved dependency
// contributes yields PackageNotFoundError, while a reachable package whose
// owner does not export it to this module yields NotExportedError.
func (h *Handle) LoadSymbol(ctx context.Context, name types.SymbolName) (*Symbol, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}
	ls, err := h.ensure(ctx, PhasePackages)
	if err != nil {
		return nil, err
	}
	return h.lookupSymbolIn(ls.(packagesCarrier).packagesView(), name)
}

// lookupSymbolIn performs the visibility-checked lookup against a Packages
// snapshot: own packages load directly; contributed packages additionally
// require that the owner exports them to this module specifically.
func (h *Handle) lookupSymbolIn(view *packagesState, name types.SymbolName) (*Symbol, error) {
	pkg := name.Package()
	owner, ok := view.owners[pkg]
	if !ok {
		return nil, &PackageNotFoundError{Module: h.name, Package: pkg}
	}
	if owner != h && !owner.exportsTo(pkg, h) {
		return nil, &NotExportedError{Owner: owner.name, Package: pkg, Requester: h.name}
	}
	return owner.findOwnSymbol(name)
}

// findOwnSymbol locates the symbol's backing resource in this module's own
// loaders, in loader order.
func (h *Handle) findOwnSymbol(name types.SymbolName) (*Symbol, error) {
	path := name.ResourcePath()
	for _, loader := range h.loaders {
		res, err := loader.Find(path)
		if errors.Is(err, ErrResourceNotFound) {
			continue
		}
		if err != nil {
			return nil, &LoadError{Module: h.name, Op: "load symbol resource", Cause: err}
		}
		return &Symbol{Name: name, Package: name.Package(), Module: h.name, Resource: res}, nil
	}
	return nil, &SymbolNotFoundError{Module: h.name, Symbol: name}
}

// exportsTo reports whether this module exports pkg to the requesting
// module: unconditionally, via a named target in the descriptor, or via a
// scoped grant recorded with the host registrar (per-edge extra accesses).
func (h *Handle) exportsTo(pkg types.PackageName, requester *Handle) bool {
	if h == requester {
		return true
	}
	desc := h.Descriptor()
	if info, ok := desc.Packages[pkg]; ok && info.IsExportedTo(requester.name) {
		return true
	}
	return h.registry.registrar.HasExport(h.name, pkg, requester.name)
}

// LoadResource returns the first resource of the given name across the
// module's loaders, in loader order, or nil when no loader has it.
func (h *Handle) LoadResource(name string) (*Resource, error) {
	for _, loader := range h.loaders {
		res, err := loader.Find(name)
		if errors.Is(err, ErrResourceNotFound) {
			continue
		}
		if err != nil {
			return nil, &LoadError{Module: h.name, Op: "load resource", Cause: err}
		}
		return res, nil
	}
	return nil, nil
}

// LoadAllResources returns every resource of the given name across the
// module's loaders, concatenated in loader order.
func (h *Handle) LoadAllResources(name string) ([]*Resource, error) {
	var out []*Resource
	for _, loader := range h.loaders {
		res, err := loader.Find(name)
		if errors.Is(err, ErrResourceNotFound) {
			continue
		}
		if err != nil {
			return nil, &LoadError{Module: h.name, Op: "load resources", Cause: err}
		}
		out = append(out, res)
	}
	return out, nil
}

// ExportedPackages returns the module's unconditionally-exported packages,
// sorted. It advances the handle to the Defined stage if needed.
func (h *Handle) ExportedPackages(ctx context.Context) ([]types.PackageName, error) {
	ls, err := h.ensure(ctx, PhaseDefined)
	if err != nil {
		return nil, err
	}
	pkgs := maps.Keys(ls.(definedCarrier).definedView().exported)
	slices.Sort(pkgs)
	return pkgs, nil
}

// ResolvedDependencies returns the module's resolved dependency edges, in
// declaration order. Optional edges that did not resolve are absent. It
// advances the handle to the Dependencies stage if needed.
func (h *Handle) ResolvedDependencies(ctx context.Context) ([]DependencyEdge, error) {
	ls, err := h.ensure(ctx, PhaseDependencies)
	if err != nil {
		return nil, err
	}
	var view *dependenciesState
	switch s := ls.(type) {
	case *dependenciesState:
		view = s
	case definedCarrier:
		view = s.definedView().dependenciesState
	}
	edges := make([]DependencyEdge, len(view.resolved))
	for i, rd := range view.resolved {
		edges[i] = DependencyEdge{Dependency: rd.decl, Handle: rd.handle}
	}
	return edges, nil
}

// ServiceProviders returns the implementations of service resolved from this
// module's Provides stage.
func (h *Handle) ServiceProviders(ctx context.Context, service types.ServiceName) ([]*Symbol, error) {
	ls, err := h.ensure(ctx, PhaseProvides)
	if err != nil {
		return nil, err
	}
	return slices.Clone(ls.(providesCarrier).providesView().providers[service]), nil
}

// sortedPackageKeys returns the map's package keys in sorted order.
func sortedPackageKeys[V any](m map[types.PackageName]V) []types.PackageName {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// sortedServiceKeys returns the map's service keys in sorted order.
func sortedServiceKeys[V any](m map[types.ServiceName]V) []types.ServiceName {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
