// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"modlink/pkg/types"
)

// ErrInvalidDescriptor is the sentinel error wrapped by InvalidDescriptorError.
var ErrInvalidDescriptor = errors.New("invalid module descriptor")

type (
	// Modifiers is the bitset of module-wide modifiers.
	Modifiers uint8

	// DepModifiers is the bitset of per-dependency modifiers.
	DepModifiers uint16

	// Dependency is a declared reference from one module to another, resolved
	// by name through a registry at link time.
	Dependency struct {
		// Target is the name of the depended-on module.
		Target types.ModuleName

		// Modifiers controls how the edge is resolved and what it re-exports.
		Modifiers DepModifiers

		// Loader optionally overrides which registry resolves the target.
		// When nil, the declaring module's own registry is used.
		Loader *Registry

		// ExtraAccesses grants additional per-package visibility from the
		// target back to the declaring module, scoped to this edge.
		ExtraAccesses map[types.PackageName]AccessLevel
	}

	// Descriptor is the immutable input describing a module: identity,
	// dependencies, per-package visibility, and service uses/provides. It is
	// produced by an external collaborator (see pkg/modfile) and treated as
	// already given by the engine.
	Descriptor struct {
		// Name is the module's registry name.
		Name types.ModuleName

		// Version is an optional informational version string.
		Version string

		// Dependencies lists the declared edges, in declaration order.
		// Declaration order is significant: when the same package is exported
		// by two modules reachable through different edges, the first edge
		// found wins.
		Dependencies []Dependency

		// Packages maps each declared package to its outbound visibility.
		Packages map[types.PackageName]PackageInfo

		// Uses names the service contracts the module consumes.
		Uses []types.ServiceName

		// Provides maps service contracts to the implementation symbols the
		// module contributes.
		Provides map[types.ServiceName][]types.SymbolName

		// MainSymbol optionally names the module's entry symbol.
		MainSymbol types.SymbolName

		// Modifiers carries the module-wide modifier bitset.
		Modifiers Modifiers
	}

	// InvalidDescriptorError reports why a Descriptor failed validation.
	InvalidDescriptorError struct {
		Module types.ModuleName
		Reason string
	}
)

const (
	// ModOpen marks every package of the module as open, regardless of the
	// per-package declarations.
	ModOpen Modifiers = 1 << iota

	// ModAutomatic marks a module whose descriptor was derived from a plain
	// manifest: every package is exported and it has no declared dependencies.
	ModAutomatic

	// ModUnnamed marks the unnamed module: it is never registered with the
	// host and reads every other module.
	ModUnnamed

	// ModNativeAccess requests the privileged native-access flag on the
	// module's host identity.
	ModNativeAccess
)

const (
	// DepOptional marks an edge that is silently dropped when the target
	// cannot be resolved.
	DepOptional DepModifiers = 1 << iota

	// DepTransitive re-exports the target's unconditional exports to every
	// module depending on the declaring module.
	DepTransitive

	// DepSynthetic marks an edge not present in the source declaration.
	DepSynthetic

	// DepMandated marks an edge implied by the declaration rules.
	DepMandated

	// DepLinkedForLoading marks an edge used only to locate resources, not
	// to read packages.
	DepLinkedForLoading

	// DepReadOnly marks an edge whose target must not be mutated through it.
	DepReadOnly

	// DepServiceVisible exposes the target's service providers through the
	// declaring module.
	DepServiceVisible
)

// Has reports whether all bits of m are set.
func (s Modifiers) Has(m Modifiers) bool { return s&m == m }

// Has reports whether all bits of m are set.
func (s DepModifiers) Has(m DepModifiers) bool { return s&m == m }

// String returns a stable human-readable rendering of the modifier set.
func (s Modifiers) String() string {
	var parts []string
	if s.Has(ModOpen) {
		parts = append(parts, "open")
	}
	if s.Has(ModAutomatic) {
		parts = append(parts, "automatic")
	}
	if s.Has(ModUnnamed) {
		parts = append(parts, "unnamed")
	}
	if s.Has(ModNativeAccess) {
		parts = append(parts, "native-access")
	}
	return strings.Join(parts, ",")
}

// String returns a stable human-readable rendering of the modifier set.
func (s DepModifiers) String() string {
	var parts []string
	for _, m := range []struct {
		bit  DepModifiers
		name string
	}{
		{DepOptional, "optional"},
		{DepTransitive, "transitive"},
		{DepSynthetic, "synthetic"},
		{DepMandated, "mandated"},
		{DepLinkedForLoading, "linked-for-loading"},
		{DepReadOnly, "read-only"},
		{DepServiceVisible, "service-visible"},
	} {
		if s.Has(m.bit) {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(parts, ",")
}

// Error implements the error interface for InvalidDescriptorError.
func (e *InvalidDescriptorError) Error() string {
	return fmt.Sprintf("invalid descriptor for module %q: %s", e.Module, e.Reason)
}

// Unwrap returns ErrInvalidDescriptor for errors.Is() compatibility.
func (e *InvalidDescriptorError) Unwrap() error { return ErrInvalidDescriptor }

// Validate checks the structural invariants of the descriptor: valid names
// throughout, AUTOMATIC and UNNAMED mutually exclusive, and no duplicate
// dependency targets.
func (d *Descriptor) Validate() error {
	if !d.Modifiers.Has(ModUnnamed) {
		if err := d.Name.Validate(); err != nil {
			return &InvalidDescriptorError{Module: d.Name, Reason: err.Error()}
		}
	}
	if d.Modifiers.Has(ModAutomatic) && d.Modifiers.Has(ModUnnamed) {
		return &InvalidDescriptorError{Module: d.Name, Reason: "AUTOMATIC and UNNAMED are mutually exclusive"}
	}
	if d.Modifiers.Has(ModAutomatic) && len(d.Dependencies) > 0 {
		return &InvalidDescriptorError{Module: d.Name, Reason: "automatic modules must not declare dependencies"}
	}
	seen := make(map[types.ModuleName]struct{}, len(d.Dependencies))
	for _, dep := range d.Dependencies {
		if err := dep.Target.Validate(); err != nil {
			return &InvalidDescriptorError{Module: d.Name, Reason: err.Error()}
		}
		if _, dup := seen[dep.Target]; dup {
			return &InvalidDescriptorError{Module: d.Name, Reason: fmt.Sprintf("duplicate dependency on %q", dep.Target)}
		}
		seen[dep.Target] = struct{}{}
		for pkg := range dep.ExtraAccesses {
			if err := pkg.Validate(); err != nil {
				return &InvalidDescriptorError{Module: d.Name, Reason: err.Error()}
			}
		}
	}
	for pkg := range d.Packages {
		if err := pkg.Validate(); err != nil {
			return &InvalidDescriptorError{Module: d.Name, Reason: err.Error()}
		}
	}
	for _, svc := range d.Uses {
		if err := svc.Validate(); err != nil {
			return &InvalidDescriptorError{Module: d.Name, Reason: err.Error()}
		}
	}
	for svc, impls := range d.Provides {
		if err := svc.Validate(); err != nil {
			return &InvalidDescriptorError{Module: d.Name, Reason: err.Error()}
		}
		for _, impl := range impls {
			if err := impl.Validate(); err != nil {
				return &InvalidDescriptorError{Module: d.Name, Reason: err.Error()}
			}
		}
	}
	if d.MainSymbol != "" {
		if err := d.MainSymbol.Validate(); err != nil {
			return &InvalidDescriptorError{Module: d.Name, Reason: err.Error()}
		}
	}
	return nil
}

// normalized returns a copy of the descriptor with every PackageInfo
// normalized and the module-wide modifiers folded in: ModOpen widens every
// package to open, ModAutomatic widens every package to exported.
func (d *Descriptor) normalized() *Descriptor {
	out := *d
	out.Packages = make(map[types.PackageName]PackageInfo, len(d.Packages))
	for pkg, info := range d.Packages {
		switch {
		case d.Modifiers.Has(ModOpen):
			info = info.WithAccessAtLeast(AccessOpen)
		case d.Modifiers.Has(ModAutomatic):
			info = info.WithAccessAtLeast(AccessExported)
		default:
			info = info.Normalize()
		}
		out.Packages[pkg] = info
	}
	out.Uses = slices.Clone(d.Uses)
	slices.Sort(out.Uses)
	out.Uses = slices.Compact(out.Uses)
	return &out
}

// PackageNames returns the module's declared package names in sorted order.
func (d *Descriptor) PackageNames() []types.PackageName {
	names := maps.Keys(d.Packages)
	slices.Sort(names)
	return names
}

// unconditionalExports returns the packages exported without explicit
// targets: access at least exported after normalization.
func (d *Descriptor) unconditionalExports() map[types.PackageName]struct{} {
	out := make(map[types.PackageName]struct{})
	for pkg, info := range d.Packages {
		if info.Access >= AccessExported {
			out[pkg] = struct{}{}
		}
	}
	return out
}
