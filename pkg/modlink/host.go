// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"modlink/pkg/types"
)

type (
	// HostModule is the opaque native identity of a resolved module within
	// the host execution environment.
	HostModule interface {
		// HostName returns the module name the identity was registered under.
		// The unnamed module returns "".
		HostName() types.ModuleName
	}

	// HostRegistrar is the host execution environment's own module/symbol
	// registration mechanism, injected into the engine as an explicit
	// capability rather than reached through process-wide state. The engine
	// calls it only while computing the Defined and Packages stages (plus
	// service registration in Provides), and never with two handles' stage
	// locks held at once.
	HostRegistrar interface {
		// DefineModule registers a new native module identity.
		DefineModule(name types.ModuleName, version string, packages []types.PackageName) (HostModule, error)

		// UnnamedModule returns the universal identity used by UNNAMED
		// modules: it reads every other module and is never registered
		// under a name.
		UnnamedModule() HostModule

		// AddReads records that from reads to.
		AddReads(from, to HostModule) error

		// AddExports records a scoped export grant of owner's pkg to target.
		AddExports(owner HostModule, pkg types.PackageName, target HostModule) error

		// AddOpens records a scoped open grant of owner's pkg to target.
		AddOpens(owner HostModule, pkg types.PackageName, target HostModule) error

		// AddUses records that m consumes the service.
		AddUses(m HostModule, service types.ServiceName) error

		// AddProvides records m's implementations of the service.
		AddProvides(m HostModule, service types.ServiceName, providers []types.SymbolName) error

		// EnableNativeAccess sets the privileged native-access flag on m.
		EnableNativeAccess(m HostModule) error

		// HasExport reports whether a scoped export or open grant of owner's
		// pkg toward target has been recorded. The engine consults this for
		// per-edge extra accesses, which live outside the owner's descriptor.
		HasExport(owner types.ModuleName, pkg types.PackageName, target types.ModuleName) bool
	}

	// ProcessRegistrar is the in-process HostRegistrar: module identities and
	// grants are plain tables guarded by one RWMutex. It is the production
	// registrar for embedding the engine in a single process, and doubles as
	// the reference implementation for tests.
	ProcessRegistrar struct {
		mu sync.RWMutex

		modules      map[types.ModuleName]*processModule
		reads        map[types.ModuleName]map[types.ModuleName]struct{}
		exports      map[grantKey]struct{}
		opens        map[grantKey]struct{}
		uses         map[types.ModuleName][]types.ServiceName
		provides     map[types.ModuleName]map[types.ServiceName][]types.SymbolName
		nativeAccess map[types.ModuleName]struct{}

		unnamed *processModule
	}

	processModule struct {
		name     types.ModuleName
		version  string
		packages []types.PackageName
	}

	grantKey struct {
		owner  types.ModuleName
		pkg    types.PackageName
		target types.ModuleName
	}
)

// HostName implements HostModule.
func (m *processModule) HostName() types.ModuleName { return m.name }

// NewProcessRegistrar creates an empty in-process registrar.
func NewProcessRegistrar() *ProcessRegistrar {
	return &ProcessRegistrar{
		modules:      make(map[types.ModuleName]*processModule),
		reads:        make(map[types.ModuleName]map[types.ModuleName]struct{}),
		exports:      make(map[grantKey]struct{}),
		opens:        make(map[grantKey]struct{}),
		uses:         make(map[types.ModuleName][]types.ServiceName),
		provides:     make(map[types.ModuleName]map[types.ServiceName][]types.SymbolName),
		nativeAccess: make(map[types.ModuleName]struct{}),
		unnamed:      &processModule{},
	}
}

// DefineModule implements HostRegistrar. Defining the same name twice is an
// error: the engine's registry guarantees at-most-once definition, so a
// duplicate here indicates a bug in the caller.
func (r *ProcessRegistrar) DefineModule(name types.ModuleName, version string, packages []types.PackageName) (HostModule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[name]; ok {
		return nil, fmt.Errorf("host identity for module %q already defined", name)
	}
	m := &processModule{name: name, version: version, packages: slices.Clone(packages)}
	r.modules[name] = m
	return m, nil
}

// UnnamedModule implements HostRegistrar.
func (r *ProcessRegistrar) UnnamedModule() HostModule { return r.unnamed }

// AddReads implements HostRegistrar.
func (r *ProcessRegistrar) AddReads(from, to HostModule) error {
	if from == nil || to == nil {
		return fmt.Errorf("add reads: nil host module")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.reads[from.HostName()]
	if !ok {
		set = make(map[types.ModuleName]struct{})
		r.reads[from.HostName()] = set
	}
	set[to.HostName()] = struct{}{}
	return nil
}

// AddExports implements HostRegistrar.
func (r *ProcessRegistrar) AddExports(owner HostModule, pkg types.PackageName, target HostModule) error {
	if owner == nil || target == nil {
		return fmt.Errorf("add exports: nil host module")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports[grantKey{owner: owner.HostName(), pkg: pkg, target: target.HostName()}] = struct{}{}
	return nil
}

// AddOpens implements HostRegistrar. An open grant implies an export grant.
func (r *ProcessRegistrar) AddOpens(owner HostModule, pkg types.PackageName, target HostModule) error {
	if owner == nil || target == nil {
		return fmt.Errorf("add opens: nil host module")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := grantKey{owner: owner.HostName(), pkg: pkg, target: target.HostName()}
	r.opens[key] = struct{}{}
	r.exports[key] = struct{}{}
	return nil
}

// AddUses implements HostRegistrar.
func (r *ProcessRegistrar) AddUses(m HostModule, service types.ServiceName) error {
	if m == nil {
		return fmt.Errorf("add uses: nil host module")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uses[m.HostName()] = append(r.uses[m.HostName()], service)
	return nil
}

// AddProvides implements HostRegistrar.
func (r *ProcessRegistrar) AddProvides(m HostModule, service types.ServiceName, providers []types.SymbolName) error {
	if m == nil {
		return fmt.Errorf("add provides: nil host module")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byService, ok := r.provides[m.HostName()]
	if !ok {
		byService = make(map[types.ServiceName][]types.SymbolName)
		r.provides[m.HostName()] = byService
	}
	byService[service] = append(byService[service], providers...)
	return nil
}

// EnableNativeAccess implements HostRegistrar.
func (r *ProcessRegistrar) EnableNativeAccess(m HostModule) error {
	if m == nil {
		return fmt.Errorf("enable native access: nil host module")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nativeAccess[m.HostName()] = struct{}{}
	return nil
}

// HasExport implements HostRegistrar.
func (r *ProcessRegistrar) HasExport(owner types.ModuleName, pkg types.PackageName, target types.ModuleName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.exports[grantKey{owner: owner, pkg: pkg, target: target}]
	return ok
}

// Reads reports whether from reads to, or from is the unnamed module (which
// reads everything).
func (r *ProcessRegistrar) Reads(from, to types.ModuleName) bool {
	if from == "" {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.reads[from][to]
	return ok
}

// Providers returns the recorded implementations of service contributed by
// the named module, in registration order.
func (r *ProcessRegistrar) Providers(module types.ModuleName, service types.ServiceName) []types.SymbolName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.provides[module][service])
}

// Uses returns the services the named module was recorded as consuming.
func (r *ProcessRegistrar) Uses(module types.ModuleName) []types.ServiceName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.uses[module])
}

// NativeAccessEnabled reports whether the privileged native-access flag was
// set for the named module.
func (r *ProcessRegistrar) NativeAccessEnabled(module types.ModuleName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nativeAccess[module]
	return ok
}

// ModuleNames returns the names of all registered module identities, sorted.
func (r *ProcessRegistrar) ModuleNames() []types.ModuleName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := maps.Keys(r.modules)
	slices.Sort(names)
	return names
}
