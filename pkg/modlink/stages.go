// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"context"
	"errors"

	"modlink/pkg/types"
)

type (
	// scopedGrant is one export/open grant prepared during the Packages
	// stage and registered with the owning module's registrar on commit.
	scopedGrant struct {
		registrar HostRegistrar
		owner     HostModule
		target    HostModule
		pkg       types.PackageName
		open      bool
	}

	// packagesPrep is the cross-handle work product of the Packages stage:
	// everything resolved from other handles before this handle's lock is
	// taken.
	packagesPrep struct {
		// owners maps contributed packages to their owning handles,
		// first-writer-wins in dependency declaration order.
		owners map[types.PackageName]*Handle

		// reads lists the host identities of every module reached by the
		// transitive walk, in visit order.
		reads []HostModule

		// grants are the per-edge extra accesses plus the scoped export/open
		// targets declared by this module's own packages.
		grants []scopedGrant
	}

	// providesPrep is the cross-handle work product of the Provides stage.
	providesPrep struct {
		used      []types.ServiceName
		providers map[types.ServiceName][]*Symbol
	}
)

// prepareDependencies resolves every declared edge through its registry.
// Optional edges whose targets cannot be resolved are dropped; a mandatory
// miss fails the stage with the requesting module's name in the message.
func (h *Handle) prepareDependencies(ctx context.Context) (any, error) {
	desc := h.Descriptor()
	resolved := make([]resolvedDep, 0, len(desc.Dependencies))
	for _, dep := range desc.Dependencies {
		reg := dep.Loader
		if reg == nil {
			reg = h.registry
		}
		target, err := reg.Lookup(ctx, dep.Target)
		if err != nil || target == nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if dep.Modifiers.Has(DepOptional) {
				h.logger.Debug("optional dependency unresolved, dropping",
					"target", dep.Target, "err", err)
				continue
			}
			if err == nil {
				return nil, &NotFoundError{Module: dep.Target, RequiredBy: h.name}
			}
			return nil, requiredBy(err, h.name)
		}
		resolved = append(resolved, resolvedDep{decl: dep, handle: target})
	}
	return resolved, nil
}

func (h *Handle) commitDependencies(cur *initialState, resolved []resolvedDep) (linkState, error) {
	return &dependenciesState{initialState: cur, resolved: resolved}, nil
}

// commitDefined constructs the module's native identity. UNNAMED modules
// skip host registration and use the universal reads-everything identity.
func (h *Handle) commitDefined(cur *dependenciesState) (linkState, error) {
	desc := cur.desc
	registrar := h.registry.registrar

	var host HostModule
	if desc.Modifiers.Has(ModUnnamed) {
		host = registrar.UnnamedModule()
	} else {
		var err error
		host, err = registrar.DefineModule(desc.Name, desc.Version, desc.PackageNames())
		if err != nil {
			return nil, &LoadError{Module: h.name, Op: "register host identity", Cause: err}
		}
		if desc.Modifiers.Has(ModNativeAccess) {
			if err := registrar.EnableNativeAccess(host); err != nil {
				return nil, &LoadError{Module: h.name, Op: "enable native access", Cause: err}
			}
		}
	}

	return &definedState{
		dependenciesState: cur,
		host:              host,
		exported:          desc.unconditionalExports(),
	}, nil
}

// preparePackages walks every resolved dependency's unconditional exports,
// transitively through edges marked transitive, building the package-owner
// map. The walk carries a visited set keyed by handle identity, which makes
// it cycle-safe and deduplicates diamond dependencies. When two modules
// reachable over different paths export the same package, the first one
// found keeps it.
func (h *Handle) preparePackages(ctx context.Context) (any, error) {
	view, err := h.definedViewFor(ctx)
	if err != nil {
		return nil, err
	}
	desc := view.desc

	prep := &packagesPrep{owners: make(map[types.PackageName]*Handle)}
	visited := make(map[*Handle]struct{})

	var visit func(dh *Handle) error
	visit = func(dh *Handle) error {
		if _, seen := visited[dh]; seen {
			return nil
		}
		visited[dh] = struct{}{}

		ds, err := dh.ensure(ctx, PhaseDefined)
		if err != nil {
			return requiredBy(err, h.name)
		}
		dv := ds.(definedCarrier).definedView()
		if dh != h {
			prep.reads = append(prep.reads, dv.host)
		}
		// Reachability is wider than visibility: a package exported to named
		// targets is reachable (so a denied requester gets a not-exported
		// error, not a not-found one), while a fully private package is
		// invisible here.
		for pkg, info := range dv.desc.Packages {
			if info.Access < AccessExported && len(info.ExportTargets) == 0 && len(info.OpenTargets) == 0 {
				continue
			}
			if _, taken := prep.owners[pkg]; !taken {
				prep.owners[pkg] = dh
			}
		}
		for _, rd := range dv.resolved {
			if rd.decl.Modifiers.Has(DepTransitive) {
				if err := visit(rd.handle); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, rd := range view.resolved {
		if err := visit(rd.handle); err != nil {
			return nil, err
		}
	}

	// Per-edge extra accesses: grants from each dependency target back to
	// this module, scoped to the declaring edge.
	for _, rd := range view.resolved {
		if len(rd.decl.ExtraAccesses) == 0 {
			continue
		}
		ds, err := rd.handle.ensure(ctx, PhaseDefined)
		if err != nil {
			return nil, requiredBy(err, h.name)
		}
		depHost := ds.(definedCarrier).definedView().host
		for _, pkg := range sortedPackageKeys(rd.decl.ExtraAccesses) {
			// An edge grant makes the package reachable even when the
			// owner's descriptor keeps it private.
			if _, taken := prep.owners[pkg]; !taken {
				prep.owners[pkg] = rd.handle
			}
			prep.grants = append(prep.grants, scopedGrant{
				registrar: rd.handle.registry.registrar,
				owner:     depHost,
				target:    view.host,
				pkg:       pkg,
				open:      rd.decl.ExtraAccesses[pkg] >= AccessOpen,
			})
		}
	}

	// Scoped export/open targets declared by this module's own packages.
	// Targets resolve through the registry and need not be declared
	// dependencies; unresolvable targets are skipped.
	for _, pkg := range desc.PackageNames() {
		info := desc.Packages[pkg]
		for _, grant := range []struct {
			targets []types.ModuleName
			open    bool
		}{
			{info.ExportTargets, false},
			{info.OpenTargets, true},
		} {
			for _, name := range grant.targets {
				target, err := h.registry.Lookup(ctx, name)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				if err != nil || target == nil {
					h.logger.Debug("scoped target unresolved, skipping",
						"package", pkg, "target", name, "err", err)
					continue
				}
				ts, err := target.ensure(ctx, PhaseDefined)
				if err != nil {
					h.logger.Debug("scoped target failed to define, skipping",
						"package", pkg, "target", name, "err", err)
					continue
				}
				prep.grants = append(prep.grants, scopedGrant{
					registrar: h.registry.registrar,
					owner:     view.host,
					target:    ts.(definedCarrier).definedView().host,
					pkg:       pkg,
					open:      grant.open,
				})
			}
		}
	}

	return prep, nil
}

func (h *Handle) commitPackages(cur *definedState, prep *packagesPrep) (linkState, error) {
	registrar := h.registry.registrar

	// The module's own packages overlay the contributed map: self always
	// wins for packages it declares.
	owners := prep.owners
	for pkg := range cur.desc.Packages {
		owners[pkg] = h
	}

	for _, depHost := range prep.reads {
		if err := registrar.AddReads(cur.host, depHost); err != nil {
			return nil, &LoadError{Module: h.name, Op: "register reads", Cause: err}
		}
	}
	for _, g := range prep.grants {
		var err error
		if g.open {
			err = g.registrar.AddOpens(g.owner, g.pkg, g.target)
		} else {
			err = g.registrar.AddExports(g.owner, g.pkg, g.target)
		}
		if err != nil {
			return nil, &LoadError{Module: h.name, Op: "register scoped grant", Cause: err}
		}
	}

	return &packagesState{definedState: cur, owners: owners}, nil
}

// prepareProvides resolves the module's declared service wiring. Names that
// do not resolve to loadable symbols are skipped rather than failing the
// module: service wiring is best-effort.
func (h *Handle) prepareProvides(ctx context.Context) (any, error) {
	ls, err := h.ensure(ctx, PhasePackages)
	if err != nil {
		return nil, err
	}
	view := ls.(packagesCarrier).packagesView()
	desc := view.desc

	prep := &providesPrep{providers: make(map[types.ServiceName][]*Symbol)}
	for _, svc := range desc.Uses {
		if _, err := h.lookupSymbolIn(view, svc.Symbol()); err != nil {
			h.logger.Debug("used service contract unresolved, skipping",
				"service", svc, "err", err)
			continue
		}
		prep.used = append(prep.used, svc)
	}

	for _, svc := range sortedServiceKeys(desc.Provides) {
		var resolved []*Symbol
		for _, impl := range desc.Provides[svc] {
			// Provider implementations must live in the providing module.
			if owner, ok := view.owners[impl.Package()]; !ok || owner != h {
				h.logger.Debug("provider implementation not owned by module, skipping",
					"service", svc, "impl", impl)
				continue
			}
			sym, err := h.findOwnSymbol(impl)
			if err != nil {
				h.logger.Debug("provider implementation unresolved, skipping",
					"service", svc, "impl", impl, "err", err)
				continue
			}
			resolved = append(resolved, sym)
		}
		if len(resolved) > 0 {
			prep.providers[svc] = resolved
		}
	}
	return prep, nil
}

func (h *Handle) commitProvides(cur *packagesState, prep *providesPrep) (linkState, error) {
	registrar := h.registry.registrar
	for _, svc := range prep.used {
		if err := registrar.AddUses(cur.host, svc); err != nil {
			return nil, &LoadError{Module: h.name, Op: "register used service", Cause: err}
		}
	}
	for _, svc := range sortedServiceKeys(prep.providers) {
		syms := prep.providers[svc]
		names := make([]types.SymbolName, len(syms))
		for i, s := range syms {
			names[i] = s.Name
		}
		if err := registrar.AddProvides(cur.host, svc, names); err != nil {
			return nil, &LoadError{Module: h.name, Op: "register service providers", Cause: err}
		}
	}
	return &providesState{packagesState: cur, used: prep.used, providers: prep.providers}, nil
}

// prepareUses forces every resolved dependency through its own Provides
// stage, so a consumer reading service metadata through this module observes
// the dependencies' providers.
func (h *Handle) prepareUses(ctx context.Context) error {
	ls, err := h.ensure(ctx, PhaseProvides)
	if err != nil {
		return err
	}
	view := ls.(providesCarrier).providesView()
	for _, rd := range view.resolved {
		if _, err := rd.handle.ensure(ctx, PhaseProvides); err != nil {
			return requiredBy(err, h.name)
		}
	}
	return nil
}

// definedViewFor returns the definedState view of this handle, which is
// guaranteed to exist when preparing the Packages stage.
func (h *Handle) definedViewFor(ctx context.Context) (*definedState, error) {
	ls, err := h.ensure(ctx, PhaseDefined)
	if err != nil {
		return nil, err
	}
	return ls.(definedCarrier).definedView(), nil
}
