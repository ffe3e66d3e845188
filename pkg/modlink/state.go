// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"modlink/pkg/types"
)

type (
	// Phase identifies one of the six ordered link stages a handle passes
	// through. Stages are append-only: once a handle reaches a phase it never
	// revisits an earlier one.
	Phase int

	// descriptorCarrier is satisfied by every state variant: the initial
	// state's descriptor is reachable from any later stage through the
	// embedded chain.
	descriptorCarrier interface {
		descriptor() *Descriptor
	}

	// linkState is one immutable snapshot in the stage chain. Each concrete
	// state embeds the previous stage's state, so the fields introduced at a
	// stage are only reachable from that stage's variant onward: code cannot
	// read a Packages-stage field without holding at least a packagesState.
	linkState interface {
		phase() Phase
	}

	// resolvedDep is one resolved dependency edge: the declaration plus the
	// handle it resolved to.
	resolvedDep struct {
		decl   Dependency
		handle *Handle
	}

	// initialState carries the raw (normalized) descriptor, unmodified.
	initialState struct {
		desc *Descriptor
	}

	// dependenciesState adds the resolved dependency list. Optional edges
	// whose targets could not be resolved are absent.
	dependenciesState struct {
		*initialState
		resolved []resolvedDep
	}

	// definedState adds the module's native host identity and its
	// unconditionally-exported package set.
	definedState struct {
		*dependenciesState
		host     HostModule
		exported map[types.PackageName]struct{}
	}

	// packagesState adds the package-to-owner map covering the module's own
	// packages and everything contributed by dependencies (transitively,
	// through edges marked transitive).
	packagesState struct {
		*definedState
		owners map[types.PackageName]*Handle
	}

	// providesState adds the resolved service wiring: consumed contracts
	// that resolved to loadable symbols, and provider implementations.
	providesState struct {
		*packagesState
		used      []types.ServiceName
		providers map[types.ServiceName][]*Symbol
	}

	// usesState is the terminal stage: every resolved dependency has been
	// driven through its own Provides stage, so service metadata read
	// through this module observes its dependencies' providers.
	usesState struct {
		*providesState
	}
)

const (
	// PhaseInitial is the raw descriptor, as loaded.
	PhaseInitial Phase = iota

	// PhaseDependencies has every dependency edge resolved to a handle.
	PhaseDependencies

	// PhaseDefined has the native host identity registered.
	PhaseDefined

	// PhasePackages has the full package visibility map computed.
	PhasePackages

	// PhaseProvides has the module's own service wiring registered.
	PhaseProvides

	// PhaseUses has provider registration propagated into dependencies.
	PhaseUses
)

// String returns the stage name.
func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseDependencies:
		return "dependencies"
	case PhaseDefined:
		return "defined"
	case PhasePackages:
		return "packages"
	case PhaseProvides:
		return "provides"
	case PhaseUses:
		return "uses"
	default:
		return "unknown"
	}
}

// View helpers: each returns the receiver, and is promoted through the
// embedded chain so any later-stage snapshot can be narrowed to the view a
// caller needs without knowing the concrete variant.

type (
	definedCarrier interface {
		definedView() *definedState
	}
	packagesCarrier interface {
		packagesView() *packagesState
	}
	providesCarrier interface {
		providesView() *providesState
	}
)

func (s *initialState) descriptor() *Descriptor       { return s.desc }

// dependencyHandles returns the handles of every resolved dependency edge.
func (s *dependenciesState) dependencyHandles() []*Handle {
	out := make([]*Handle, len(s.resolved))
	for i, rd := range s.resolved {
		out[i] = rd.handle
	}
	return out
}

func (s *definedState) definedView() *definedState    { return s }
func (s *packagesState) packagesView() *packagesState { return s }
func (s *providesState) providesView() *providesState { return s }

func (*initialState) phase() Phase      { return PhaseInitial }
func (*dependenciesState) phase() Phase { return PhaseDependencies }
func (*definedState) phase() Phase      { return PhaseDefined }
func (*packagesState) phase() Phase     { return PhasePackages }
func (*providesState) phase() Phase     { return PhaseProvides }
func (*usesState) phase() Phase         { return PhaseUses }
