// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"context"
	"testing"

	"modlink/pkg/types"
)

func TestServiceProviders_ResolvedFromOwnPackages(t *testing.T) {
	t.Parallel()

	registrar := NewProcessRegistrar()
	r := NewRegistry(WithRegistrar(registrar))
	lib := mustDefine(t, r, &Descriptor{
		Name:     "lib.codec",
		Packages: exportedPackages("codec.json"),
		Provides: map[types.ServiceName][]types.SymbolName{
			"spi.codec.Codec": {"codec.json.JSONCodec"},
		},
	}, newMemLoader("codec", "codec/json/JSONCodec.sym"))

	providers, err := lib.ServiceProviders(context.Background(), "spi.codec.Codec")
	if err != nil {
		t.Fatalf("ServiceProviders: %v", err)
	}
	if len(providers) != 1 || providers[0].Name != "codec.json.JSONCodec" {
		t.Fatalf("providers = %v, want the JSON codec", providers)
	}
	if got := registrar.Providers("lib.codec", "spi.codec.Codec"); len(got) != 1 {
		t.Fatalf("registrar providers = %v, want one recorded implementation", got)
	}
}

func TestServiceProviders_ForeignImplementationSkipped(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	mustDefine(t, r, &Descriptor{Name: "lib.other", Packages: exportedPackages("other.impl")},
		newMemLoader("other", "other/impl/Codec.sym"))
	lib := mustDefine(t, r, &Descriptor{
		Name:         "lib.codec",
		Dependencies: []Dependency{{Target: "lib.other"}},
		Provides: map[types.ServiceName][]types.SymbolName{
			// The implementation lives in a dependency, not in this module;
			// provider wiring must not claim it.
			"spi.codec.Codec": {"other.impl.Codec"},
		},
	})

	providers, err := lib.ServiceProviders(context.Background(), "spi.codec.Codec")
	if err != nil {
		t.Fatalf("ServiceProviders: %v", err)
	}
	if len(providers) != 0 {
		t.Fatalf("providers = %v, want none", providers)
	}
}

func TestServiceUses_RecordedWhenContractResolves(t *testing.T) {
	t.Parallel()

	registrar := NewProcessRegistrar()
	r := NewRegistry(WithRegistrar(registrar))
	app := mustDefine(t, r, &Descriptor{
		Name:     "app.main",
		Packages: exportedPackages("spi.codec"),
		Uses:     []types.ServiceName{"spi.codec.Codec", "spi.ghost.Missing"},
	}, newMemLoader("app", "spi/codec/Codec.sym"))

	if err := app.Link(context.Background()); err != nil {
		t.Fatalf("Link: %v", err)
	}
	used := registrar.Uses("app.main")
	if len(used) != 1 || used[0] != "spi.codec.Codec" {
		t.Fatalf("recorded uses = %v, want only the resolvable contract", used)
	}
}

func TestLink_UsesStageForcesDependencyProviders(t *testing.T) {
	t.Parallel()

	registrar := NewProcessRegistrar()
	r := NewRegistry(WithRegistrar(registrar))
	mustDefine(t, r, &Descriptor{
		Name:     "lib.codec",
		Packages: exportedPackages("codec.json"),
		Provides: map[types.ServiceName][]types.SymbolName{
			"spi.codec.Codec": {"codec.json.JSONCodec"},
		},
	}, newMemLoader("codec", "codec/json/JSONCodec.sym"))
	app := mustDefine(t, r, &Descriptor{
		Name:         "app.main",
		Dependencies: []Dependency{{Target: "lib.codec"}},
	})

	if err := app.Link(context.Background()); err != nil {
		t.Fatalf("Link: %v", err)
	}

	// Linking the consumer drove the provider module through its Provides
	// stage, so the registrar already knows the implementations.
	if got := registrar.Providers("lib.codec", "spi.codec.Codec"); len(got) != 1 {
		t.Fatalf("registrar providers = %v, want one", got)
	}
}
