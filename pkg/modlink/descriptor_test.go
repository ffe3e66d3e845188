// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"errors"
	"testing"

	"modlink/pkg/types"
)

func TestDescriptorValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{
			name: "minimal valid",
			desc: Descriptor{Name: "app.main"},
		},
		{
			name: "full valid",
			desc: Descriptor{
				Name:    "app.main",
				Version: "1.2.3",
				Dependencies: []Dependency{
					{Target: "lib.util", Modifiers: DepTransitive},
					{Target: "lib.extra", Modifiers: DepOptional},
				},
				Packages: exportedPackages("app.core"),
				Uses:     []types.ServiceName{"spi.codec.Codec"},
				Provides: map[types.ServiceName][]types.SymbolName{
					"spi.codec.Codec": {"app.core.JSONCodec"},
				},
				MainSymbol: "app.core.Main",
			},
		},
		{
			name:    "invalid module name",
			desc:    Descriptor{Name: "9bad"},
			wantErr: true,
		},
		{
			name: "automatic and unnamed are exclusive",
			desc: Descriptor{
				Name:      "app.main",
				Modifiers: ModAutomatic | ModUnnamed,
			},
			wantErr: true,
		},
		{
			name: "automatic with dependencies",
			desc: Descriptor{
				Name:         "legacy.jar",
				Modifiers:    ModAutomatic,
				Dependencies: []Dependency{{Target: "lib.util"}},
			},
			wantErr: true,
		},
		{
			name: "duplicate dependency target",
			desc: Descriptor{
				Name: "app.main",
				Dependencies: []Dependency{
					{Target: "lib.util"},
					{Target: "lib.util", Modifiers: DepOptional},
				},
			},
			wantErr: true,
		},
		{
			name: "invalid package name",
			desc: Descriptor{
				Name: "app.main",
				Packages: map[types.PackageName]PackageInfo{
					"..broken": {},
				},
			},
			wantErr: true,
		},
		{
			name: "invalid provider symbol",
			desc: Descriptor{
				Name: "app.main",
				Provides: map[types.ServiceName][]types.SymbolName{
					"spi.codec.Codec": {"noqualifier"},
				},
			},
			wantErr: true,
		},
		{
			name: "unnamed skips name validation",
			desc: Descriptor{
				Modifiers: ModUnnamed,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.desc.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDescriptor) {
					t.Fatalf("Validate() = %v, want ErrInvalidDescriptor", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestDescriptorNormalizedFoldsModifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		modifiers  Modifiers
		wantAccess AccessLevel
	}{
		{name: "plain keeps private", modifiers: 0, wantAccess: AccessPrivate},
		{name: "automatic exports all", modifiers: ModAutomatic, wantAccess: AccessExported},
		{name: "open opens all", modifiers: ModOpen, wantAccess: AccessOpen},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := Descriptor{
				Name:      "app.main",
				Modifiers: tt.modifiers,
				Packages: map[types.PackageName]PackageInfo{
					"app.core": {Access: AccessPrivate},
				},
			}
			got := d.normalized().Packages["app.core"].Access
			if got != tt.wantAccess {
				t.Errorf("normalized access = %v, want %v", got, tt.wantAccess)
			}
		})
	}
}

func TestDescriptorNormalizedDeduplicatesUses(t *testing.T) {
	t.Parallel()

	d := Descriptor{
		Name: "app.main",
		Uses: []types.ServiceName{"spi.codec.Codec", "spi.auth.Provider", "spi.codec.Codec"},
	}
	got := d.normalized().Uses
	want := []types.ServiceName{"spi.auth.Provider", "spi.codec.Codec"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("normalized Uses = %v, want %v", got, want)
	}
}

func TestDescriptorUnconditionalExports(t *testing.T) {
	t.Parallel()

	d := Descriptor{
		Name: "app.main",
		Packages: map[types.PackageName]PackageInfo{
			"app.api":    {Access: AccessExported},
			"app.spi":    {Access: AccessOpen},
			"app.hidden": {Access: AccessPrivate},
			"app.scoped": {ExportTargets: []types.ModuleName{"app.friend"}},
		},
	}
	got := d.unconditionalExports()
	if len(got) != 2 {
		t.Fatalf("unconditional exports = %v, want app.api and app.spi", got)
	}
	for _, pkg := range []types.PackageName{"app.api", "app.spi"} {
		if _, ok := got[pkg]; !ok {
			t.Errorf("missing %q in unconditional exports", pkg)
		}
	}
}

func TestModifiersString(t *testing.T) {
	t.Parallel()

	if got := (ModOpen | ModNativeAccess).String(); got != "open,native-access" {
		t.Errorf("Modifiers.String() = %q", got)
	}
	if got := (DepOptional | DepTransitive).String(); got != "optional,transitive" {
		t.Errorf("DepModifiers.String() = %q", got)
	}
}
