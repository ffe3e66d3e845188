// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"modlink/pkg/cueutil"
	"modlink/pkg/modlink"
	"modlink/pkg/types"
)

const (
	// ModfileName is the descriptor file name inside a module directory.
	ModfileName = "modfile.cue"

	// ManifestName is the plain manifest consulted when no modfile.cue
	// exists; it yields an automatic module.
	ManifestName = "manifest.toml"

	// ModuleSuffix is the standard suffix for module directories.
	ModuleSuffix = ".mod"
)

var (
	//go:embed modfile_schema.cue
	modfileSchema string

	// ErrModfileNotFound is returned when a module directory carries neither
	// a modfile.cue nor a manifest.toml.
	ErrModfileNotFound = errors.New("modfile.cue not found")
)

type (
	// Modfile is the parsed modfile.cue content: the declarative source a
	// modlink.Descriptor is built from.
	Modfile struct {
		// Module is the mandatory registry name. It must match the module
		// directory name (before the .mod suffix).
		Module string `json:"module"`

		// Version is an informational version string (semver recommended).
		Version string `json:"version,omitempty"`

		// Main optionally names the module's entry symbol.
		Main string `json:"main,omitempty"`

		// Open widens every package to open access.
		Open bool `json:"open,omitempty"`

		// NativeAccess requests the privileged native-access flag.
		NativeAccess bool `json:"native_access,omitempty"`

		// Requires declares the dependency edges, in order. Order matters:
		// when two dependencies export the same package, the first declared
		// edge keeps it.
		Requires []Requirement `json:"requires,omitempty"`

		// Packages declares per-package visibility.
		Packages []Package `json:"packages,omitempty"`

		// Uses names consumed service contracts.
		Uses []string `json:"uses,omitempty"`

		// Provides declares service implementations contributed by this
		// module.
		Provides []Provider `json:"provides,omitempty"`

		// FilePath stores the path this modfile was loaded from (not in CUE).
		FilePath string `json:"-"`
	}

	// Requirement is one declared dependency edge.
	Requirement struct {
		Module         string  `json:"module"`
		Optional       bool    `json:"optional,omitempty"`
		Transitive     bool    `json:"transitive,omitempty"`
		ServiceVisible bool    `json:"service_visible,omitempty"`
		Allow          []Allow `json:"allow,omitempty"`
	}

	// Allow grants extra per-package access from the edge's target back to
	// the declaring module.
	Allow struct {
		Package string `json:"package"`
		Level   string `json:"level"`
	}

	// Package declares the visibility of one package.
	Package struct {
		Name     string   `json:"name"`
		Access   string   `json:"access,omitempty"`
		ExportTo []string `json:"export_to,omitempty"`
		OpenTo   []string `json:"open_to,omitempty"`
	}

	// Provider declares implementations of one service contract.
	Provider struct {
		Service string   `json:"service"`
		With    []string `json:"with"`
	}
)

// Parse reads and parses a modfile.cue at the given path.
func Parse(path string) (*Modfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read modfile at %s: %w", path, err)
	}
	return ParseBytes(data, path)
}

// ParseBytes parses modfile content from bytes. Uses
// cueutil.ParseAndDecodeString for the 3-step CUE parsing flow:
// compile schema → compile user data → validate and decode.
func ParseBytes(data []byte, path string) (*Modfile, error) {
	result, err := cueutil.ParseAndDecodeString[Modfile](
		modfileSchema,
		data,
		"#Modfile",
		cueutil.WithFilename(path),
	)
	if err != nil {
		return nil, err
	}

	mf := result.Value
	mf.FilePath = path
	return mf, nil
}

// Descriptor converts the modfile into the engine's descriptor form.
// Duplicate package declarations merge monotonically: the widest access and
// the union of target sets win, regardless of declaration order.
func (m *Modfile) Descriptor() (*modlink.Descriptor, error) {
	desc := &modlink.Descriptor{
		Name:    types.ModuleName(m.Module),
		Version: m.Version,
	}
	if m.Main != "" {
		desc.MainSymbol = types.SymbolName(m.Main)
	}
	if m.Open {
		desc.Modifiers |= modlink.ModOpen
	}
	if m.NativeAccess {
		desc.Modifiers |= modlink.ModNativeAccess
	}

	for _, req := range m.Requires {
		dep := modlink.Dependency{Target: types.ModuleName(req.Module)}
		if req.Optional {
			dep.Modifiers |= modlink.DepOptional
		}
		if req.Transitive {
			dep.Modifiers |= modlink.DepTransitive
		}
		if req.ServiceVisible {
			dep.Modifiers |= modlink.DepServiceVisible
		}
		for _, allow := range req.Allow {
			level, err := parseAccessLevel(allow.Level)
			if err != nil {
				return nil, fmt.Errorf("%s: requires %q: %w", m.FilePath, req.Module, err)
			}
			if dep.ExtraAccesses == nil {
				dep.ExtraAccesses = make(map[types.PackageName]modlink.AccessLevel)
			}
			dep.ExtraAccesses[types.PackageName(allow.Package)] = level
		}
		desc.Dependencies = append(desc.Dependencies, dep)
	}

	if len(m.Packages) > 0 {
		desc.Packages = make(map[types.PackageName]modlink.PackageInfo, len(m.Packages))
	}
	for _, pkg := range m.Packages {
		info := modlink.PackageInfo{}
		if pkg.Access != "" {
			level, err := parseAccessLevel(pkg.Access)
			if err != nil {
				return nil, fmt.Errorf("%s: package %q: %w", m.FilePath, pkg.Name, err)
			}
			info.Access = level
		}
		info = info.
			WithExportTargets(toModuleNames(pkg.ExportTo)...).
			WithOpenTargets(toModuleNames(pkg.OpenTo)...)

		name := types.PackageName(pkg.Name)
		if prev, ok := desc.Packages[name]; ok {
			info = modlink.MergePackageInfo(prev, info)
		}
		desc.Packages[name] = info
	}

	for _, svc := range m.Uses {
		desc.Uses = append(desc.Uses, types.ServiceName(svc))
	}
	for _, prov := range m.Provides {
		if desc.Provides == nil {
			desc.Provides = make(map[types.ServiceName][]types.SymbolName)
		}
		svc := types.ServiceName(prov.Service)
		for _, impl := range prov.With {
			desc.Provides[svc] = append(desc.Provides[svc], types.SymbolName(impl))
		}
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

// parseAccessLevel maps a modfile access string to the engine level.
func parseAccessLevel(s string) (modlink.AccessLevel, error) {
	switch s {
	case "private":
		return modlink.AccessPrivate, nil
	case "exported":
		return modlink.AccessExported, nil
	case "open":
		return modlink.AccessOpen, nil
	default:
		return 0, fmt.Errorf("unknown access level %q", s)
	}
}

func toModuleNames(names []string) []types.ModuleName {
	out := make([]types.ModuleName, len(names))
	for i, n := range names {
		out[i] = types.ModuleName(n)
	}
	return out
}
