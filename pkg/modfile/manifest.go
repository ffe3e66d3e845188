// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"modlink/pkg/modlink"
	"modlink/pkg/types"
)

type (
	// Manifest is the parsed manifest.toml content: the plain metadata file
	// a module directory may carry instead of a full modfile.cue. A manifest
	// yields an automatic module: every listed package is exported and no
	// dependencies are declared.
	Manifest struct {
		// Module optionally names the module; when empty, the name is taken
		// from the surrounding directory.
		Module string `toml:"module"`

		// Version is an informational version string.
		Version string `toml:"version"`

		// Packages lists the module's packages, all exported.
		Packages []string `toml:"packages"`
	}
)

// ParseManifestBytes parses manifest.toml content.
func ParseManifestBytes(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// Descriptor converts the manifest into an automatic module descriptor.
// fallback names the module when the manifest does not.
func (m *Manifest) Descriptor(fallback types.ModuleName) (*modlink.Descriptor, error) {
	name := types.ModuleName(m.Module)
	if name == "" {
		name = fallback
	}
	desc := &modlink.Descriptor{
		Name:      name,
		Version:   m.Version,
		Modifiers: modlink.ModAutomatic,
	}
	if len(m.Packages) > 0 {
		desc.Packages = make(map[types.PackageName]modlink.PackageInfo, len(m.Packages))
		for _, pkg := range m.Packages {
			desc.Packages[types.PackageName(pkg)] = modlink.PackageInfo{Access: modlink.AccessExported}
		}
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}
