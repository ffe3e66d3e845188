// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	"errors"
	"fmt"
	"io"

	"modlink/pkg/modlink"
	"modlink/pkg/types"
)

// Loader is the modlink.DescriptorLoader that reads a module's descriptor
// from its own resources: modfile.cue when present, otherwise manifest.toml
// (yielding an automatic module). The loaders are consulted in order; the
// first one carrying a descriptor file wins.
type Loader struct{}

// NewLoader creates a descriptor loader.
func NewLoader() *Loader { return &Loader{} }

// Load implements modlink.DescriptorLoader. A descriptor naming a different
// module than expected is the caller's (the registry's) error to reject;
// Load only maps file content to a descriptor.
func (l *Loader) Load(expected types.ModuleName, loaders []modlink.ResourceLoader) (*modlink.Descriptor, error) {
	if data, source, ok, err := readFirst(loaders, ModfileName); err != nil {
		return nil, err
	} else if ok {
		mf, err := ParseBytes(data, source)
		if err != nil {
			return nil, err
		}
		return mf.Descriptor()
	}

	if data, source, ok, err := readFirst(loaders, ManifestName); err != nil {
		return nil, err
	} else if ok {
		m, err := ParseManifestBytes(data, source)
		if err != nil {
			return nil, err
		}
		return m.Descriptor(expected)
	}

	return nil, fmt.Errorf("module %q: %w", expected, ErrModfileNotFound)
}

// readFirst returns the contents of the first loader's resource of the given
// name, reporting ok=false when no loader has it.
func readFirst(loaders []modlink.ResourceLoader, name string) (data []byte, source string, ok bool, err error) {
	for _, loader := range loaders {
		res, err := loader.Find(name)
		if errors.Is(err, modlink.ErrResourceNotFound) {
			continue
		}
		if err != nil {
			return nil, "", false, err
		}
		rc, err := res.Open()
		if err != nil {
			return nil, "", false, fmt.Errorf("open %s: %w", res.Source, err)
		}
		data, err := io.ReadAll(rc)
		closeErr := rc.Close()
		if err != nil {
			return nil, "", false, fmt.Errorf("read %s: %w", res.Source, err)
		}
		if closeErr != nil {
			return nil, "", false, fmt.Errorf("close %s: %w", res.Source, closeErr)
		}
		return data, res.Source, true, nil
	}
	return nil, "", false, nil
}
