// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"modlink/pkg/modlink"
)

// fakeLoader serves fixed file contents as modlink resources.
type fakeLoader struct {
	source string
	files  map[string]string
}

func (l *fakeLoader) Find(name string) (*modlink.Resource, error) {
	data, ok := l.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, modlink.ErrResourceNotFound)
	}
	return modlink.NewResource(name, l.source, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(data))), nil
	}), nil
}

func (l *fakeLoader) Close() error { return nil }

func TestLoaderPrefersModfile(t *testing.T) {
	t.Parallel()

	loaders := []modlink.ResourceLoader{&fakeLoader{
		source: "app.mod",
		files: map[string]string{
			ModfileName:  `module: "app.main"`,
			ManifestName: `module = "app.manifest"`,
		},
	}}
	desc, err := NewLoader().Load("app.main", loaders)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if desc.Name != "app.main" || desc.Modifiers.Has(modlink.ModAutomatic) {
		t.Fatalf("descriptor = %+v, want modfile-derived module", desc)
	}
}

func TestLoaderFallsBackToManifest(t *testing.T) {
	t.Parallel()

	loaders := []modlink.ResourceLoader{&fakeLoader{
		source: "legacy.mod",
		files: map[string]string{ManifestName: `packages = ["legacy.core"]`},
	}}
	desc, err := NewLoader().Load("legacy.dir", loaders)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if desc.Name != "legacy.dir" {
		t.Errorf("name = %q, want fallback from expected name", desc.Name)
	}
	if !desc.Modifiers.Has(modlink.ModAutomatic) {
		t.Error("manifest modules must be automatic")
	}
}

func TestLoaderFirstLoaderWins(t *testing.T) {
	t.Parallel()

	loaders := []modlink.ResourceLoader{
		&fakeLoader{source: "primary", files: map[string]string{ModfileName: `module: "app.primary"`}},
		&fakeLoader{source: "shadowed", files: map[string]string{ModfileName: `module: "app.shadowed"`}},
	}
	desc, err := NewLoader().Load("app.primary", loaders)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if desc.Name != "app.primary" {
		t.Errorf("name = %q, want the first loader's module", desc.Name)
	}
}

func TestLoaderNothingFound(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load("app.main", []modlink.ResourceLoader{
		&fakeLoader{source: "empty", files: map[string]string{}},
	})
	if !errors.Is(err, ErrModfileNotFound) {
		t.Fatalf("err = %v, want ErrModfileNotFound", err)
	}
}
