// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	"testing"

	"modlink/pkg/modlink"
)

func TestParseManifestBytes(t *testing.T) {
	t.Parallel()

	src := `
module = "legacy.jar"
version = "0.9.1"
packages = ["legacy.core", "legacy.io"]
`
	m, err := ParseManifestBytes([]byte(src), "manifest.toml")
	if err != nil {
		t.Fatalf("ParseManifestBytes: %v", err)
	}
	if m.Module != "legacy.jar" || m.Version != "0.9.1" || len(m.Packages) != 2 {
		t.Fatalf("manifest = %+v", m)
	}
}

func TestParseManifestBytes_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseManifestBytes([]byte(`module = [broken`), "manifest.toml"); err == nil {
		t.Fatal("ParseManifestBytes succeeded on malformed TOML")
	}
}

func TestManifestDescriptor_Automatic(t *testing.T) {
	t.Parallel()

	m := &Manifest{Module: "legacy.jar", Packages: []string{"legacy.core"}}
	desc, err := m.Descriptor("ignored.fallback")
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	if desc.Name != "legacy.jar" {
		t.Errorf("name = %q", desc.Name)
	}
	if !desc.Modifiers.Has(modlink.ModAutomatic) {
		t.Error("manifest modules must be automatic")
	}
	if got := desc.Packages["legacy.core"].Access; got != modlink.AccessExported {
		t.Errorf("access = %v, want exported", got)
	}
}

func TestManifestDescriptor_FallbackName(t *testing.T) {
	t.Parallel()

	m := &Manifest{}
	desc, err := m.Descriptor("legacy.dir")
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	if desc.Name != "legacy.dir" {
		t.Errorf("name = %q, want directory fallback", desc.Name)
	}
}

func TestManifestDescriptor_InvalidPackage(t *testing.T) {
	t.Parallel()

	m := &Manifest{Module: "legacy.jar", Packages: []string{"..bad"}}
	if _, err := m.Descriptor(""); err == nil {
		t.Fatal("Descriptor succeeded with invalid package name")
	}
}
