// SPDX-License-Identifier: MPL-2.0

package finder

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modlink/pkg/modlink"
)

// writeModule lays a module directory out under root.
func writeModule(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name+".mod")
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", full, err)
		}
	}
	return dir
}

func TestDirFinderFind(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeModule(t, root, "lib.util", map[string]string{
		"modfile.cue": `module: "lib.util"`,
	})
	f := NewDirFinder(nil, root)

	def, ok, err := f.Find("lib.util")
	if err != nil || !ok {
		t.Fatalf("Find = (%v, %v, %v), want a definition", def, ok, err)
	}

	_, ok, err = f.Find("lib.absent")
	if err != nil || ok {
		t.Fatalf("Find of absent module = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestDirFinderRootOrder(t *testing.T) {
	t.Parallel()

	first := t.TempDir()
	second := t.TempDir()
	writeModule(t, first, "lib.util", map[string]string{
		"modfile.cue": `module: "lib.util"`,
		"marker":      "from-first",
	})
	writeModule(t, second, "lib.util", map[string]string{
		"modfile.cue": `module: "lib.util"`,
		"marker":      "from-second",
	})
	f := NewDirFinder(nil, first, second)

	def, ok, err := f.Find("lib.util")
	if err != nil || !ok {
		t.Fatalf("Find: (%v, %v)", ok, err)
	}
	loader, err := def.Openers[0].Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer loader.Close()
	res, err := loader.Find("marker")
	if err != nil {
		t.Fatalf("Find marker: %v", err)
	}
	rc, err := res.Open()
	if err != nil {
		t.Fatalf("open marker: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "from-first" {
		t.Fatalf("marker = %q, want the first root to win", data)
	}
}

func TestDirFinderList(t *testing.T) {
	t.Parallel()

	first := t.TempDir()
	second := t.TempDir()
	writeModule(t, first, "lib.util", map[string]string{"modfile.cue": `module: "lib.util"`})
	writeModule(t, first, "app.main", map[string]string{"modfile.cue": `module: "app.main"`})
	writeModule(t, second, "lib.util", map[string]string{"modfile.cue": `module: "lib.util"`})
	writeModule(t, second, "9bad", map[string]string{"modfile.cue": `module: "x"`})
	if err := os.WriteFile(filepath.Join(first, "stray.mod"), []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := NewDirFinder(nil, first, second, filepath.Join(first, "does-not-exist"))
	names, err := f.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"app.main", "lib.util"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i, n := range names {
		if string(n) != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, n, want[i])
		}
	}
}

func TestDirLoaderTraversalGuard(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := writeModule(t, root, "lib.util", map[string]string{
		"modfile.cue": `module: "lib.util"`,
	})
	if err := os.WriteFile(filepath.Join(root, "outside.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loader, err := DirOpener(dir).Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer loader.Close()

	for _, name := range []string{"../outside.txt", "/etc/passwd", "a/../../outside.txt", ""} {
		if _, err := loader.Find(name); err == nil {
			t.Errorf("Find(%q) succeeded, want traversal rejection", name)
		} else if errors.Is(err, modlink.ErrResourceNotFound) {
			t.Errorf("Find(%q) = not-found, want a validation error", name)
		}
	}
}

func TestDirLoaderClosed(t *testing.T) {
	t.Parallel()

	dir := writeModule(t, t.TempDir(), "lib.util", map[string]string{
		"modfile.cue": `module: "lib.util"`,
	})
	loader, err := DirOpener(dir).Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := loader.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := loader.Find("modfile.cue"); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("Find after close = %v, want closed error", err)
	}
}

func TestDirFinderEndToEnd(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeModule(t, root, "lib.codec", map[string]string{
		"modfile.cue": `
module: "lib.codec"
packages: [{name: "codec.json", access: "exported"}]
`,
		"codec/json/JSONCodec.sym": "symbol bytes",
	})
	writeModule(t, root, "app.main", map[string]string{
		"modfile.cue": `
module: "app.main"
requires: [{module: "lib.codec"}]
`,
	})

	r := modlink.NewRegistry(modlink.WithFinder(NewDirFinder(nil, root)))
	defer r.Close()

	app, err := r.Require(context.Background(), "app.main")
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	sym, err := app.LoadSymbol(context.Background(), "codec.json.JSONCodec")
	if err != nil {
		t.Fatalf("LoadSymbol: %v", err)
	}
	rc, err := sym.Open()
	if err != nil {
		t.Fatalf("open symbol: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "symbol bytes" {
		t.Fatalf("symbol contents = %q", data)
	}
}

func TestDirFinderManifestModule(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeModule(t, root, "legacy.jar", map[string]string{
		"manifest.toml":       "packages = [\"legacy.core\"]\n",
		"legacy/core/Util.sym": "legacy symbol",
	})

	r := modlink.NewRegistry(modlink.WithFinder(NewDirFinder(nil, root)))
	defer r.Close()

	h, err := r.Require(context.Background(), "legacy.jar")
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if !h.Descriptor().Modifiers.Has(modlink.ModAutomatic) {
		t.Fatal("manifest-backed module should be automatic")
	}
	if _, err := h.LoadSymbol(context.Background(), "legacy.core.Util"); err != nil {
		t.Fatalf("LoadSymbol: %v", err)
	}
}
