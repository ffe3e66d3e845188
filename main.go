// SPDX-License-Identifier: MPL-2.0

// modlink is a lazy module linker: it resolves directories of modules into
// a dependency graph with per-package visibility and loads symbols through
// that graph on demand.
package main

import cmd "modlink/cmd/modlink"

func main() {
	cmd.Execute()
}
