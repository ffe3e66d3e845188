// SPDX-License-Identifier: MPL-2.0

// Package modfile parses module descriptor files into engine descriptors.
//
// A module directory declares itself through one of two files:
//
//   - modfile.cue: the full declarative descriptor (identity, dependency
//     edges, per-package visibility, service uses/provides), validated
//     against an embedded CUE schema.
//   - manifest.toml: a plain metadata file for modules without declarations;
//     it yields an automatic module whose packages are all exported.
//
// Loader implements modlink.DescriptorLoader over a module's opened
// resource loaders, preferring modfile.cue and falling back to the manifest.
package modfile
