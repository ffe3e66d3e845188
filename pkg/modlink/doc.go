// SPDX-License-Identifier: MPL-2.0

// Package modlink implements a lazy module linking engine: a registry of
// named modules whose dependency, visibility, and service wiring is resolved
// on demand through six ordered link stages.
//
// A module enters the registry via Define, which atomically reserves its name
// and materializes a Handle in the Initial stage. From there the handle
// advances lazily — Link, LoadSymbol, and the query methods drive it only as
// far as they need:
//
//	Initial -> Dependencies -> Defined -> Packages -> Provides -> Uses
//
// Each stage produces an immutable snapshot embedding the previous stage's
// snapshot, so readers observe a consistent view with a single atomic load
// and no locking. Stage transitions are serialized per handle; all
// cross-handle resolution happens before a handle's own lock is taken, which
// keeps cyclic dependency graphs safe to link concurrently.
//
// Visibility follows a package-access algebra: a package is private,
// exported (its symbols loadable by modules that read it), or open, with
// optional per-module scoping. Dependency edges marked transitive re-export
// the target's packages to the dependent's own consumers; when two modules
// reachable over different paths export the same package, the first one
// found in declaration order keeps it.
//
// A linking failure is permanent: the handle memoizes the error and replays
// it on every later operation. Context cancellation is the exception — it
// aborts the caller without poisoning the handle.
package modlink
