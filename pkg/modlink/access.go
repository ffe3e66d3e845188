// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"golang.org/x/exp/slices"

	"modlink/pkg/types"
)

type (
	// AccessLevel is the outbound visibility of a package. Levels are totally
	// ordered: AccessPrivate < AccessExported < AccessOpen.
	AccessLevel int

	// PackageInfo describes the outbound visibility of a single package: its
	// unconditional access level plus explicit per-module export and open
	// grants. All mutating operations (WithAccessAtLeast, WithExportTargets,
	// WithOpenTargets, Merge) are monotonic: they widen visibility and never
	// narrow it, so additive directives can be applied in any order.
	//
	// PackageInfo is a value type; operations return a normalized copy.
	PackageInfo struct {
		// Access is the unconditional visibility of the package.
		Access AccessLevel

		// ExportTargets names the modules the package is exported to. Only
		// meaningful while Access < AccessExported; normalization drops the
		// set once the package is unconditionally exported.
		ExportTargets []types.ModuleName

		// OpenTargets names the modules the package is open to. Only
		// meaningful while Access < AccessOpen.
		OpenTargets []types.ModuleName
	}
)

const (
	// AccessPrivate means the package is not visible outside its module,
	// except to modules named in the target sets.
	AccessPrivate AccessLevel = iota

	// AccessExported means any module may load symbols from the package.
	AccessExported

	// AccessOpen means any module has full (including reflective) access.
	AccessOpen
)

// String returns a human-readable access level name.
func (l AccessLevel) String() string {
	switch l {
	case AccessPrivate:
		return "private"
	case AccessExported:
		return "exported"
	case AccessOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Normalize returns a canonical copy: target sets are sorted and deduplicated,
// and sets made redundant by the access level are dropped (an unconditionally
// exported package needs no export targets; an open package needs no open
// targets, and open subsumes export).
func (p PackageInfo) Normalize() PackageInfo {
	out := PackageInfo{Access: p.Access}
	if p.Access < AccessExported {
		out.ExportTargets = normalizeTargets(p.ExportTargets)
	}
	if p.Access < AccessOpen {
		out.OpenTargets = normalizeTargets(p.OpenTargets)
	}
	// A module open to a target is implicitly exported to it; keeping the
	// name in both sets would be redundant.
	if len(out.ExportTargets) > 0 && len(out.OpenTargets) > 0 {
		out.ExportTargets = slices.DeleteFunc(out.ExportTargets, func(m types.ModuleName) bool {
			return slices.Contains(out.OpenTargets, m)
		})
		if len(out.ExportTargets) == 0 {
			out.ExportTargets = nil
		}
	}
	return out
}

// WithAccessAtLeast widens the access level to at least level. It never
// narrows: requesting a lower level than the current one is a no-op.
func (p PackageInfo) WithAccessAtLeast(level AccessLevel) PackageInfo {
	if level > p.Access {
		p.Access = level
	}
	return p.Normalize()
}

// WithExportTargets unions targets into the export target set. Adding a
// target that is already present is a no-op.
func (p PackageInfo) WithExportTargets(targets ...types.ModuleName) PackageInfo {
	p.ExportTargets = append(slices.Clone(p.ExportTargets), targets...)
	return p.Normalize()
}

// WithOpenTargets unions targets into the open target set. Adding a target
// that is already present is a no-op.
func (p PackageInfo) WithOpenTargets(targets ...types.ModuleName) PackageInfo {
	p.OpenTargets = append(slices.Clone(p.OpenTargets), targets...)
	return p.Normalize()
}

// MergePackageInfo joins two PackageInfo values: the result carries the
// maximum access level and the union of both target sets, re-normalized.
// The operation is commutative, associative and idempotent (a semilattice
// join), so repeated or reordered merges always converge on the same value.
func MergePackageInfo(a, b PackageInfo) PackageInfo {
	out := PackageInfo{
		Access:        max(a.Access, b.Access),
		ExportTargets: append(slices.Clone(a.ExportTargets), b.ExportTargets...),
		OpenTargets:   append(slices.Clone(a.OpenTargets), b.OpenTargets...),
	}
	return out.Normalize()
}

// IsExportedTo reports whether the package is visible (at least exported) to
// the named module, considering the unconditional level and both target sets.
func (p PackageInfo) IsExportedTo(module types.ModuleName) bool {
	if p.Access >= AccessExported {
		return true
	}
	return slices.Contains(p.ExportTargets, module) || slices.Contains(p.OpenTargets, module)
}

// IsOpenTo reports whether the package is open (reflective access) to the
// named module.
func (p PackageInfo) IsOpenTo(module types.ModuleName) bool {
	if p.Access >= AccessOpen {
		return true
	}
	return slices.Contains(p.OpenTargets, module)
}

// Equal reports whether two normalized PackageInfo values are identical.
// Callers comparing raw values should normalize first.
func (p PackageInfo) Equal(o PackageInfo) bool {
	return p.Access == o.Access &&
		slices.Equal(p.ExportTargets, o.ExportTargets) &&
		slices.Equal(p.OpenTargets, o.OpenTargets)
}

// normalizeTargets sorts and deduplicates a target set, returning nil for an
// empty result so normalized values compare cleanly.
func normalizeTargets(targets []types.ModuleName) []types.ModuleName {
	if len(targets) == 0 {
		return nil
	}
	out := slices.Clone(targets)
	slices.Sort(out)
	out = slices.Compact(out)
	return out
}
