// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"errors"
	"fmt"

	"modlink/pkg/types"
)

var (
	// ErrModuleLoad is the root sentinel for all module loading failures:
	// malformed descriptors, resource-open failures, host registration
	// failures. ErrModuleNotFound failures wrap it too.
	ErrModuleLoad = errors.New("module load failed")

	// ErrModuleNotFound is the sentinel wrapped by NotFoundError.
	ErrModuleNotFound = errors.New("module not found")

	// ErrRegistryClosed is returned by Define and Lookup after the registry
	// has been closed.
	ErrRegistryClosed = errors.New("registry is closed")

	// ErrResourceNotFound is returned by ResourceLoader.Find when the loader
	// has no resource of the requested name.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrSymbolNotFound is the sentinel wrapped by SymbolNotFoundError.
	ErrSymbolNotFound = errors.New("symbol not found")
)

type (
	// LoadError reports a failure while defining or linking a module. It is
	// the root of the error taxonomy; use errors.Is(err, ErrModuleLoad) for
	// kind checks and errors.As for the structured fields.
	LoadError struct {
		// Module is the module that failed to load or link.
		Module types.ModuleName

		// Op names the failed operation (e.g. "open resources",
		// "load descriptor", "link dependencies").
		Op string

		// Cause is the underlying error.
		Cause error
	}

	// NotFoundError reports that a module name could not be resolved, either
	// as an explicit lookup or as a mandatory dependency of another module.
	NotFoundError struct {
		// Module is the name that could not be resolved.
		Module types.ModuleName

		// RequiredBy is the requesting module, when the resolution happened
		// on behalf of a dependency edge. Empty for direct lookups.
		RequiredBy types.ModuleName
	}

	// RequiredByError decorates a resolution failure with the requesting
	// module's name without altering the error kind: Unwrap exposes the
	// original cause so errors.Is and errors.As see through the decoration.
	RequiredByError struct {
		RequiredBy types.ModuleName
		Cause      error
	}

	// PackageNotFoundError reports that a package is not reachable from a
	// module: it is neither owned by the module nor contributed by any
	// resolved dependency.
	PackageNotFoundError struct {
		Module  types.ModuleName
		Package types.PackageName
	}

	// NotExportedError reports that a package is reachable but its owning
	// module does not export it to the requesting module. This is distinct
	// from PackageNotFoundError: the package exists, the requester just may
	// not see into it.
	NotExportedError struct {
		Owner     types.ModuleName
		Package   types.PackageName
		Requester types.ModuleName
	}

	// SymbolNotFoundError reports that a symbol's package was reachable and
	// visible, but no loader of the owning module had the backing resource.
	SymbolNotFoundError struct {
		Module types.ModuleName
		Symbol types.SymbolName
	}
)

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("module %q: %s: %v", e.Module, e.Op, e.Cause)
	}
	return fmt.Sprintf("module %q: %s", e.Module, e.Op)
}

// Unwrap exposes both the cause and the ErrModuleLoad sentinel.
func (e *LoadError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrModuleLoad, e.Cause}
	}
	return []error{ErrModuleLoad}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.RequiredBy != "" {
		return fmt.Sprintf("module %q not found (required by %q)", e.Module, e.RequiredBy)
	}
	return fmt.Sprintf("module %q not found", e.Module)
}

// Unwrap exposes the ErrModuleNotFound and ErrModuleLoad sentinels.
func (e *NotFoundError) Unwrap() []error {
	return []error{ErrModuleNotFound, ErrModuleLoad}
}

// Error implements the error interface.
func (e *RequiredByError) Error() string {
	return fmt.Sprintf("%v (required by %q)", e.Cause, e.RequiredBy)
}

// Unwrap returns the undecorated cause.
func (e *RequiredByError) Unwrap() error { return e.Cause }

// Error implements the error interface.
func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package %q is not reachable from module %q", e.Package, e.Module)
}

// Error implements the error interface.
func (e *NotExportedError) Error() string {
	return fmt.Sprintf("package %q in module %q is not exported to module %q", e.Package, e.Owner, e.Requester)
}

// Error implements the error interface.
func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol %q not found in module %q", e.Symbol, e.Module)
}

// Unwrap returns ErrSymbolNotFound for errors.Is() compatibility.
func (e *SymbolNotFoundError) Unwrap() error { return ErrSymbolNotFound }

// requiredBy decorates err with the requesting module's name, preserving the
// error kind for errors.Is/errors.As checks.
func requiredBy(err error, requester types.ModuleName) error {
	if err == nil {
		return nil
	}
	return &RequiredByError{RequiredBy: requester, Cause: err}
}
