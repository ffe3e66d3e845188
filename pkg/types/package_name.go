// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPackageName is the sentinel error wrapped by InvalidPackageNameError.
var ErrInvalidPackageName = errors.New("invalid package name")

type (
	// PackageName identifies a package (the unit of visibility control) within
	// a module. Like ModuleName it is dot-separated segments, each starting with
	// a letter (e.g. "api", "api.v1", "impl.codec").
	PackageName string

	// InvalidPackageNameError is returned when a PackageName does not satisfy
	// the naming rules.
	InvalidPackageNameError struct {
		Value  PackageName
		Reason string
	}
)

// String returns the string representation of the PackageName.
func (n PackageName) String() string { return string(n) }

// Path returns the slash-separated resource path prefix for the package
// (e.g. "api.v1" -> "api/v1").
func (n PackageName) Path() string {
	return strings.ReplaceAll(string(n), ".", "/")
}

// IsValid returns whether the PackageName is valid, along with all validation
// errors found.
func (n PackageName) IsValid() (bool, []error) {
	if err := n.Validate(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Validate returns an error if the PackageName does not satisfy the naming rules.
func (n PackageName) Validate() error {
	if n == "" {
		return &InvalidPackageNameError{Value: n, Reason: "must not be empty"}
	}
	for _, seg := range strings.Split(string(n), ".") {
		if err := validateNameSegment(seg); err != nil {
			return &InvalidPackageNameError{Value: n, Reason: err.Error()}
		}
	}
	return nil
}

// Error implements the error interface for InvalidPackageNameError.
func (e *InvalidPackageNameError) Error() string {
	return fmt.Sprintf("invalid package name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidPackageName for errors.Is() compatibility.
func (e *InvalidPackageNameError) Unwrap() error { return ErrInvalidPackageName }
