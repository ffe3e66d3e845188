// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidModuleName is the sentinel error wrapped by InvalidModuleNameError.
var ErrInvalidModuleName = errors.New("invalid module name")

type (
	// ModuleName identifies a module within a registry. Names are dot-separated
	// segments, each starting with a letter and containing only alphanumerics,
	// hyphens and underscores (e.g. "core", "io.vendor.codec").
	//
	// The zero value ("") is not a valid module name; it is reserved for the
	// unnamed module, which is never registered under a name.
	ModuleName string

	// InvalidModuleNameError is returned when a ModuleName does not satisfy the
	// naming rules.
	InvalidModuleNameError struct {
		Value  ModuleName
		Reason string
	}
)

// String returns the string representation of the ModuleName.
func (n ModuleName) String() string { return string(n) }

// IsValid returns whether the ModuleName is valid, along with all validation
// errors found.
func (n ModuleName) IsValid() (bool, []error) {
	if err := n.Validate(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Validate returns an error if the ModuleName does not satisfy the naming rules.
func (n ModuleName) Validate() error {
	if n == "" {
		return &InvalidModuleNameError{Value: n, Reason: "must not be empty"}
	}
	for _, seg := range strings.Split(string(n), ".") {
		if err := validateNameSegment(seg); err != nil {
			return &InvalidModuleNameError{Value: n, Reason: err.Error()}
		}
	}
	return nil
}

// Error implements the error interface for InvalidModuleNameError.
func (e *InvalidModuleNameError) Error() string {
	return fmt.Sprintf("invalid module name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidModuleName for errors.Is() compatibility.
func (e *InvalidModuleNameError) Unwrap() error { return ErrInvalidModuleName }

// validateNameSegment checks a single dot-separated segment of a module or
// package name.
func validateNameSegment(seg string) error {
	if seg == "" {
		return errors.New("segments must not be empty")
	}
	if !isLetter(rune(seg[0])) {
		return fmt.Errorf("segment %q must start with a letter", seg)
	}
	for _, r := range seg[1:] {
		if !isLetter(r) && !isDigit(r) && r != '-' && r != '_' {
			return fmt.Errorf("segment %q contains invalid character %q", seg, r)
		}
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
