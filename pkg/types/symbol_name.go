// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSymbolName is the sentinel error wrapped by InvalidSymbolNameError.
var ErrInvalidSymbolName = errors.New("invalid symbol name")

type (
	// SymbolName is the fully qualified name of a loadable symbol: the owning
	// package followed by a final simple-name segment (e.g. "api.v1.Codec").
	// The package part is everything before the last dot; a SymbolName therefore
	// always has at least two segments.
	SymbolName string

	// InvalidSymbolNameError is returned when a SymbolName does not satisfy the
	// naming rules.
	InvalidSymbolNameError struct {
		Value  SymbolName
		Reason string
	}
)

// String returns the string representation of the SymbolName.
func (n SymbolName) String() string { return string(n) }

// Package returns the package part of the qualified name (everything before
// the last dot). For an invalid single-segment name it returns "".
func (n SymbolName) Package() PackageName {
	i := strings.LastIndex(string(n), ".")
	if i < 0 {
		return ""
	}
	return PackageName(n[:i])
}

// Simple returns the final segment of the qualified name.
func (n SymbolName) Simple() string {
	i := strings.LastIndex(string(n), ".")
	return string(n[i+1:])
}

// ResourcePath returns the loader-relative resource path that backs the
// symbol (e.g. "api.v1.Codec" -> "api/v1/Codec.sym").
func (n SymbolName) ResourcePath() string {
	return strings.ReplaceAll(string(n), ".", "/") + ".sym"
}

// IsValid returns whether the SymbolName is valid, along with all validation
// errors found.
func (n SymbolName) IsValid() (bool, []error) {
	if err := n.Validate(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Validate returns an error if the SymbolName does not satisfy the naming rules.
func (n SymbolName) Validate() error {
	if n == "" {
		return &InvalidSymbolNameError{Value: n, Reason: "must not be empty"}
	}
	segs := strings.Split(string(n), ".")
	if len(segs) < 2 {
		return &InvalidSymbolNameError{Value: n, Reason: "must be qualified with a package (e.g. \"pkg.Symbol\")"}
	}
	for _, seg := range segs {
		if err := validateNameSegment(seg); err != nil {
			return &InvalidSymbolNameError{Value: n, Reason: err.Error()}
		}
	}
	return nil
}

// Error implements the error interface for InvalidSymbolNameError.
func (e *InvalidSymbolNameError) Error() string {
	return fmt.Sprintf("invalid symbol name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidSymbolName for errors.Is() compatibility.
func (e *InvalidSymbolNameError) Unwrap() error { return ErrInvalidSymbolName }
