// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
)

// ErrInvalidServiceName is the sentinel error wrapped by InvalidServiceNameError.
var ErrInvalidServiceName = errors.New("invalid service name")

type (
	// ServiceName identifies a service contract a module uses or provides.
	// Services are named like symbols: a qualified name whose package part
	// identifies where the contract lives (e.g. "spi.codec.Provider").
	ServiceName string

	// InvalidServiceNameError is returned when a ServiceName does not satisfy
	// the naming rules.
	InvalidServiceNameError struct {
		Value  ServiceName
		Reason string
	}
)

// String returns the string representation of the ServiceName.
func (n ServiceName) String() string { return string(n) }

// Symbol returns the service contract as a loadable SymbolName.
func (n ServiceName) Symbol() SymbolName { return SymbolName(n) }

// IsValid returns whether the ServiceName is valid, along with all validation
// errors found.
func (n ServiceName) IsValid() (bool, []error) {
	if err := n.Validate(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Validate returns an error if the ServiceName does not satisfy the naming rules.
func (n ServiceName) Validate() error {
	if err := SymbolName(n).Validate(); err != nil {
		return &InvalidServiceNameError{Value: n, Reason: "must be a qualified symbol name"}
	}
	return nil
}

// Error implements the error interface for InvalidServiceNameError.
func (e *InvalidServiceNameError) Error() string {
	return fmt.Sprintf("invalid service name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidServiceName for errors.Is() compatibility.
func (e *InvalidServiceNameError) Unwrap() error { return ErrInvalidServiceName }
