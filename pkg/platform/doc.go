// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities.
//
// This package centralizes runtime.GOOS string constants so platform
// checks read the same everywhere.
package platform
