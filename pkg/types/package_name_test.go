// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestPackageNameValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   PackageName
		wantErr bool
	}{
		{name: "simple", value: "api", wantErr: false},
		{name: "dotted", value: "api.v1", wantErr: false},
		{name: "empty", value: "", wantErr: true},
		{name: "empty segment", value: "api..v1", wantErr: true},
		{name: "segment starts with digit", value: "api.1v", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.value.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("PackageName(%q).Validate() error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPackageName) {
				t.Errorf("PackageName(%q).Validate() error does not wrap ErrInvalidPackageName", tt.value)
			}
		})
	}
}

func TestPackageNamePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value PackageName
		want  string
	}{
		{name: "simple", value: "api", want: "api"},
		{name: "dotted", value: "api.v1.codec", want: "api/v1/codec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.value.Path(); got != tt.want {
				t.Errorf("PackageName(%q).Path() = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
