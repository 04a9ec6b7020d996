// SPDX-License-Identifier: MPL-2.0

package cargoreport

import (
	"errors"
	"fmt"
)

const (
	// FormatLicense is the tag for cargo-license JSON.
	FormatLicense Format = "cargo-license"
	// FormatOutdated is the tag for cargo-outdated JSON.
	FormatOutdated Format = "cargo-outdated"
	// FormatAudit is the tag for cargo-audit JSON.
	FormatAudit Format = "cargo-audit"
	// FormatJUnit is the tag for JUnit XML.
	FormatJUnit Format = "junit"
)

// ErrDecode is the sentinel wrapped by every DecodeError.
var ErrDecode = errors.New("decode tool output")

type (
	// Format names a decoded tool output format.
	Format string

	// DecodeError reports tool output that could not be decoded.
	DecodeError struct {
		Format Format
		Err    error
	}
)

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s output: %v", e.Format, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDecode) match any DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func decodeErr(format Format, err error) error {
	return &DecodeError{Format: format, Err: err}
}
