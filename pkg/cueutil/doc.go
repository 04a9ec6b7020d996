// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents against an embedded schema and turns
// CUE errors into messages that name the offending field.
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	res, err := cueutil.Decode[map[string]any](schema, data, "#Config",
//	    cueutil.WithFilename(path), cueutil.WithConcrete(false))
package cueutil
