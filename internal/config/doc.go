// SPDX-License-Identifier: MPL-2.0

// Package config loads and persists cargoscope's user configuration.
//
// The file is CUE, validated against an embedded schema (config_schema.cue),
// and lives at $XDG_CONFIG_HOME/cargoscope/config.cue on Linux,
// ~/Library/Application Support/cargoscope/config.cue on macOS and
// %APPDATA%\cargoscope\config.cue on Windows. Values are layered with Viper:
// defaults, then the file, then CARGOSCOPE_* environment variables.
//
// A Config is a snapshot. Mutators such as WithFavorite return a new Config
// and the whole snapshot is written back with Store.Save.
package config
