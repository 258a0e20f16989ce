// SPDX-License-Identifier: MPL-2.0

// Package config handles trellis configuration using Viper with CUE as the file format.
//
// Configuration is looked up in the file given with --config, then in
// $XDG_CONFIG_HOME/trellis/config.cue (or the platform equivalent), then in
// ./trellis.cue; defaults apply when none exists. Files are validated against
// the embedded #Config schema (config_schema.cue) before being merged into
// Viper, and TRELLIS_ environment variables override scalar keys.
//
// BuildSettings turns a Config into the immutable settings used by the
// resolution engine.
package config
