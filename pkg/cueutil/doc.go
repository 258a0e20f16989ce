// SPDX-License-Identifier: MPL-2.0

// Package cueutil loads CUE documents against an embedded schema.
//
// Module descriptors (module.cue) and configuration files (config.cue) are
// both read through Decode:
//
//  1. Compile the embedded schema and look up the root definition
//  2. Compile the document and unify it with the definition
//  3. Validate and decode into a Go struct (json tags name the fields)
//
// Errors carry the file name and the JSON-style path of the offending field,
// e.g. "module.cue: dependencies[1].revision: incomplete value string".
package cueutil
