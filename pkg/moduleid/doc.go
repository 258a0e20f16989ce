// SPDX-License-Identifier: MPL-2.0

// Package moduleid defines the immutable coordinates used throughout dependency
// resolution: module identifiers (organisation + name), module revision
// identifiers (module + branch + revision + extra attributes), artifact
// identifiers, and pattern matchers over module identifiers.
//
// All types are values. ModuleID is comparable and can be used directly as a map
// key; ModuleRevisionID carries an attribute slice and exposes Key() for use in
// maps and equality checks.
package moduleid
