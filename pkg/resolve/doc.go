// SPDX-License-Identifier: MPL-2.0

// Package resolve computes the transitive closure of a module's dependencies.
//
// A resolution walks the dependency graph breadth first, one level at a time.
// Inside a level every node is loaded first: its revision is chosen (dynamic
// revisions go through the resolver listing, the version matchers and the
// latest strategy), its descriptor is fetched and conflicts with other
// revisions of the same module are resolved right away. The surviving nodes
// are then expanded into the next level, so evicted revisions never get their
// own dependencies fetched.
//
// Per-node failures (missing modules, unusable configurations) are recorded as
// NodeError values and the walk continues. Strict conflicts, cycles under the
// error strategy and cancellation abort the resolution with a ResolutionError
// and no report.
//
// An Engine is safe for concurrent use; each Resolve call owns its own graph.
package resolve
