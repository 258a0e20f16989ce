// SPDX-License-Identifier: MPL-2.0

// Package descriptor models module descriptors and the configuration mapping
// algebra used to walk from a module configuration to the configurations of its
// dependencies.
//
// A ModuleDescriptor declares configurations (named, public or private views of
// the module that may extend each other), artifacts published in those
// configurations, dependency descriptors and per-module conflict overrides.
// Descriptors are immutable once built; resolvers hand out shared instances.
//
// Descriptors are stored as module.cue files validated against the embedded
// #Module schema (see Parse and ParseFile).
package descriptor
