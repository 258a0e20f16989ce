// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for trellis.
//
// This package implements the Cobra command hierarchy for the trellis CLI:
// resolving module descriptors, sorting them in build order, printing stored
// resolution reports and inspecting the effective configuration.
package cmd
