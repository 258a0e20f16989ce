// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and the Markdown guidance the CLI
// renders when a resolution or configuration step fails.
package issue
