// SPDX-License-Identifier: MPL-2.0

// Package conflict decides which of several resolved revisions of the same
// module survive a resolution.
//
// A Manager receives the parent node under which the conflict was detected and
// every live node sharing one module id, and returns the survivors. Nodes not
// returned are evicted by the caller. Managers are stateless and safe for
// concurrent use.
//
// Built-in managers:
//   - "all" (NoConflict): keep every revision
//   - "strict" (Strict): any conflict is fatal
//   - "fixed" (Fixed): keep the revisions named in a list
//   - "latest-revision", "latest-time", "latest-lexico" (Latest): keep the newest
//     revision according to a latest.Strategy
//
// Table maps module matchers to managers, falling back to a default.
package conflict
