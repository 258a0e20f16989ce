// SPDX-License-Identifier: MPL-2.0

// Package version decides whether a requested revision is a dynamic constraint
// and whether a concrete revision satisfies it.
//
// Built-in matchers cover exact revisions, "latest.<status>", sub-revisions
// ("1.0+"), ranges ("[1.0,2.0)", "(,3.0]") and semantic-version constraints
// ("^1.2", ">=1.0 <2.0"). A Chain dispatches a revision to the first matcher that
// claims it dynamic and falls back to exact matching otherwise.
//
// CompareRevisions is the static revision comparator shared by the range
// matcher and the latest-revision strategy.
package version
