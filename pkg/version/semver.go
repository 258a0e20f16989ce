// SPDX-License-Identifier: MPL-2.0

package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/invowk/trellis/pkg/moduleid"
)

// Semver matches semantic-version constraints such as "^1.2", "~1.4.0",
// ">=1.0, <2.0" or "1.x || 2.x". Found revisions that are not valid semantic
// versions are rejected.
type Semver struct{}

// Name returns "semver".
func (Semver) Name() string { return "semver" }

// IsDynamic reports whether the revision starts with a constraint operator or
// contains an alternative ("||").
func (Semver) IsDynamic(asked moduleid.ModuleRevisionID) bool {
	r := strings.TrimSpace(asked.Revision)
	if r == "" {
		return false
	}
	return strings.ContainsRune("^~><=!", rune(r[0])) || strings.Contains(r, "||")
}

// Accept checks the found revision against the constraint.
func (Semver) Accept(asked, found moduleid.ModuleRevisionID) bool {
	c, err := semver.NewConstraint(asked.Revision)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(found.Revision)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// NeedModuleDescriptor always returns false.
func (Semver) NeedModuleDescriptor(_, _ moduleid.ModuleRevisionID) bool { return false }

// AcceptDescriptor delegates to Accept.
func (s Semver) AcceptDescriptor(asked, found moduleid.ModuleRevisionID, _ string) bool {
	return s.Accept(asked, found)
}

// Compare cannot order a constraint against a version.
func (Semver) Compare(_, _ moduleid.ModuleRevisionID, _ Comparator) (int, bool) {
	return 0, false
}

// Validate parses the constraint.
func (s Semver) Validate(asked moduleid.ModuleRevisionID) error {
	if _, err := semver.NewConstraint(asked.Revision); err != nil {
		return &MalformedRevisionError{Revision: asked.Revision, Matcher: s.Name(), Reason: err.Error()}
	}
	return nil
}
