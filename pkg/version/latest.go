// SPDX-License-Identifier: MPL-2.0

package version

import (
	"strings"

	"github.com/invowk/trellis/pkg/moduleid"
)

// LatestPrefix introduces a "latest.<status>" revision.
const LatestPrefix = "latest."

// LatestStatus matches "latest.<status>": any revision whose descriptor status
// is at least as high as the asked status.
type LatestStatus struct {
	Statuses Statuses
}

// Name returns "latest".
func (LatestStatus) Name() string { return "latest" }

// IsDynamic reports whether the revision starts with "latest.".
func (LatestStatus) IsDynamic(asked moduleid.ModuleRevisionID) bool {
	return strings.HasPrefix(asked.Revision, LatestPrefix)
}

// Accept always succeeds; the status check needs the descriptor.
func (LatestStatus) Accept(_, _ moduleid.ModuleRevisionID) bool { return true }

// NeedModuleDescriptor returns false when the asked status is the lowest one,
// because every status satisfies it.
func (m LatestStatus) NeedModuleDescriptor(asked, _ moduleid.ModuleRevisionID) bool {
	return askedStatus(asked) != m.Statuses.Lowest()
}

// AcceptDescriptor accepts a found revision whose status ranks at least as high
// as the asked one.
func (m LatestStatus) AcceptDescriptor(asked, _ moduleid.ModuleRevisionID, status string) bool {
	if status == "" {
		status = m.Statuses.Lowest()
	}
	want := m.Statuses.Priority(askedStatus(asked))
	got := m.Statuses.Priority(status)
	return want >= 0 && got >= 0 && got <= want
}

// Compare considers the dynamic revision newer than anything it is compared to.
func (LatestStatus) Compare(_, _ moduleid.ModuleRevisionID, _ Comparator) (int, bool) {
	return 0, true
}

// Validate checks that the asked status is known.
func (m LatestStatus) Validate(asked moduleid.ModuleRevisionID) error {
	if !m.Statuses.IsValid(askedStatus(asked)) {
		return &MalformedRevisionError{
			Revision: asked.Revision,
			Matcher:  m.Name(),
			Reason:   "unknown status, expected one of " + strings.Join(m.Statuses.Names(), ", "),
		}
	}
	return nil
}

func askedStatus(asked moduleid.ModuleRevisionID) string {
	return strings.TrimPrefix(asked.Revision, LatestPrefix)
}
