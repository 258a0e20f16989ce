// SPDX-License-Identifier: MPL-2.0

package version

import (
	"strings"

	"github.com/invowk/trellis/pkg/moduleid"
)

// SubRevision matches "1.0+": every revision starting with "1.0".
type SubRevision struct{}

// Name returns "sub-revision".
func (SubRevision) Name() string { return "sub-revision" }

// IsDynamic reports whether the revision ends with '+'.
func (SubRevision) IsDynamic(asked moduleid.ModuleRevisionID) bool {
	return strings.HasSuffix(asked.Revision, "+")
}

// Accept reports whether the found revision starts with the asked prefix.
func (SubRevision) Accept(asked, found moduleid.ModuleRevisionID) bool {
	return strings.HasPrefix(found.Revision, subPrefix(asked))
}

// NeedModuleDescriptor always returns false.
func (SubRevision) NeedModuleDescriptor(_, _ moduleid.ModuleRevisionID) bool { return false }

// AcceptDescriptor delegates to Accept.
func (s SubRevision) AcceptDescriptor(asked, found moduleid.ModuleRevisionID, _ string) bool {
	return s.Accept(asked, found)
}

// Compare treats "1.0+" as newer than any revision it accepts and otherwise
// compares the prefix statically.
func (SubRevision) Compare(asked, found moduleid.ModuleRevisionID, cmp Comparator) (int, bool) {
	prefix := subPrefix(asked)
	if strings.HasPrefix(found.Revision, prefix) {
		return 1, true
	}
	return cmp(prefix, found.Revision), true
}

// Validate always succeeds; a bare "+" accepts everything.
func (SubRevision) Validate(moduleid.ModuleRevisionID) error { return nil }

func subPrefix(asked moduleid.ModuleRevisionID) string {
	return strings.TrimSuffix(asked.Revision, "+")
}
