// SPDX-License-Identifier: MPL-2.0

package version

import "github.com/invowk/trellis/pkg/moduleid"

// Exact matches a revision only by equality. It never claims a revision dynamic.
type Exact struct{}

// Name returns "exact".
func (Exact) Name() string { return "exact" }

// IsDynamic always returns false.
func (Exact) IsDynamic(moduleid.ModuleRevisionID) bool { return false }

// Accept reports whether both revisions are identical.
func (Exact) Accept(asked, found moduleid.ModuleRevisionID) bool {
	return asked.Revision == found.Revision
}

// NeedModuleDescriptor always returns false.
func (Exact) NeedModuleDescriptor(_, _ moduleid.ModuleRevisionID) bool { return false }

// AcceptDescriptor delegates to Accept.
func (e Exact) AcceptDescriptor(asked, found moduleid.ModuleRevisionID, _ string) bool {
	return e.Accept(asked, found)
}

// Compare uses the static comparator.
func (Exact) Compare(asked, found moduleid.ModuleRevisionID, cmp Comparator) (int, bool) {
	return cmp(asked.Revision, found.Revision), true
}

// Validate always succeeds.
func (Exact) Validate(moduleid.ModuleRevisionID) error { return nil }
