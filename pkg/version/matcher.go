// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"

	"github.com/invowk/trellis/pkg/moduleid"
)

// ErrMalformedRevision is the sentinel error wrapped by MalformedRevisionError.
var ErrMalformedRevision = errors.New("malformed revision")

type (
	// Comparator orders two static revisions, returning a negative number when a
	// is older than b, zero when equivalent, positive when newer.
	Comparator func(a, b string) int

	// Matcher is a pluggable revision predicate.
	//
	// IsDynamic reports whether the matcher claims the asked revision. Accept is
	// the static check against a found revision; when NeedModuleDescriptor says
	// so, AcceptDescriptor is called once the found module's status is known.
	// Compare tells whether the dynamic asked revision should be considered
	// older (<0) or newer (>=0) than a static found one; ok is false when the
	// matcher cannot tell.
	Matcher interface {
		Name() string
		IsDynamic(asked moduleid.ModuleRevisionID) bool
		Accept(asked, found moduleid.ModuleRevisionID) bool
		NeedModuleDescriptor(asked, found moduleid.ModuleRevisionID) bool
		AcceptDescriptor(asked, found moduleid.ModuleRevisionID, status string) bool
		Compare(asked, found moduleid.ModuleRevisionID, cmp Comparator) (int, bool)
		Validate(asked moduleid.ModuleRevisionID) error
	}

	// MalformedRevisionError is returned when a dynamic revision cannot be parsed.
	MalformedRevisionError struct {
		Revision string
		Matcher  string
		Reason   string
	}
)

// Error implements the error interface.
func (e *MalformedRevisionError) Error() string {
	return fmt.Sprintf("malformed %s revision %q: %s", e.Matcher, e.Revision, e.Reason)
}

// Unwrap returns ErrMalformedRevision for errors.Is() compatibility.
func (e *MalformedRevisionError) Unwrap() error { return ErrMalformedRevision }
