// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"

	"github.com/invowk/trellis/pkg/moduleid"
)

const (
	// KindNotFound means no resolver knows the module revision.
	KindNotFound NodeErrorKind = "not-found"
	// KindNoResolver means no resolver is configured for the module.
	KindNoResolver NodeErrorKind = "no-resolver"
	// KindNoMatchingRevision means no known revision satisfies a dynamic revision.
	KindNoMatchingRevision NodeErrorKind = "no-matching-revision"
	// KindMalformedRevision means the asked revision cannot be parsed.
	KindMalformedRevision NodeErrorKind = "malformed-revision"
	// KindFetch means the resolver failed for another reason.
	KindFetch NodeErrorKind = "fetch"
	// KindInvalidDescriptor means the fetched descriptor failed validation.
	KindInvalidDescriptor NodeErrorKind = "invalid-descriptor"
	// KindConfiguration means a configuration mapping could not be honoured.
	KindConfiguration NodeErrorKind = "configuration"
)

var (
	// ErrCancelled is wrapped by the ResolutionError returned when the context
	// ends before the resolution completes.
	ErrCancelled = errors.New("resolution cancelled")

	// ErrUnknownConflictManager is returned when the root descriptor names a
	// conflict manager the settings do not know.
	ErrUnknownConflictManager = errors.New("unknown conflict manager")

	// ErrNoMatchingRevision is wrapped by node errors of kind
	// KindNoMatchingRevision.
	ErrNoMatchingRevision = errors.New("no matching revision")

	// ErrNoResolver is wrapped by node errors of kind KindNoResolver.
	ErrNoResolver = errors.New("no resolver configured")
)

type (
	// NodeErrorKind classifies recoverable node failures.
	NodeErrorKind string

	// NodeError is a recoverable failure recorded on a node. The resolution
	// continues with the other branches.
	NodeError struct {
		Module moduleid.ModuleRevisionID
		Kind   NodeErrorKind
		Err    error
	}

	// ResolutionError is a failure that aborts the whole resolution: strict
	// conflicts, cycles under the error strategy, cancellation and invalid
	// requests.
	ResolutionError struct {
		Root  moduleid.ModuleRevisionID
		Cause error
	}
)

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Module, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution of %s failed: %v", e.Root, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error { return e.Cause }
