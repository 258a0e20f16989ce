// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"
	"slices"
)

const (
	// StatusRelease is the highest built-in status.
	StatusRelease = "release"
	// StatusMilestone sits between release and integration.
	StatusMilestone = "milestone"
	// StatusIntegration is the lowest built-in status and the default one.
	StatusIntegration = "integration"
)

// ErrInvalidStatuses is returned when a status list is empty or has duplicates.
var ErrInvalidStatuses = errors.New("invalid status list")

// Statuses is an ordered list of publication statuses, highest first.
type Statuses struct {
	names []string
}

// DefaultStatuses returns release, milestone, integration.
func DefaultStatuses() Statuses {
	return Statuses{names: []string{StatusRelease, StatusMilestone, StatusIntegration}}
}

// NewStatuses builds a status list ordered highest first.
func NewStatuses(names ...string) (Statuses, error) {
	if len(names) == 0 {
		return Statuses{}, fmt.Errorf("%w: no statuses", ErrInvalidStatuses)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			return Statuses{}, fmt.Errorf("%w: empty or duplicate status %q", ErrInvalidStatuses, n)
		}
		seen[n] = true
	}
	return Statuses{names: slices.Clone(names)}, nil
}

// Names returns a copy of the statuses, highest first.
func (s Statuses) Names() []string {
	return slices.Clone(s.list())
}

// Priority returns the rank of status (0 is highest), or -1 when unknown.
func (s Statuses) Priority(status string) int {
	return slices.Index(s.list(), status)
}

// IsValid reports whether the status is known.
func (s Statuses) IsValid(status string) bool {
	return s.Priority(status) >= 0
}

// Lowest returns the lowest status, which is also the default status of
// descriptors that do not declare one.
func (s Statuses) Lowest() string {
	l := s.list()
	return l[len(l)-1]
}

func (s Statuses) list() []string {
	if len(s.names) == 0 {
		return DefaultStatuses().names
	}
	return s.names
}
