// SPDX-License-Identifier: MPL-2.0

// Package latest orders candidate revisions and picks the newest one.
//
// Three strategies are built in: latest-revision (revision comparator with
// numeric segments and qualifier ranks), latest-time (publication date) and
// latest-lexico (plain string order). Every strategy honours an optional date
// cutoff in FindLatest.
package latest

import (
	"slices"
	"strings"
	"time"

	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/version"
)

const (
	// RevisionName is the name of the revision-order strategy.
	RevisionName = "latest-revision"
	// TimeName is the name of the publication-date strategy.
	TimeName = "latest-time"
	// LexicoName is the name of the lexicographic strategy.
	LexicoName = "latest-lexico"
)

type (
	// ArtifactInfo is a candidate seen by a strategy. A zero LastModified means
	// the publication date is unknown.
	ArtifactInfo interface {
		GetRevision() string
		GetLastModified() time.Time
	}

	// Info is the plain ArtifactInfo implementation.
	Info struct {
		Revision     string
		LastModified time.Time
	}

	// Strategy orders candidates from oldest to newest.
	Strategy interface {
		Name() string
		// Sort returns a new slice ordered oldest first. Equivalent candidates
		// keep their input order.
		Sort(infos []ArtifactInfo) []ArtifactInfo
		// FindLatest returns the newest candidate published no later than date,
		// or nil when none qualifies. A zero date disables the cutoff.
		FindLatest(infos []ArtifactInfo, date time.Time) ArtifactInfo
	}

	// RevisionStrategy is latest-revision.
	RevisionStrategy struct {
		matcher version.Matcher
	}

	// TimeStrategy is latest-time.
	TimeStrategy struct {
		revisions *RevisionStrategy
	}

	// LexicoStrategy is latest-lexico.
	LexicoStrategy struct{}
)

// GetRevision implements ArtifactInfo.
func (i Info) GetRevision() string { return i.Revision }

// GetLastModified implements ArtifactInfo.
func (i Info) GetLastModified() time.Time { return i.LastModified }

// Infos wraps revisions without publication dates.
func Infos(revisions ...string) []ArtifactInfo {
	out := make([]ArtifactInfo, len(revisions))
	for i, r := range revisions {
		out[i] = Info{Revision: r}
	}
	return out
}

// NewRevisionStrategy creates latest-revision. The matcher, usually the
// version chain, orders dynamic revisions against static ones; nil treats every
// revision as static.
func NewRevisionStrategy(matcher version.Matcher) *RevisionStrategy {
	return &RevisionStrategy{matcher: matcher}
}

// Name returns "latest-revision".
func (s *RevisionStrategy) Name() string { return RevisionName }

// Compare orders two revisions.
func (s *RevisionStrategy) Compare(a, b string) int {
	if s.matcher != nil {
		ma, mb := moduleid.ModuleRevisionID{Revision: a}, moduleid.ModuleRevisionID{Revision: b}
		da, db := s.matcher.IsDynamic(ma), s.matcher.IsDynamic(mb)
		switch {
		case da && !db:
			if c, ok := s.matcher.Compare(ma, mb, version.CompareRevisions); ok {
				return dynamicSign(c)
			}
		case db && !da:
			if c, ok := s.matcher.Compare(mb, ma, version.CompareRevisions); ok {
				return -dynamicSign(c)
			}
		}
	}
	return version.CompareRevisions(a, b)
}

// Sort implements Strategy.
func (s *RevisionStrategy) Sort(infos []ArtifactInfo) []ArtifactInfo {
	return sortBy(infos, func(a, b ArtifactInfo) int {
		return s.Compare(a.GetRevision(), b.GetRevision())
	})
}

// FindLatest implements Strategy.
func (s *RevisionStrategy) FindLatest(infos []ArtifactInfo, date time.Time) ArtifactInfo {
	return findLatest(s.Sort(infos), date)
}

// NewTimeStrategy creates latest-time. Ties on the publication date fall back
// to revision order using matcher, as in NewRevisionStrategy.
func NewTimeStrategy(matcher version.Matcher) *TimeStrategy {
	return &TimeStrategy{revisions: NewRevisionStrategy(matcher)}
}

// Name returns "latest-time".
func (s *TimeStrategy) Name() string { return TimeName }

// Sort implements Strategy.
func (s *TimeStrategy) Sort(infos []ArtifactInfo) []ArtifactInfo {
	return sortBy(infos, func(a, b ArtifactInfo) int {
		if c := a.GetLastModified().Compare(b.GetLastModified()); c != 0 {
			return c
		}
		return s.revisions.Compare(a.GetRevision(), b.GetRevision())
	})
}

// FindLatest implements Strategy.
func (s *TimeStrategy) FindLatest(infos []ArtifactInfo, date time.Time) ArtifactInfo {
	return findLatest(s.Sort(infos), date)
}

// Name returns "latest-lexico".
func (LexicoStrategy) Name() string { return LexicoName }

// Sort implements Strategy.
func (LexicoStrategy) Sort(infos []ArtifactInfo) []ArtifactInfo {
	return sortBy(infos, func(a, b ArtifactInfo) int {
		return strings.Compare(a.GetRevision(), b.GetRevision())
	})
}

// FindLatest implements Strategy.
func (s LexicoStrategy) FindLatest(infos []ArtifactInfo, date time.Time) ArtifactInfo {
	return findLatest(s.Sort(infos), date)
}

// Eligible reports whether info passes the date cutoff.
func Eligible(info ArtifactInfo, date time.Time) bool {
	if date.IsZero() {
		return true
	}
	lm := info.GetLastModified()
	return lm.IsZero() || !lm.After(date)
}

func sortBy(infos []ArtifactInfo, cmp func(a, b ArtifactInfo) int) []ArtifactInfo {
	out := slices.Clone(infos)
	slices.SortStableFunc(out, cmp)
	return out
}

func findLatest(sorted []ArtifactInfo, date time.Time) ArtifactInfo {
	for i := len(sorted) - 1; i >= 0; i-- {
		if Eligible(sorted[i], date) {
			return sorted[i]
		}
	}
	return nil
}

// A dynamic revision is newer unless its matcher says it is strictly older.
func dynamicSign(c int) int {
	if c >= 0 {
		return 1
	}
	return -1
}
