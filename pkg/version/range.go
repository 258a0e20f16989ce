// SPDX-License-Identifier: MPL-2.0

package version

import (
	"strings"

	"github.com/invowk/trellis/pkg/moduleid"
)

type (
	// Range matches bracketed revision ranges:
	//
	//	[1.0,2.0]  1.0 <= x <= 2.0
	//	[1.0,2.0[  1.0 <= x <  2.0  (also written [1.0,2.0))
	//	]1.0,2.0]  1.0 <  x <= 2.0  (also written (1.0,2.0])
	//	[1.0,)     1.0 <= x
	//	(,2.0]     x <= 2.0
	//
	// Bounds are compared with the static comparator given at construction,
	// CompareRevisions when nil.
	Range struct {
		Comparator Comparator
	}

	// Bounds is a parsed range. Empty Lower or Upper means unbounded.
	Bounds struct {
		Lower          string
		Upper          string
		LowerInclusive bool
		UpperInclusive bool
	}
)

// Name returns "range".
func (Range) Name() string { return "range" }

// IsDynamic reports whether the revision opens with a range bracket. Such a
// revision is a range even when it turns out to be malformed, so that Validate
// reports it.
func (Range) IsDynamic(asked moduleid.ModuleRevisionID) bool {
	r := asked.Revision
	return r != "" && strings.ContainsRune("[](", rune(r[0]))
}

// Accept reports whether the found revision lies inside the range. A malformed
// range accepts nothing.
func (m Range) Accept(asked, found moduleid.ModuleRevisionID) bool {
	b, err := ParseRange(asked.Revision, m.cmp())
	if err != nil {
		return false
	}
	return b.Contains(found.Revision, m.cmp())
}

// NeedModuleDescriptor always returns false.
func (Range) NeedModuleDescriptor(_, _ moduleid.ModuleRevisionID) bool { return false }

// AcceptDescriptor delegates to Accept.
func (m Range) AcceptDescriptor(asked, found moduleid.ModuleRevisionID, _ string) bool {
	return m.Accept(asked, found)
}

// Compare considers an open-ended range newer than everything. Otherwise the
// upper bound is compared statically; a tie means the range is older, since it
// cannot be assumed to exceed its own bound.
func (m Range) Compare(asked, found moduleid.ModuleRevisionID, cmp Comparator) (int, bool) {
	b, err := ParseRange(asked.Revision, m.cmp())
	if err != nil {
		return 0, false
	}
	if b.Upper == "" {
		return 1, true
	}
	if c := cmp(b.Upper, found.Revision); c != 0 {
		return c, true
	}
	return -1, true
}

// Validate parses the range.
func (m Range) Validate(asked moduleid.ModuleRevisionID) error {
	_, err := ParseRange(asked.Revision, m.cmp())
	return err
}

func (m Range) cmp() Comparator {
	if m.Comparator == nil {
		return CompareRevisions
	}
	return m.Comparator
}

// ParseRange parses a bracketed range, failing with MalformedRevisionError.
func ParseRange(rev string, cmp Comparator) (Bounds, error) {
	fail := func(reason string) (Bounds, error) {
		return Bounds{}, &MalformedRevisionError{Revision: rev, Matcher: "range", Reason: reason}
	}
	if cmp == nil {
		cmp = CompareRevisions
	}

	s := strings.TrimSpace(rev)
	if len(s) < 3 {
		return fail("too short")
	}
	var b Bounds
	switch s[0] {
	case '[':
		b.LowerInclusive = true
	case ']', '(':
	default:
		return fail("expected '[', ']' or '(' as lower bracket")
	}
	switch s[len(s)-1] {
	case ']':
		b.UpperInclusive = true
	case '[', ')':
	default:
		return fail("expected ']', '[' or ')' as upper bracket")
	}

	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return fail("expected exactly two bounds separated by ','")
	}
	b.Lower = strings.TrimSpace(parts[0])
	b.Upper = strings.TrimSpace(parts[1])
	if b.Lower == "" && b.Upper == "" {
		return fail("both bounds are empty")
	}
	if b.Lower == "" && b.LowerInclusive {
		return fail("open lower bound must use '(' or ']'")
	}
	if b.Upper == "" && b.UpperInclusive {
		return fail("open upper bound must use ')' or '['")
	}
	if strings.ContainsAny(b.Lower+b.Upper, "[]()") {
		return fail("nested brackets")
	}
	if b.Lower != "" && b.Upper != "" && cmp(b.Lower, b.Upper) > 0 {
		return fail("lower bound is greater than upper bound")
	}
	return b, nil
}

// Contains reports whether rev lies within the bounds.
func (b Bounds) Contains(rev string, cmp Comparator) bool {
	if b.Lower != "" {
		c := cmp(rev, b.Lower)
		if c < 0 || (c == 0 && !b.LowerInclusive) {
			return false
		}
	}
	if b.Upper != "" {
		c := cmp(rev, b.Upper)
		if c > 0 || (c == 0 && !b.UpperInclusive) {
			return false
		}
	}
	return true
}
