// SPDX-License-Identifier: MPL-2.0

package version

import (
	"strings"
	"unicode"
)

// specialMeanings ranks well-known textual qualifiers. Unknown words rank 0.
var specialMeanings = map[string]int{
	"dev":   -1,
	"rc":    1,
	"final": 2,
}

// CompareRevisions orders two static revisions the way "newest wins" tooling
// expects.
//
// Both revisions are split on '.', '-', '_' and '+', and additionally at every
// boundary between a letter and a digit. Parts are compared pairwise: numeric
// parts numerically, a numeric part beats a textual one, textual parts by their
// special meaning (dev < unknown < rc < final) and then as plain strings. When
// one revision runs out of parts, a remaining numeric part makes the longer one
// newer and a remaining textual part makes it older:
//
//	1.0-dev < 1.0-beta < 1.0-rc1 < 1.0 < 1.0.1 < 1.2 < 1.10 < 2.0-dev
func CompareRevisions(a, b string) int {
	if a == b {
		return 0
	}
	pa, pb := splitRevision(a), splitRevision(b)

	i := 0
	for ; i < len(pa) && i < len(pb); i++ {
		if pa[i] == pb[i] {
			continue
		}
		na, nb := isNumber(pa[i]), isNumber(pb[i])
		switch {
		case na && nb:
			if c := compareNumeric(pa[i], pb[i]); c != 0 {
				return c
			}
			continue
		case na:
			return 1
		case nb:
			return -1
		}
		sa, okA := specialMeanings[strings.ToLower(pa[i])]
		sb, okB := specialMeanings[strings.ToLower(pb[i])]
		if okA || okB {
			return compareInt(sa, sb)
		}
		return strings.Compare(pa[i], pb[i])
	}
	if i < len(pa) {
		if isNumber(pa[i]) {
			return 1
		}
		return -1
	}
	if i < len(pb) {
		if isNumber(pb[i]) {
			return -1
		}
		return 1
	}
	return 0
}

func splitRevision(rev string) []string {
	var (
		parts []string
		cur   strings.Builder
		prev  rune
	)
	flush := func() {
		parts = append(parts, cur.String())
		cur.Reset()
	}
	for i, r := range rev {
		switch {
		case r == '.' || r == '-' || r == '_' || r == '+':
			flush()
			prev = 0
			continue
		case i > 0 && prev != 0 && letterDigitBoundary(prev, r):
			flush()
		}
		cur.WriteRune(r)
		prev = r
	}
	flush()
	return parts
}

func letterDigitBoundary(prev, r rune) bool {
	return (unicode.IsLetter(prev) && unicode.IsDigit(r)) || (unicode.IsDigit(prev) && unicode.IsLetter(r))
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// compareNumeric compares decimal digit strings of any length.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return compareInt(len(a), len(b))
	}
	return strings.Compare(a, b)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
