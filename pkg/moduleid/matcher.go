// SPDX-License-Identifier: MPL-2.0

package moduleid

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// MatchExact compares organisation and name literally.
	MatchExact MatcherKind = "exact"
	// MatchGlob treats organisation and name as globs ('*', '?', '[...]',
	// '{a,b}').
	MatchGlob MatcherKind = "glob"
	// MatchRegexp treats organisation and name as anchored regular expressions.
	MatchRegexp MatcherKind = "regexp"

	// AnyPattern matches every organisation or name, whatever the matcher kind.
	AnyPattern = "*"
)

// ErrInvalidMatcher is the sentinel error wrapped by InvalidMatcherError.
var ErrInvalidMatcher = errors.New("invalid module matcher")

type (
	// MatcherKind selects how the patterns of a Matcher are interpreted.
	MatcherKind string

	// Matcher selects module ids by organisation and name patterns.
	// The zero-value patterns ("") behave like AnyPattern.
	Matcher struct {
		Kind         MatcherKind
		Organisation string
		Name         string

		orgRE  *regexp.Regexp
		nameRE *regexp.Regexp
	}

	// InvalidMatcherError is returned when a matcher pattern cannot be compiled.
	InvalidMatcherError struct {
		Kind    MatcherKind
		Pattern string
		Cause   error
	}
)

// Error implements the error interface.
func (e *InvalidMatcherError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s pattern %q: %v", e.Kind, e.Pattern, e.Cause)
	}
	return fmt.Sprintf("invalid matcher kind %q", e.Kind)
}

// Unwrap returns ErrInvalidMatcher for errors.Is() compatibility.
func (e *InvalidMatcherError) Unwrap() error { return ErrInvalidMatcher }

// NewMatcher builds a matcher and validates its patterns.
func NewMatcher(kind MatcherKind, org, name string) (Matcher, error) {
	if kind == "" {
		kind = MatchExact
	}
	m := Matcher{Kind: kind, Organisation: org, Name: name}
	switch kind {
	case MatchExact:
	case MatchGlob:
		for _, p := range []string{org, name} {
			if !doublestar.ValidatePattern(p) {
				return Matcher{}, &InvalidMatcherError{Kind: kind, Pattern: p, Cause: doublestar.ErrBadPattern}
			}
		}
	case MatchRegexp:
		var err error
		if m.orgRE, err = compileAnchored(org); err != nil {
			return Matcher{}, &InvalidMatcherError{Kind: kind, Pattern: org, Cause: err}
		}
		if m.nameRE, err = compileAnchored(name); err != nil {
			return Matcher{}, &InvalidMatcherError{Kind: kind, Pattern: name, Cause: err}
		}
	default:
		return Matcher{}, &InvalidMatcherError{Kind: kind}
	}
	return m, nil
}

// MustMatcher is like NewMatcher but panics on invalid patterns.
func MustMatcher(kind MatcherKind, org, name string) Matcher {
	m, err := NewMatcher(kind, org, name)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches reports whether the module id is selected by the matcher.
func (m Matcher) Matches(id ModuleID) bool {
	return m.matchOne(m.Organisation, m.orgRE, id.Organisation) &&
		m.matchOne(m.Name, m.nameRE, id.Name)
}

// String renders the matcher as "kind:org#name".
func (m Matcher) String() string {
	return fmt.Sprintf("%s:%s#%s", m.Kind, m.Organisation, m.Name)
}

func (m Matcher) matchOne(pattern string, re *regexp.Regexp, value string) bool {
	if re != nil {
		return re.MatchString(value)
	}
	return MatchPattern(m.Kind, pattern, value)
}

// MatchPattern matches a single value against a pattern of the given kind.
// An empty pattern and AnyPattern match everything. Invalid patterns match
// nothing.
func MatchPattern(kind MatcherKind, pattern, value string) bool {
	if pattern == "" || pattern == AnyPattern {
		return true
	}
	switch kind {
	case MatchGlob:
		ok, err := doublestar.Match(pattern, value)
		return err == nil && ok
	case MatchRegexp:
		re, err := compileAnchored(pattern)
		return err == nil && re.MatchString(value)
	default:
		return pattern == value
	}
}

func compileAnchored(pattern string) (*regexp.Regexp, error) {
	if pattern == "" || pattern == AnyPattern {
		return nil, nil
	}
	return regexp.Compile("^(?:" + pattern + ")$")
}
