// SPDX-License-Identifier: MPL-2.0

package moduleid

import (
	"errors"
	"testing"
)

func TestMatcher_Matches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		kind  MatcherKind
		org   string
		mod   string
		id    ModuleID
		match bool
	}{
		{"exact_hit", MatchExact, "org", "mod", NewModuleID("org", "mod"), true},
		{"exact_miss", MatchExact, "org", "mod", NewModuleID("org", "other"), false},
		{"exact_any_name", MatchExact, "org", AnyPattern, NewModuleID("org", "whatever"), true},
		{"empty_patterns", MatchExact, "", "", NewModuleID("x", "y"), true},
		{"glob_prefix", MatchGlob, "com.*", "core-?", NewModuleID("com.acme", "core-1"), true},
		{"glob_miss", MatchGlob, "com.*", "core-?", NewModuleID("org.acme", "core-1"), false},
		{"glob_alternatives", MatchGlob, "{com,org}.acme", "core-{api,impl}", NewModuleID("org.acme", "core-impl"), true},
		{"glob_alternatives_miss", MatchGlob, "{com,org}.acme", "core-{api,impl}", NewModuleID("org.acme", "core-test"), false},
		{"regexp_hit", MatchRegexp, "org|com", "lib[0-9]+", NewModuleID("com", "lib42"), true},
		{"regexp_anchored", MatchRegexp, "org", "lib", NewModuleID("org", "mylib"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := NewMatcher(tt.kind, tt.org, tt.mod)
			if err != nil {
				t.Fatalf("NewMatcher() error: %v", err)
			}
			if got := m.Matches(tt.id); got != tt.match {
				t.Errorf("%v.Matches(%v) = %v, want %v", m, tt.id, got, tt.match)
			}
		})
	}
}

func TestMatcher_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := NewMatcher(MatchRegexp, "(", "x"); !errors.Is(err, ErrInvalidMatcher) {
		t.Errorf("bad regexp error = %v, want ErrInvalidMatcher", err)
	}
	if _, err := NewMatcher(MatchGlob, "[", "x"); !errors.Is(err, ErrInvalidMatcher) {
		t.Errorf("bad glob error = %v, want ErrInvalidMatcher", err)
	}
	if _, err := NewMatcher("fuzzy", "a", "b"); !errors.Is(err, ErrInvalidMatcher) {
		t.Errorf("unknown kind error = %v, want ErrInvalidMatcher", err)
	}
}

func TestMatcher_LiteralRegexp(t *testing.T) {
	t.Parallel()

	m := Matcher{Kind: MatchRegexp, Organisation: "o.*", Name: "n"}
	if !m.Matches(NewModuleID("org", "n")) {
		t.Error("struct-literal regexp matcher should compile lazily")
	}
}
