// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"errors"
	"testing"

	"github.com/invowk/trellis/pkg/circular"
	"github.com/invowk/trellis/pkg/conflict"
	"github.com/invowk/trellis/pkg/latest"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/resolver"
)

func TestBuild_Defaults(t *testing.T) {
	t.Parallel()

	s, err := NewBuilder().AddResolver(resolver.NewMemory("main"), resolver.NewMemory("other")).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := s.DefaultResolverName(); got != "main" {
		t.Errorf("DefaultResolverName() = %q, want main", got)
	}
	if got := s.ResolverFor(moduleid.NewModuleID("org", "x")).Name(); got != "main" {
		t.Errorf("ResolverFor() = %q, want main", got)
	}
	if got := s.DefaultConflictManager().Name(); got != latest.RevisionName {
		t.Errorf("DefaultConflictManager() = %q", got)
	}
	if got := s.DefaultLatestStrategy().Name(); got != latest.RevisionName {
		t.Errorf("DefaultLatestStrategy() = %q", got)
	}
	if s.CircularStrategy() != circular.Warn {
		t.Errorf("CircularStrategy() = %q", s.CircularStrategy())
	}
	if s.Cache() != nil {
		t.Error("Cache() should be nil by default")
	}
	if s.Logger() == nil {
		t.Error("Logger() should never be nil")
	}
	for _, name := range []string{conflict.NoConflictName, conflict.StrictName, latest.RevisionName, latest.TimeName, latest.LexicoName} {
		if _, ok := s.ConflictManager(name); !ok {
			t.Errorf("built-in conflict manager %q missing", name)
		}
	}
	for _, name := range []string{latest.RevisionName, latest.TimeName, latest.LexicoName} {
		if _, ok := s.LatestStrategy(name); !ok {
			t.Errorf("built-in latest strategy %q missing", name)
		}
	}
	if len(s.Matchers().Matchers()) != 4 {
		t.Errorf("Matchers() = %d matchers, want 4", len(s.Matchers().Matchers()))
	}
}

func TestBuild_ModuleRules(t *testing.T) {
	t.Parallel()

	s, err := NewBuilder().
		AddResolver(resolver.NewMemory("main"), resolver.NewMemory("internal")).
		AddConflictManager("pinned", conflict.NewFixed("1.0")).
		AddLatestConflictManager("newest-by-date", latest.TimeName).
		AddModuleRule(ModuleRule{Matcher: moduleid.MustMatcher(moduleid.MatchGlob, "acme*", "*"), Resolver: "internal"}).
		AddModuleRule(ModuleRule{Matcher: moduleid.MustMatcher(moduleid.MatchExact, "org", "strict"), ConflictManager: conflict.StrictName}).
		AddModuleRule(ModuleRule{Matcher: moduleid.MustMatcher(moduleid.MatchExact, "org", "pinned"), ConflictManager: "pinned"}).
		DefaultConflictManager("newest-by-date").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		mod          moduleid.ModuleID
		wantResolver string
		wantManager  string
	}{
		{moduleid.NewModuleID("acme-corp", "lib"), "internal", latest.TimeName},
		{moduleid.NewModuleID("org", "strict"), "main", conflict.StrictName},
		{moduleid.NewModuleID("org", "pinned"), "main", conflict.FixedName},
		{moduleid.NewModuleID("org", "other"), "main", latest.TimeName},
	}
	for _, tt := range tests {
		t.Run(tt.mod.String(), func(t *testing.T) {
			t.Parallel()
			if got := s.ResolverFor(tt.mod).Name(); got != tt.wantResolver {
				t.Errorf("ResolverFor() = %q, want %q", got, tt.wantResolver)
			}
			if got := s.ConflictManagerFor(tt.mod).Name(); got != tt.wantManager {
				t.Errorf("ConflictManagerFor() = %q, want %q", got, tt.wantManager)
			}
		})
	}
}

func TestBuild_UnknownReferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		b    *Builder
	}{
		{"default_resolver", NewBuilder().AddResolver(resolver.NewMemory("a")).DefaultResolver("b")},
		{"duplicate_resolver", NewBuilder().AddResolver(resolver.NewMemory("a"), resolver.NewMemory("a"))},
		{"default_manager", NewBuilder().DefaultConflictManager("nope")},
		{"default_strategy", NewBuilder().DefaultLatestStrategy("nope")},
		{"latest_manager_strategy", NewBuilder().AddLatestConflictManager("x", "nope")},
		{"rule_resolver", NewBuilder().AddModuleRule(ModuleRule{Matcher: moduleid.MustMatcher(moduleid.MatchExact, "o", "m"), Resolver: "nope"})},
		{"rule_manager", NewBuilder().AddModuleRule(ModuleRule{Matcher: moduleid.MustMatcher(moduleid.MatchExact, "o", "m"), ConflictManager: "nope"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.b.Build()
			if !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("Build() error = %v, want ErrInvalidSettings", err)
			}
		})
	}
}

func TestSettings_Immutable(t *testing.T) {
	t.Parallel()

	b := NewBuilder().AddResolver(resolver.NewMemory("main"))
	s, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	b.AddResolver(resolver.NewMemory("late")).DefaultResolver("late")
	if _, ok := s.Resolver("late"); ok {
		t.Error("builder changes leaked into built settings")
	}
	names := s.ResolverNames()
	names[0] = "mutated"
	if s.ResolverNames()[0] != "main" {
		t.Error("ResolverNames() exposes internal state")
	}
}
