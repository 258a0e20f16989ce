// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/trellis/internal/dag"
	"github.com/invowk/trellis/pkg/circular"
	"github.com/invowk/trellis/pkg/conflict"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/resolver"
)

func TestBuildSettings(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	cfg := DefaultConfig()
	cfg.CircularStrategy = "ignore"
	cfg.Resolvers = []ResolverConfig{
		{Name: "all", Type: ResolverChain, Members: []string{"local", "shared"}},
		{Name: "local", Type: ResolverFilesystem, Root: "repo"},
		{Name: "shared", Type: ResolverFilesystem, Root: "/srv/repo"},
	}
	cfg.DefaultResolver = "all"
	cfg.ConflictManagers = []ConflictManagerConfig{{Name: "pinned", Type: ManagerFixed, Revisions: []string{"1.0"}}}
	cfg.Modules = []ModuleConfig{
		{Organisation: "acme", Module: "*", Matcher: "glob", Resolver: "shared", ConflictManager: "pinned"},
	}
	cfg.Cache.Dir = "cache"

	s, err := BuildSettings(cfg, BuildOptions{BaseDir: base})
	if err != nil {
		t.Fatalf("BuildSettings() error = %v", err)
	}

	acme := moduleid.NewModuleID("acme", "tools")
	other := moduleid.NewModuleID("org", "lib")
	if got := s.ResolverFor(acme).Name(); got != "shared" {
		t.Errorf("ResolverFor(acme) = %s, want shared", got)
	}
	chain, ok := s.ResolverFor(other).(*resolver.Chain)
	if !ok || chain.Name() != "all" || len(chain.Resolvers()) != 2 {
		t.Fatalf("ResolverFor(other) = %v, want the chain", s.ResolverFor(other))
	}
	if fs, ok := chain.Resolvers()[0].(*resolver.FileSystem); !ok || fs.Root() != filepath.Join(base, "repo") {
		t.Errorf("relative root not anchored: %v", chain.Resolvers()[0])
	}
	if got := s.ConflictManagerFor(acme).Name(); got != conflict.FixedName {
		t.Errorf("ConflictManagerFor(acme) = %s", got)
	}
	if got := s.ConflictManagerFor(other).Name(); got != cfg.ConflictManager {
		t.Errorf("ConflictManagerFor(other) = %s", got)
	}
	if s.CircularStrategy() != circular.Ignore {
		t.Errorf("CircularStrategy() = %s", s.CircularStrategy())
	}
	if s.Cache() == nil || s.Cache().Dir() != filepath.Join(base, "cache") {
		t.Errorf("Cache() = %v", s.Cache())
	}

	noCache, err := BuildSettings(cfg, BuildOptions{BaseDir: base, NoCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if noCache.Cache() != nil {
		t.Error("NoCache should disable the cache")
	}
}

func TestBuildSettings_Errors(t *testing.T) {
	t.Parallel()

	cycle := DefaultConfig()
	cycle.Resolvers = []ResolverConfig{
		{Name: "a", Type: ResolverChain, Members: []string{"b"}},
		{Name: "b", Type: ResolverChain, Members: []string{"a"}},
	}
	cycle.DefaultResolver = "a"
	_, err := BuildSettings(cycle, BuildOptions{})
	var cycleErr *dag.CycleError
	if !errors.Is(err, ErrResolverCycle) || !errors.As(err, &cycleErr) {
		t.Errorf("cycle: err = %v, want ErrResolverCycle", err)
	} else if len(cycleErr.Cycle) != 2 {
		t.Errorf("cycle members = %v, want [a b]", cycleErr.Cycle)
	}

	unknownManager := DefaultConfig()
	unknownManager.ConflictManager = "nope"
	if _, err := BuildSettings(unknownManager, BuildOptions{}); err == nil {
		t.Error("unknown default conflict manager accepted")
	}

	badStatuses := DefaultConfig()
	badStatuses.Statuses = []string{"release", "release"}
	if _, err := BuildSettings(badStatuses, BuildOptions{}); err == nil {
		t.Error("duplicate statuses accepted")
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults", func(*Config) {}, nil},
		{"filesystem_without_root", func(c *Config) { c.Resolvers[0].Root = " " }, ErrInvalidResolverConfig},
		{"unknown_resolver_type", func(c *Config) { c.Resolvers[0].Type = "http" }, ErrInvalidResolverConfig},
		{"fixed_without_revisions", func(c *Config) {
			c.ConflictManagers = []ConflictManagerConfig{{Name: "f", Type: ManagerFixed}}
		}, ErrInvalidManagerConfig},
		{"latest_without_strategy", func(c *Config) {
			c.ConflictManagers = []ConflictManagerConfig{{Name: "l", Type: ManagerLatest}}
		}, ErrInvalidManagerConfig},
		{"empty_module_override", func(c *Config) {
			c.Modules = []ModuleConfig{{Organisation: "acme"}}
		}, ErrInvalidModuleConfig},
		{"bad_regexp", func(c *Config) {
			c.Modules = []ModuleConfig{{Organisation: "(", Matcher: "regexp", Resolver: "local"}}
		}, ErrInvalidModuleConfig},
		{"unknown_circular", func(c *Config) { c.CircularStrategy = "panic" }, circular.ErrUnknownStrategy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			valid, errs := cfg.IsValid()
			if tt.want == nil {
				if !valid {
					t.Errorf("IsValid() = %v", errs)
				}
				return
			}
			if valid || len(errs) != 1 {
				t.Fatalf("IsValid() = %v, %v", valid, errs)
			}
			if !errors.Is(errs[0], ErrInvalidConfig) {
				t.Errorf("error does not wrap ErrInvalidConfig: %v", errs[0])
			}
			var ice *InvalidConfigError
			if !errors.As(errs[0], &ice) {
				t.Fatal("want *InvalidConfigError")
			}
			found := false
			for _, fe := range ice.FieldErrors {
				if errors.Is(fe, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("field errors %v do not contain %v", ice.FieldErrors, tt.want)
			}
		})
	}
}

func TestConfig_IsValid_References(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Resolvers = append(cfg.Resolvers,
		cfg.Resolvers[0],
		ResolverConfig{Name: "self", Type: ResolverChain, Members: []string{"self"}},
	)
	cfg.DefaultResolver = "missing"

	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("IsValid() = true")
	}
	var ice *InvalidConfigError
	if !errors.As(errs[0], &ice) {
		t.Fatalf("errs[0] = %v", errs[0])
	}
	msg := ice.Error()
	for _, want := range []string{`duplicate resolver "local"`, `"self" lists itself`, `unknown default resolver "missing"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}
