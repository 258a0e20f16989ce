// SPDX-License-Identifier: MPL-2.0

// Package settings holds the immutable configuration a resolution runs with:
// resolvers, conflict managers, latest strategies, version matchers, statuses,
// the circular dependency strategy and the optional descriptor cache.
//
// Settings are assembled with a Builder and never change afterwards, so one
// value can be shared by concurrent resolutions.
package settings

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/invowk/trellis/pkg/cache"
	"github.com/invowk/trellis/pkg/circular"
	"github.com/invowk/trellis/pkg/conflict"
	"github.com/invowk/trellis/pkg/latest"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/resolver"
	"github.com/invowk/trellis/pkg/version"
)

// DefaultConflictManager is the manager used when none is configured.
const DefaultConflictManager = latest.RevisionName

// ErrInvalidSettings is returned by Build when references do not resolve.
var ErrInvalidSettings = errors.New("invalid settings")

type (
	// ModuleRule overrides the resolver and/or conflict manager of the modules
	// selected by Matcher. Empty names keep the defaults.
	ModuleRule struct {
		Matcher         moduleid.Matcher
		Resolver        string
		ConflictManager string
	}

	// Settings is the resolution configuration. The zero value is not usable;
	// use a Builder.
	Settings struct {
		resolvers       map[string]resolver.DependencyResolver
		resolverNames   []string
		defaultResolver string
		rules           []ModuleRule

		managers        map[string]conflict.Manager
		conflicts       *conflict.Table
		defaultManager  string
		strategies      map[string]latest.Strategy
		defaultStrategy string

		matchers *version.Chain
		statuses version.Statuses
		circular circular.Strategy
		cache    *cache.Manager
		logger   *log.Logger
	}
)

// ResolverFor returns the resolver of a module: the first matching rule naming
// a resolver, otherwise the default. It returns nil when no resolver is
// registered.
func (s *Settings) ResolverFor(mod moduleid.ModuleID) resolver.DependencyResolver {
	for _, r := range s.rules {
		if r.Resolver != "" && r.Matcher.Matches(mod) {
			return s.resolvers[r.Resolver]
		}
	}
	return s.resolvers[s.defaultResolver]
}

// Resolver returns a registered resolver by name.
func (s *Settings) Resolver(name string) (resolver.DependencyResolver, bool) {
	r, ok := s.resolvers[name]
	return r, ok
}

// ResolverNames returns the registered resolver names in registration order.
func (s *Settings) ResolverNames() []string { return slices.Clone(s.resolverNames) }

// DefaultResolverName returns the name of the default resolver.
func (s *Settings) DefaultResolverName() string { return s.defaultResolver }

// ConflictManagerFor returns the manager of a module from the module rules,
// otherwise the default manager.
func (s *Settings) ConflictManagerFor(mod moduleid.ModuleID) conflict.Manager {
	return s.conflicts.For(mod)
}

// ConflictManager returns a registered manager by name.
func (s *Settings) ConflictManager(name string) (conflict.Manager, bool) {
	m, ok := s.managers[name]
	return m, ok
}

// DefaultConflictManager returns the fallback conflict manager.
func (s *Settings) DefaultConflictManager() conflict.Manager { return s.conflicts.Default() }

// LatestStrategy returns a registered latest strategy by name.
func (s *Settings) LatestStrategy(name string) (latest.Strategy, bool) {
	st, ok := s.strategies[name]
	return st, ok
}

// DefaultLatestStrategy returns the strategy used to pick among dynamic
// revision candidates.
func (s *Settings) DefaultLatestStrategy() latest.Strategy { return s.strategies[s.defaultStrategy] }

// Matchers returns the version matcher chain.
func (s *Settings) Matchers() *version.Chain { return s.matchers }

// Statuses returns the ordered status list.
func (s *Settings) Statuses() version.Statuses { return s.statuses }

// CircularStrategy returns the strategy applied to dependency cycles.
func (s *Settings) CircularStrategy() circular.Strategy { return s.circular }

// Cache returns the descriptor cache, or nil when caching is disabled.
func (s *Settings) Cache() *cache.Manager { return s.cache }

// Logger returns the logger resolutions report diagnostics to.
func (s *Settings) Logger() *log.Logger { return s.logger }

// ModuleRules returns the per-module rules in registration order.
func (s *Settings) ModuleRules() []ModuleRule { return slices.Clone(s.rules) }

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func unknown(kind, name string) error {
	return fmt.Errorf("%w: unknown %s %q", ErrInvalidSettings, kind, name)
}
