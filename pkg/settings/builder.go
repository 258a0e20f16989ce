// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/invowk/trellis/pkg/cache"
	"github.com/invowk/trellis/pkg/circular"
	"github.com/invowk/trellis/pkg/conflict"
	"github.com/invowk/trellis/pkg/latest"
	"github.com/invowk/trellis/pkg/resolver"
	"github.com/invowk/trellis/pkg/version"
)

type (
	// Builder assembles Settings. Methods return the builder for chaining;
	// problems are reported by Build.
	Builder struct {
		resolvers       []resolver.DependencyResolver
		defaultResolver string
		rules           []ModuleRule
		managers        []namedManager
		defaultManager  string
		strategies      []latest.Strategy
		defaultStrategy string
		extraMatchers   []version.Matcher
		statuses        version.Statuses
		circular        circular.Strategy
		cache           *cache.Manager
		logger          *log.Logger
	}

	// namedManager is either a ready manager or a latest manager to build from
	// a strategy name once the strategies exist.
	namedManager struct {
		name     string
		manager  conflict.Manager
		strategy string
	}
)

// NewBuilder returns a builder with the built-in defaults: latest-revision
// conflict manager and strategy, default statuses and the warn circular
// strategy.
func NewBuilder() *Builder {
	return &Builder{
		defaultManager:  DefaultConflictManager,
		defaultStrategy: latest.RevisionName,
		statuses:        version.DefaultStatuses(),
		circular:        circular.Warn,
	}
}

// AddResolver registers resolvers under their names. The first one becomes the
// default unless DefaultResolver is called.
func (b *Builder) AddResolver(rs ...resolver.DependencyResolver) *Builder {
	b.resolvers = append(b.resolvers, rs...)
	return b
}

// DefaultResolver selects the default resolver by name.
func (b *Builder) DefaultResolver(name string) *Builder {
	b.defaultResolver = name
	return b
}

// AddModuleRule appends a per-module override.
func (b *Builder) AddModuleRule(r ModuleRule) *Builder {
	b.rules = append(b.rules, r)
	return b
}

// AddConflictManager registers a manager under name.
func (b *Builder) AddConflictManager(name string, m conflict.Manager) *Builder {
	b.managers = append(b.managers, namedManager{name: name, manager: m})
	return b
}

// AddLatestConflictManager registers a latest manager driven by the named
// strategy.
func (b *Builder) AddLatestConflictManager(name, strategy string) *Builder {
	b.managers = append(b.managers, namedManager{name: name, strategy: strategy})
	return b
}

// DefaultConflictManager selects the default manager by name.
func (b *Builder) DefaultConflictManager(name string) *Builder {
	b.defaultManager = name
	return b
}

// AddLatestStrategy registers a custom latest strategy under its name.
func (b *Builder) AddLatestStrategy(s latest.Strategy) *Builder {
	b.strategies = append(b.strategies, s)
	return b
}

// DefaultLatestStrategy selects the strategy used for dynamic revisions.
func (b *Builder) DefaultLatestStrategy(name string) *Builder {
	b.defaultStrategy = name
	return b
}

// AddMatcher registers a version matcher after the built-in ones.
func (b *Builder) AddMatcher(m ...version.Matcher) *Builder {
	b.extraMatchers = append(b.extraMatchers, m...)
	return b
}

// Statuses sets the ordered status list.
func (b *Builder) Statuses(s version.Statuses) *Builder {
	b.statuses = s
	return b
}

// CircularStrategy sets the strategy applied to cycles.
func (b *Builder) CircularStrategy(s circular.Strategy) *Builder {
	b.circular = s
	return b
}

// Cache enables the descriptor cache.
func (b *Builder) Cache(m *cache.Manager) *Builder {
	b.cache = m
	return b
}

// Logger sets the diagnostics logger.
func (b *Builder) Logger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates the references between registered parts and returns the
// immutable Settings.
func (b *Builder) Build() (*Settings, error) {
	s := &Settings{
		resolvers:  make(map[string]resolver.DependencyResolver, len(b.resolvers)),
		managers:   make(map[string]conflict.Manager),
		strategies: make(map[string]latest.Strategy),
		rules:      append([]ModuleRule(nil), b.rules...),
		statuses:   b.statuses,
		circular:   b.circular,
		cache:      b.cache,
		logger:     b.logger,
	}
	if s.logger == nil {
		s.logger = discardLogger()
	}
	if s.circular == "" {
		s.circular = circular.Warn
	}
	s.matchers = version.DefaultChain(s.statuses, b.extraMatchers...)

	var errs []error
	for _, r := range b.resolvers {
		if _, dup := s.resolvers[r.Name()]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate resolver %q", ErrInvalidSettings, r.Name()))
			continue
		}
		s.resolvers[r.Name()] = r
		s.resolverNames = append(s.resolverNames, r.Name())
	}
	s.defaultResolver = b.defaultResolver
	if s.defaultResolver == "" && len(s.resolverNames) > 0 {
		s.defaultResolver = s.resolverNames[0]
	}
	if s.defaultResolver != "" && s.resolvers[s.defaultResolver] == nil {
		errs = append(errs, unknown("resolver", s.defaultResolver))
	}

	for _, st := range []latest.Strategy{
		latest.NewRevisionStrategy(s.matchers),
		latest.NewTimeStrategy(s.matchers),
		latest.LexicoStrategy{},
	} {
		s.strategies[st.Name()] = st
	}
	for _, st := range b.strategies {
		s.strategies[st.Name()] = st
	}
	s.defaultStrategy = b.defaultStrategy
	if s.strategies[s.defaultStrategy] == nil {
		errs = append(errs, unknown("latest strategy", s.defaultStrategy))
	}

	s.managers[conflict.NoConflictName] = conflict.NoConflict{}
	s.managers[conflict.StrictName] = conflict.Strict{}
	for name, st := range s.strategies {
		s.managers[name] = conflict.NewLatest(st)
	}
	for _, nm := range b.managers {
		if nm.manager != nil {
			s.managers[nm.name] = nm.manager
			continue
		}
		st, ok := s.strategies[nm.strategy]
		if !ok {
			errs = append(errs, unknown("latest strategy", nm.strategy))
			continue
		}
		s.managers[nm.name] = conflict.NewLatest(st)
	}
	s.defaultManager = b.defaultManager
	def, ok := s.managers[s.defaultManager]
	if !ok {
		errs = append(errs, unknown("conflict manager", s.defaultManager))
	}

	var tableRules []conflict.Rule
	for _, r := range s.rules {
		if r.Resolver != "" && s.resolvers[r.Resolver] == nil {
			errs = append(errs, unknown("resolver", r.Resolver))
		}
		if r.ConflictManager == "" {
			continue
		}
		m, ok := s.managers[r.ConflictManager]
		if !ok {
			errs = append(errs, unknown("conflict manager", r.ConflictManager))
			continue
		}
		tableRules = append(tableRules, conflict.Rule{Matcher: r.Matcher, Manager: m})
	}
	s.conflicts = conflict.NewTable(def, tableRules...)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}
