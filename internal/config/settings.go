// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/invowk/trellis/internal/dag"
	"github.com/invowk/trellis/pkg/cache"
	"github.com/invowk/trellis/pkg/circular"
	"github.com/invowk/trellis/pkg/conflict"
	"github.com/invowk/trellis/pkg/resolver"
	"github.com/invowk/trellis/pkg/settings"
	"github.com/invowk/trellis/pkg/version"
)

// ErrResolverCycle is returned when chain resolvers contain each other.
var ErrResolverCycle = errors.New("resolver chain cycle")

// BuildOptions tunes BuildSettings.
type BuildOptions struct {
	// BaseDir anchors relative resolver roots and the cache directory. Empty
	// means the working directory.
	BaseDir string
	// Logger receives engine and cache diagnostics. Nil discards them.
	Logger *log.Logger
	// NoCache disables the cache even when cache.dir is set.
	NoCache bool
}

// BuildSettings turns cfg into the immutable settings of the resolution
// engine.
func BuildSettings(cfg *Config, opts BuildOptions) (*settings.Settings, error) {
	if valid, errs := cfg.IsValid(); !valid {
		return nil, errs[0]
	}

	b := settings.NewBuilder()
	if opts.Logger != nil {
		b.Logger(opts.Logger)
	}

	resolvers, err := buildResolvers(cfg.Resolvers, opts.BaseDir)
	if err != nil {
		return nil, err
	}
	for _, r := range cfg.Resolvers {
		b.AddResolver(resolvers[r.Name])
	}
	if cfg.DefaultResolver != "" {
		b.DefaultResolver(cfg.DefaultResolver)
	}

	if len(cfg.Statuses) > 0 {
		statuses, err := version.NewStatuses(cfg.Statuses...)
		if err != nil {
			return nil, fmt.Errorf("statuses: %w", err)
		}
		b.Statuses(statuses)
	}
	strategy, err := circular.Parse(cfg.CircularStrategy)
	if err != nil {
		return nil, err
	}
	b.CircularStrategy(strategy)

	for _, m := range cfg.ConflictManagers {
		switch m.Type {
		case ManagerFixed:
			b.AddConflictManager(m.Name, conflict.NewFixed(m.Revisions...))
		case ManagerLatest:
			b.AddLatestConflictManager(m.Name, m.Strategy)
		case ManagerStrict:
			b.AddConflictManager(m.Name, conflict.Strict{})
		case ManagerAll:
			b.AddConflictManager(m.Name, conflict.NoConflict{})
		}
	}
	if cfg.ConflictManager != "" {
		b.DefaultConflictManager(cfg.ConflictManager)
	}
	if cfg.LatestStrategy != "" {
		b.DefaultLatestStrategy(cfg.LatestStrategy)
	}

	for _, m := range cfg.Modules {
		matcher, err := m.Pattern()
		if err != nil {
			return nil, err
		}
		b.AddModuleRule(settings.ModuleRule{Matcher: matcher, Resolver: m.Resolver, ConflictManager: m.ConflictManager})
	}

	if cfg.Cache.Dir != "" && !opts.NoCache {
		var cacheOpts []cache.Option
		if opts.Logger != nil {
			cacheOpts = append(cacheOpts, cache.WithLogger(opts.Logger))
		}
		b.Cache(cache.NewManager(anchor(opts.BaseDir, cfg.Cache.Dir), cacheOpts...))
	}

	return b.Build()
}

// buildResolvers creates every declared resolver, chains after their members.
func buildResolvers(cfgs []ResolverConfig, baseDir string) (map[string]resolver.DependencyResolver, error) {
	byName := make(map[string]ResolverConfig, len(cfgs))
	g := dag.New()
	for _, c := range cfgs {
		byName[c.Name] = c
		g.AddNode(c.Name)
		for _, m := range c.Members {
			g.AddEdge(m, c.Name)
		}
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolverCycle, err)
	}

	built := make(map[string]resolver.DependencyResolver, len(cfgs))
	for _, name := range order {
		c := byName[name]
		switch c.Type {
		case ResolverFilesystem:
			built[name] = resolver.NewFileSystem(c.Name, anchor(baseDir, c.Root))
		case ResolverChain:
			members := make([]resolver.DependencyResolver, 0, len(c.Members))
			for _, m := range c.Members {
				members = append(members, built[m])
			}
			built[name] = resolver.NewChain(c.Name, members...)
		default:
			return nil, &InvalidResolverConfigError{Name: c.Name, FieldErrors: []error{fmt.Errorf("unknown type %q", c.Type)}}
		}
	}
	return built, nil
}

func anchor(baseDir, path string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
