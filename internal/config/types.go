// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/trellis/pkg/circular"
	"github.com/invowk/trellis/pkg/latest"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/version"
)

const (
	// ResolverFilesystem reads module.cue descriptors from a directory tree.
	ResolverFilesystem ResolverType = "filesystem"
	// ResolverChain tries member resolvers in order.
	ResolverChain ResolverType = "chain"

	// ManagerFixed keeps the listed revisions.
	ManagerFixed ManagerType = "fixed"
	// ManagerLatest keeps the latest revision under a latest strategy.
	ManagerLatest ManagerType = "latest"
	// ManagerStrict fails on any conflict.
	ManagerStrict ManagerType = "strict"
	// ManagerAll keeps every revision.
	ManagerAll ManagerType = "all"
)

var (
	// ErrInvalidResolverConfig is the sentinel error wrapped by InvalidResolverConfigError.
	ErrInvalidResolverConfig = errors.New("invalid resolver config")
	// ErrInvalidManagerConfig is the sentinel error wrapped by InvalidManagerConfigError.
	ErrInvalidManagerConfig = errors.New("invalid conflict manager config")
	// ErrInvalidModuleConfig is the sentinel error wrapped by InvalidModuleConfigError.
	ErrInvalidModuleConfig = errors.New("invalid module config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ResolverType selects a resolver implementation.
	ResolverType string

	// ManagerType selects a conflict manager implementation.
	ManagerType string

	// ResolverConfig declares a named resolver.
	ResolverConfig struct {
		Name string       `json:"name" mapstructure:"name"`
		Type ResolverType `json:"type" mapstructure:"type"`
		// Root is the repository directory of a filesystem resolver.
		Root string `json:"root,omitempty" mapstructure:"root"`
		// Members are the resolver names tried in order by a chain.
		Members []string `json:"members,omitempty" mapstructure:"members"`
	}

	// ConflictManagerConfig declares a named conflict manager.
	ConflictManagerConfig struct {
		Name string      `json:"name" mapstructure:"name"`
		Type ManagerType `json:"type" mapstructure:"type"`
		// Revisions are kept by a fixed manager.
		Revisions []string `json:"revisions,omitempty" mapstructure:"revisions"`
		// Strategy is the latest strategy of a latest manager.
		Strategy string `json:"strategy,omitempty" mapstructure:"strategy"`
	}

	// ModuleConfig overrides the resolver or conflict manager of the modules
	// it matches.
	ModuleConfig struct {
		Organisation    string `json:"organisation" mapstructure:"organisation"`
		Module          string `json:"module" mapstructure:"module"`
		Matcher         string `json:"matcher" mapstructure:"matcher"`
		Resolver        string `json:"resolver,omitempty" mapstructure:"resolver"`
		ConflictManager string `json:"conflict_manager,omitempty" mapstructure:"conflict_manager"`
	}

	// CacheConfig configures the descriptor and report cache.
	CacheConfig struct {
		// Dir is the cache directory. Empty disables the cache.
		Dir string `json:"dir" mapstructure:"dir"`
	}

	// UIConfig configures the CLI output.
	UIConfig struct {
		// Verbose enables debug logging and full error chains.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// Config is the trellis configuration.
	Config struct {
		// DefaultResolver names the resolver used for unmatched modules.
		DefaultResolver string `json:"default_resolver" mapstructure:"default_resolver"`
		// ConflictManager names the default conflict manager.
		ConflictManager string `json:"conflict_manager" mapstructure:"conflict_manager"`
		// LatestStrategy names the strategy used to pick dynamic revisions.
		LatestStrategy string `json:"latest_strategy" mapstructure:"latest_strategy"`
		// CircularStrategy is warn, error or ignore.
		CircularStrategy string `json:"circular_strategy" mapstructure:"circular_strategy"`
		// Statuses are ordered from the most to the least mature.
		Statuses         []string                `json:"statuses" mapstructure:"statuses"`
		Resolvers        []ResolverConfig        `json:"resolvers" mapstructure:"resolvers"`
		ConflictManagers []ConflictManagerConfig `json:"conflict_managers" mapstructure:"conflict_managers"`
		Modules          []ModuleConfig          `json:"modules" mapstructure:"modules"`
		Cache            CacheConfig             `json:"cache" mapstructure:"cache"`
		UI               UIConfig                `json:"ui" mapstructure:"ui"`
	}

	// InvalidResolverConfigError is returned when a resolver entry is inconsistent.
	InvalidResolverConfigError struct {
		Name        string
		FieldErrors []error
	}

	// InvalidManagerConfigError is returned when a conflict manager entry is inconsistent.
	InvalidManagerConfigError struct {
		Name        string
		FieldErrors []error
	}

	// InvalidModuleConfigError is returned when a module override is inconsistent.
	InvalidModuleConfigError struct {
		Index       int
		FieldErrors []error
	}

	// InvalidConfigError aggregates the validation errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// IsValid checks the fields a resolver type needs. Name references are checked
// by Config.IsValid.
func (c ResolverConfig) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("name is empty"))
	}
	switch c.Type {
	case ResolverFilesystem:
		if strings.TrimSpace(c.Root) == "" {
			errs = append(errs, errors.New("filesystem resolver needs a root"))
		}
	case ResolverChain:
		if len(c.Members) == 0 {
			errs = append(errs, errors.New("chain resolver needs members"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown type %q", c.Type))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidResolverConfigError{Name: c.Name, FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidResolverConfigError) Error() string {
	return fmt.Sprintf("invalid resolver %q: %v", e.Name, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidResolverConfig for errors.Is() compatibility.
func (e *InvalidResolverConfigError) Unwrap() error { return ErrInvalidResolverConfig }

// IsValid checks the fields a manager type needs.
func (c ConflictManagerConfig) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("name is empty"))
	}
	switch c.Type {
	case ManagerFixed:
		if len(c.Revisions) == 0 {
			errs = append(errs, errors.New("fixed manager needs revisions"))
		}
	case ManagerLatest:
		if c.Strategy == "" {
			errs = append(errs, errors.New("latest manager needs a strategy"))
		}
	case ManagerStrict, ManagerAll:
	default:
		errs = append(errs, fmt.Errorf("unknown type %q", c.Type))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidManagerConfigError{Name: c.Name, FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidManagerConfigError) Error() string {
	return fmt.Sprintf("invalid conflict manager %q: %v", e.Name, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidManagerConfig for errors.Is() compatibility.
func (e *InvalidManagerConfigError) Unwrap() error { return ErrInvalidManagerConfig }

// Pattern compiles the module patterns.
func (c ModuleConfig) Pattern() (moduleid.Matcher, error) {
	kind := moduleid.MatcherKind(c.Matcher)
	if kind == "" {
		kind = moduleid.MatchExact
	}
	return moduleid.NewMatcher(kind, orAny(c.Organisation), orAny(c.Module))
}

func (c ModuleConfig) isValid(index int) (bool, []error) {
	var errs []error
	if _, err := c.Pattern(); err != nil {
		errs = append(errs, err)
	}
	if c.Resolver == "" && c.ConflictManager == "" {
		errs = append(errs, errors.New("override sets neither a resolver nor a conflict manager"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidModuleConfigError{Index: index, FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidModuleConfigError) Error() string {
	return fmt.Sprintf("invalid modules[%d]: %v", e.Index, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidModuleConfig for errors.Is() compatibility.
func (e *InvalidModuleConfigError) Unwrap() error { return ErrInvalidModuleConfig }

// IsValid validates every entry, the uniqueness of names and the resolver
// names referenced by chains, modules and the default resolver.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	if _, err := circular.Parse(c.CircularStrategy); err != nil {
		errs = append(errs, err)
	}

	resolvers := make(map[string]bool, len(c.Resolvers))
	for _, r := range c.Resolvers {
		if valid, fieldErrs := r.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
		if resolvers[r.Name] {
			errs = append(errs, fmt.Errorf("duplicate resolver %q", r.Name))
		}
		resolvers[r.Name] = true
	}
	for _, r := range c.Resolvers {
		for _, m := range r.Members {
			if !resolvers[m] {
				errs = append(errs, fmt.Errorf("resolver %q: unknown member %q", r.Name, m))
			}
			if m == r.Name {
				errs = append(errs, fmt.Errorf("resolver %q lists itself as a member", r.Name))
			}
		}
	}
	if c.DefaultResolver != "" && !resolvers[c.DefaultResolver] {
		errs = append(errs, fmt.Errorf("unknown default resolver %q", c.DefaultResolver))
	}

	managers := make(map[string]bool, len(c.ConflictManagers))
	for _, m := range c.ConflictManagers {
		if valid, fieldErrs := m.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
		if managers[m.Name] {
			errs = append(errs, fmt.Errorf("duplicate conflict manager %q", m.Name))
		}
		managers[m.Name] = true
	}

	for i, m := range c.Modules {
		if valid, fieldErrs := m.isValid(i); !valid {
			errs = append(errs, fieldErrs...)
		}
		if m.Resolver != "" && !resolvers[m.Resolver] {
			errs = append(errs, fmt.Errorf("modules[%d]: unknown resolver %q", i, m.Resolver))
		}
	}

	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the configuration used when no file is found: a
// filesystem resolver rooted at ./repository and the latest-revision manager.
func DefaultConfig() *Config {
	return &Config{
		DefaultResolver:  "local",
		ConflictManager:  latest.RevisionName,
		LatestStrategy:   latest.RevisionName,
		CircularStrategy: string(circular.Warn),
		Statuses:         []string{version.StatusRelease, version.StatusMilestone, version.StatusIntegration},
		Resolvers: []ResolverConfig{
			{Name: "local", Type: ResolverFilesystem, Root: "repository"},
		},
		ConflictManagers: []ConflictManagerConfig{},
		Modules:          []ModuleConfig{},
		UI: UIConfig{
			Verbose: false,
		},
	}
}

func orAny(p string) string {
	if p == "" {
		return moduleid.AnyPattern
	}
	return p
}
