// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/invowk/trellis/pkg/moduleid"
)

const (
	// Public configurations can be requested by dependers.
	Public Visibility = "public"
	// Private configurations are only usable by the module itself.
	Private Visibility = "private"

	// DefaultConfName is the configuration of a module declaring none.
	DefaultConfName = "default"

	// DefaultConfMapping applies when neither the dependency nor the module
	// says how configurations map.
	DefaultConfMapping = "*->*"
)

type (
	// Visibility of a configuration.
	Visibility string

	// Configuration is a named view of a module.
	Configuration struct {
		Name        string
		Visibility  Visibility
		Description string
		Extends     []string
	}

	// ConflictOverride selects a conflict manager for the modules matched while
	// resolving this module as root. A non-empty Revisions list means a fixed
	// manager over those revisions.
	ConflictOverride struct {
		Matcher   moduleid.Matcher
		Manager   string
		Revisions []string
	}

	// ModuleDescriptor describes one module revision.
	//
	// The zero PublicationDate means unknown. An empty Status means the lowest
	// status of the settings.
	ModuleDescriptor struct {
		ID              moduleid.ModuleRevisionID
		Status          string
		PublicationDate time.Time
		Description     string
		License         string

		Configurations     []Configuration
		Artifacts          []moduleid.Artifact
		Dependencies       []*DependencyDescriptor
		Conflicts          []ConflictOverride
		Excludes           []Rule
		DefaultConf        string
		DefaultConfMapping string
	}
)

// New creates a descriptor for id.
func New(id moduleid.ModuleRevisionID) *ModuleDescriptor {
	return &ModuleDescriptor{ID: id}
}

// IsPublic reports whether the configuration is public. An empty visibility is
// public.
func (c Configuration) IsPublic() bool {
	return c.Visibility != Private
}

// AllConfigurations returns the declared configurations, or a single public
// "default" configuration when the module declares none.
func (md *ModuleDescriptor) AllConfigurations() []Configuration {
	if len(md.Configurations) == 0 {
		return []Configuration{{Name: DefaultConfName, Visibility: Public}}
	}
	return md.Configurations
}

// Configuration looks up a configuration by name.
func (md *ModuleDescriptor) Configuration(name string) (Configuration, bool) {
	for _, c := range md.AllConfigurations() {
		if c.Name == name {
			return c, true
		}
	}
	return Configuration{}, false
}

// ConfigurationNames returns every configuration name in declaration order.
func (md *ModuleDescriptor) ConfigurationNames() []string {
	confs := md.AllConfigurations()
	out := make([]string, len(confs))
	for i, c := range confs {
		out[i] = c.Name
	}
	return out
}

// PublicConfigurations returns the public configuration names in declaration
// order.
func (md *ModuleDescriptor) PublicConfigurations() []string {
	var out []string
	for _, c := range md.AllConfigurations() {
		if c.IsPublic() {
			out = append(out, c.Name)
		}
	}
	return out
}

// ExpandConfigurations returns names plus every configuration they extend,
// transitively, without duplicates. Unknown names are dropped. Cycles in
// extends are cut at the first repeated configuration.
func (md *ModuleDescriptor) ExpandConfigurations(names ...string) []string {
	var out []string
	seen := make(map[string]bool)
	var visit func(string)
	visit = func(name string) {
		if seen[name] {
			return
		}
		c, ok := md.Configuration(name)
		if !ok {
			return
		}
		seen[name] = true
		out = append(out, name)
		for _, ext := range c.Extends {
			visit(ext)
		}
	}
	for _, n := range names {
		visit(n)
	}
	return out
}

// ArtifactsFor returns the artifacts published in conf.
func (md *ModuleDescriptor) ArtifactsFor(conf string) []moduleid.Artifact {
	var out []moduleid.Artifact
	for _, a := range md.Artifacts {
		if a.InConf(conf) {
			out = append(out, a)
		}
	}
	return out
}

// Mapping returns the parsed configuration mapping of a dependency, applying
// this module's defaults.
func (md *ModuleDescriptor) Mapping(dd *DependencyDescriptor) (*ConfMapping, error) {
	var defaults *ConfMapping
	if md.DefaultConfMapping != "" {
		var err error
		if defaults, err = ParseConfMapping(md.DefaultConfMapping, nil); err != nil {
			return nil, err
		}
	}
	raw := dd.Conf
	if raw == "" {
		switch {
		case md.DefaultConfMapping != "":
			raw = md.DefaultConfMapping
		case md.DefaultConf != "":
			raw = md.DefaultConf
		default:
			raw = DefaultConfMapping
		}
	}
	return ParseConfMapping(raw, defaults)
}

// DependencyConfigurations returns the configurations of dd's module required
// when this module is used in masterConf, while rootConf of the root module
// is being resolved. An empty result means dd is not needed in masterConf.
func (md *ModuleDescriptor) DependencyConfigurations(dd *DependencyDescriptor, masterConf, rootConf string) ([]string, error) {
	m, err := md.Mapping(dd)
	if err != nil {
		return nil, err
	}
	return m.DependencyConfigurations(masterConf, rootConf), nil
}

// IsExcluded reports whether a module-level exclude rule of this descriptor
// matches id in masterConf.
func (md *ModuleDescriptor) IsExcluded(id moduleid.ModuleID, masterConf string) bool {
	for _, r := range md.Excludes {
		if r.IsModuleRule() && r.AppliesTo(masterConf) && r.MatchesModule(id) {
			return true
		}
	}
	return false
}

// Validate checks the internal consistency of the descriptor: unique
// configuration names, known extends targets, parseable mappings whose master
// configurations exist.
func (md *ModuleDescriptor) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for _, c := range md.Configurations {
		if c.Name == "" {
			errs = append(errs, errors.New("configuration with empty name"))
			continue
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("duplicate configuration %q", c.Name))
		}
		seen[c.Name] = true
		if c.Visibility != "" && c.Visibility != Public && c.Visibility != Private {
			errs = append(errs, fmt.Errorf("configuration %q: unknown visibility %q", c.Name, c.Visibility))
		}
	}
	names := md.ConfigurationNames()
	for _, c := range md.Configurations {
		for _, ext := range c.Extends {
			if !slices.Contains(names, ext) {
				errs = append(errs, fmt.Errorf("configuration %q extends unknown configuration %q", c.Name, ext))
			}
		}
	}
	for _, dd := range md.Dependencies {
		m, err := md.Mapping(dd)
		if err != nil {
			errs = append(errs, fmt.Errorf("dependency %s: %w", dd.ID, err))
			continue
		}
		for _, master := range m.MasterConfigurations() {
			if !slices.Contains(names, master) {
				errs = append(errs, fmt.Errorf("dependency %s: %w",
					dd.ID, &ConfigurationNotFoundError{Module: md.ID, Conf: master}))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w %s: %w", ErrInvalidDescriptor, md.ID, errors.Join(errs...))
}
