// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// AllConfs on the master side applies an entry to every configuration; on
	// the dependency side it stands for every public configuration.
	AllConfs = "*"
	// OtherConfs applies an entry to configurations without an explicit entry.
	OtherConfs = "%"
	// SameConf on the dependency side is replaced by the master configuration.
	SameConf = "@"
	// RootConf on the dependency side is replaced by the root configuration
	// being resolved.
	RootConf = "#"
	// ExcludePrefix marks a configuration removed from a wildcard.
	ExcludePrefix = "!"
)

type (
	// ConfMapping is a parsed configuration mapping such as
	// "compile,runtime->default;test->test(default);*,!docs->@".
	ConfMapping struct {
		raw     string
		entries []mappingEntry
	}

	mappingEntry struct {
		master string
		except []string
		deps   []string
	}
)

// ParseConfMapping parses a mapping. Entries without an arrow take their
// dependency side from defaults, or map a configuration to the same name when
// defaults has nothing for it.
func ParseConfMapping(s string, defaults *ConfMapping) (*ConfMapping, error) {
	m := &ConfMapping{raw: s}
	fail := func(reason string) (*ConfMapping, error) {
		return nil, &ConfMappingError{Mapping: s, Reason: reason}
	}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sides := strings.Split(part, "->")
		if len(sides) > 2 {
			return fail(fmt.Sprintf("%q has more than one '->'", part))
		}
		masters, except, err := parseMasters(sides[0])
		if err != nil {
			return fail(err.Error())
		}
		if len(sides) == 1 {
			for _, master := range masters {
				deps := []string{master}
				if defaults != nil {
					if d := defaults.rawDependencyConfigurations(master); len(d) > 0 {
						deps = d
					}
				}
				m.entries = append(m.entries, mappingEntry{master: master, except: except, deps: deps})
			}
			continue
		}
		deps := splitList(sides[1])
		if len(deps) == 0 {
			return fail(fmt.Sprintf("%q maps to no configuration", part))
		}
		for _, d := range deps {
			if err := validateDependencyConf(d); err != nil {
				return fail(err.Error())
			}
		}
		for _, master := range masters {
			m.entries = append(m.entries, mappingEntry{master: master, except: except, deps: deps})
		}
	}
	if len(m.entries) == 0 {
		return fail("empty mapping")
	}
	return m, nil
}

// MustParseConfMapping is like ParseConfMapping but panics on error.
func MustParseConfMapping(s string) *ConfMapping {
	m, err := ParseConfMapping(s, nil)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the mapping as written.
func (m *ConfMapping) String() string { return m.raw }

// MasterConfigurations returns the explicitly named master configurations,
// excluding wildcards.
func (m *ConfMapping) MasterConfigurations() []string {
	var out []string
	for _, e := range m.entries {
		if e.master != AllConfs && e.master != OtherConfs && !slices.Contains(out, e.master) {
			out = append(out, e.master)
		}
		for _, ex := range e.except {
			if !slices.Contains(out, ex) {
				out = append(out, ex)
			}
		}
	}
	return out
}

// DependencyConfigurations returns the dependency-side configurations for
// masterConf, with "@" and "#" substituted. The result may still contain "*",
// "!name" and "name(fallback)" entries; ResolveDependeeConfigurations expands
// them against the dependency's descriptor.
func (m *ConfMapping) DependencyConfigurations(masterConf, rootConf string) []string {
	if rootConf == "" {
		rootConf = masterConf
	}
	raw := m.rawDependencyConfigurations(masterConf)
	out := make([]string, 0, len(raw))
	for _, d := range raw {
		d = substitute(d, masterConf, rootConf)
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

func (m *ConfMapping) rawDependencyConfigurations(masterConf string) []string {
	var out []string
	explicit := false
	for _, e := range m.entries {
		if e.master == masterConf {
			out = append(out, e.deps...)
			explicit = true
		}
	}
	if !explicit {
		for _, e := range m.entries {
			if e.master == OtherConfs && !slices.Contains(e.except, masterConf) {
				out = append(out, e.deps...)
			}
		}
	}
	for _, e := range m.entries {
		if e.master == AllConfs && !slices.Contains(e.except, masterConf) {
			out = append(out, e.deps...)
		}
	}
	return out
}

// ResolveDependeeConfigurations turns the output of DependencyConfigurations
// into configuration names of dependee: "*" becomes every public configuration
// minus the "!name" exclusions, "name(fallback)" becomes name when dependee
// declares it and fallback otherwise. Missing and private configurations are
// reported in the error; the valid ones are still returned.
func ResolveDependeeConfigurations(confs []string, dependee *ModuleDescriptor) ([]string, error) {
	var excluded []string
	for _, c := range confs {
		if name, ok := strings.CutPrefix(c, ExcludePrefix); ok {
			excluded = append(excluded, name)
		}
	}

	var (
		out  []string
		errs []error
	)
	add := func(name string) {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	check := func(name string) {
		conf, ok := dependee.Configuration(name)
		switch {
		case !ok:
			errs = append(errs, &ConfigurationNotFoundError{Module: dependee.ID, Conf: name})
		case !conf.IsPublic():
			errs = append(errs, &PrivateConfigurationError{Module: dependee.ID, Conf: name})
		default:
			add(name)
		}
	}

	for _, c := range confs {
		switch {
		case strings.HasPrefix(c, ExcludePrefix):
		case c == AllConfs:
			for _, pub := range dependee.PublicConfigurations() {
				if !slices.Contains(excluded, pub) {
					add(pub)
				}
			}
		default:
			name, fallback, hasFallback := splitFallback(c)
			if hasFallback {
				if _, ok := dependee.Configuration(name); !ok {
					name = fallback
				}
			}
			if name == AllConfs {
				for _, pub := range dependee.PublicConfigurations() {
					add(pub)
				}
				continue
			}
			check(name)
		}
	}
	return out, errors.Join(errs...)
}

func parseMasters(s string) (masters, except []string, err error) {
	for _, c := range splitList(s) {
		if name, ok := strings.CutPrefix(c, ExcludePrefix); ok {
			if name == "" {
				return nil, nil, errors.New("empty exclusion")
			}
			except = append(except, name)
			continue
		}
		if strings.ContainsAny(c, "()@#") {
			return nil, nil, fmt.Errorf("%q is not a valid master configuration", c)
		}
		masters = append(masters, c)
	}
	if len(masters) == 0 {
		return nil, nil, errors.New("no master configuration")
	}
	if len(except) > 0 && !slices.Contains(masters, AllConfs) && !slices.Contains(masters, OtherConfs) {
		return nil, nil, errors.New("exclusions need '*' or '%' in the same list")
	}
	return masters, except, nil
}

func validateDependencyConf(d string) error {
	if name, ok := strings.CutPrefix(d, ExcludePrefix); ok {
		if name == "" || strings.ContainsAny(name, "()*@#%") {
			return fmt.Errorf("%q is not a valid exclusion", d)
		}
		return nil
	}
	if strings.ContainsAny(d, "()") {
		name, fallback, ok := splitFallback(d)
		if !ok || name == "" || fallback == "" || strings.ContainsAny(name+fallback, "()") {
			return fmt.Errorf("%q is not a valid fallback", d)
		}
	}
	if d == OtherConfs {
		return errors.New("'%' is only valid on the master side")
	}
	return nil
}

// substitute replaces "@" and "#" as a whole name or as the name part of a
// fallback ("@(default)").
func substitute(d, masterConf, rootConf string) string {
	name, fallback, ok := splitFallback(d)
	if !ok {
		name = d
	}
	switch name {
	case SameConf:
		name = masterConf
	case RootConf:
		name = rootConf
	}
	if ok {
		return name + "(" + fallback + ")"
	}
	return name
}

func splitFallback(s string) (name, fallback string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return s, "", false
	}
	return s[:open], s[open+1 : len(s)-1], true
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
