// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"slices"

	"github.com/invowk/trellis/pkg/moduleid"
)

type (
	// DependencyDescriptor is one dependency declared by a module.
	//
	// Conf holds the raw configuration mapping ("compile->default;test->*");
	// empty means the owning module's default mapping applies.
	DependencyDescriptor struct {
		ID         moduleid.ModuleRevisionID
		Conf       string
		Force      bool
		Changing   bool
		Transitive bool
		Optional   bool
		Includes   []Rule
		Excludes   []Rule
	}

	// Rule is an include or exclude filter. Empty patterns match everything.
	// A rule whose artifact, type and ext are all wildcards targets whole
	// modules; as an exclude it also stops traversal into matching modules.
	Rule struct {
		Organisation string
		Module       string
		Artifact     string
		Type         string
		Ext          string
		Matcher      moduleid.MatcherKind
		Confs        []string
	}
)

// NewDependency creates a transitive dependency on id with the given mapping.
func NewDependency(id moduleid.ModuleRevisionID, conf string) *DependencyDescriptor {
	return &DependencyDescriptor{ID: id, Conf: conf, Transitive: true}
}

// ModuleID returns the module the dependency points to.
func (dd *DependencyDescriptor) ModuleID() moduleid.ModuleID { return dd.ID.Module }

// ExcludesModule reports whether an exclude rule of dd removes the module id
// from the dependency's transitive closure in masterConf.
func (dd *DependencyDescriptor) ExcludesModule(id moduleid.ModuleID, masterConf string) bool {
	for _, r := range dd.Excludes {
		if r.IsModuleRule() && r.AppliesTo(masterConf) && r.MatchesModule(id) {
			return true
		}
	}
	return false
}

// AcceptsArtifact applies the include and exclude rules of dd to an artifact of
// the dependency, in masterConf. With no applicable include rule every artifact
// is included.
func (dd *DependencyDescriptor) AcceptsArtifact(a moduleid.Artifact, masterConf string) bool {
	included := true
	for _, r := range dd.Includes {
		if !r.AppliesTo(masterConf) {
			continue
		}
		included = false
		if r.MatchesArtifact(a) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, r := range dd.Excludes {
		if r.AppliesTo(masterConf) && r.MatchesArtifact(a) {
			return false
		}
	}
	return true
}

// IsModuleRule reports whether the rule targets whole modules.
func (r Rule) IsModuleRule() bool {
	return isWildcard(r.Artifact) && isWildcard(r.Type) && isWildcard(r.Ext)
}

// AppliesTo reports whether the rule is active in conf. A rule without confs
// applies everywhere.
func (r Rule) AppliesTo(conf string) bool {
	return len(r.Confs) == 0 || slices.Contains(r.Confs, conf) || slices.Contains(r.Confs, "*")
}

// MatchesModule reports whether the organisation and module patterns match id.
func (r Rule) MatchesModule(id moduleid.ModuleID) bool {
	return moduleid.MatchPattern(r.kind(), r.Organisation, id.Organisation) &&
		moduleid.MatchPattern(r.kind(), r.Module, id.Name)
}

// MatchesArtifact reports whether every pattern of the rule matches a.
func (r Rule) MatchesArtifact(a moduleid.Artifact) bool {
	return r.MatchesModule(a.Revision.Module) &&
		moduleid.MatchPattern(r.kind(), r.Artifact, a.Name) &&
		moduleid.MatchPattern(r.kind(), r.Type, a.Type) &&
		moduleid.MatchPattern(r.kind(), r.Ext, a.Ext)
}

func (r Rule) kind() moduleid.MatcherKind {
	if r.Matcher == "" {
		return moduleid.MatchExact
	}
	return r.Matcher
}

func isWildcard(p string) bool {
	return p == "" || p == moduleid.AnyPattern
}
