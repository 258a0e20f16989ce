// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/invowk/trellis/pkg/cueutil"
	"github.com/invowk/trellis/pkg/moduleid"
)

// FileName is the descriptor file name inside a module revision directory.
const FileName = "module.cue"

//go:embed module.cue
var schema []byte

type (
	// File is the serialized form of a ModuleDescriptor, shared by module.cue
	// documents and the TOML descriptor cache.
	File struct {
		Organisation       string              `json:"organisation" toml:"organisation"`
		Module             string              `json:"module" toml:"module"`
		Revision           string              `json:"revision" toml:"revision"`
		Branch             string              `json:"branch,omitempty" toml:"branch,omitempty"`
		Status             string              `json:"status,omitempty" toml:"status,omitempty"`
		Publication        string              `json:"publication,omitempty" toml:"publication,omitempty"`
		Description        string              `json:"description,omitempty" toml:"description,omitempty"`
		License            string              `json:"license,omitempty" toml:"license,omitempty"`
		DefaultConf        string              `json:"default_conf,omitempty" toml:"default_conf,omitempty"`
		DefaultConfMapping string              `json:"default_conf_mapping,omitempty" toml:"default_conf_mapping,omitempty"`
		Extra              map[string]string   `json:"extra,omitempty" toml:"extra,omitempty"`
		Configurations     []ConfigurationFile `json:"configurations,omitempty" toml:"configurations,omitempty"`
		Artifacts          []ArtifactFile      `json:"artifacts,omitempty" toml:"artifacts,omitempty"`
		Dependencies       []DependencyFile    `json:"dependencies,omitempty" toml:"dependencies,omitempty"`
		Conflicts          []ConflictFile      `json:"conflicts,omitempty" toml:"conflicts,omitempty"`
		Excludes           []RuleFile          `json:"excludes,omitempty" toml:"excludes,omitempty"`
	}

	// ConfigurationFile is the serialized Configuration.
	ConfigurationFile struct {
		Name        string   `json:"name" toml:"name"`
		Visibility  string   `json:"visibility" toml:"visibility"`
		Description string   `json:"description,omitempty" toml:"description,omitempty"`
		Extends     []string `json:"extends,omitempty" toml:"extends,omitempty"`
	}

	// ArtifactFile is the serialized Artifact.
	ArtifactFile struct {
		Name  string   `json:"name" toml:"name"`
		Type  string   `json:"type" toml:"type"`
		Ext   string   `json:"ext,omitempty" toml:"ext,omitempty"`
		Confs []string `json:"confs,omitempty" toml:"confs,omitempty"`
	}

	// DependencyFile is the serialized DependencyDescriptor.
	DependencyFile struct {
		Organisation string     `json:"organisation" toml:"organisation"`
		Module       string     `json:"module" toml:"module"`
		Revision     string     `json:"revision" toml:"revision"`
		Branch       string     `json:"branch,omitempty" toml:"branch,omitempty"`
		Conf         string     `json:"conf,omitempty" toml:"conf,omitempty"`
		Force        bool       `json:"force" toml:"force"`
		Changing     bool       `json:"changing" toml:"changing"`
		Transitive   bool       `json:"transitive" toml:"transitive"`
		Optional     bool       `json:"optional" toml:"optional"`
		Includes     []RuleFile `json:"includes,omitempty" toml:"includes,omitempty"`
		Excludes     []RuleFile `json:"excludes,omitempty" toml:"excludes,omitempty"`
	}

	// RuleFile is the serialized Rule.
	RuleFile struct {
		Organisation string   `json:"organisation" toml:"organisation"`
		Module       string   `json:"module" toml:"module"`
		Artifact     string   `json:"artifact" toml:"artifact"`
		Type         string   `json:"type" toml:"type"`
		Ext          string   `json:"ext" toml:"ext"`
		Matcher      string   `json:"matcher" toml:"matcher"`
		Confs        []string `json:"confs,omitempty" toml:"confs,omitempty"`
	}

	// ConflictFile is the serialized ConflictOverride.
	ConflictFile struct {
		Organisation string   `json:"organisation" toml:"organisation"`
		Module       string   `json:"module" toml:"module"`
		Matcher      string   `json:"matcher" toml:"matcher"`
		Manager      string   `json:"manager,omitempty" toml:"manager,omitempty"`
		Revisions    []string `json:"revisions,omitempty" toml:"revisions,omitempty"`
	}
)

// Schema returns the embedded module.cue schema.
func Schema() []byte { return slices.Clone(schema) }

// Parse reads a module.cue document and validates the resulting descriptor.
func Parse(data []byte, filename string) (*ModuleDescriptor, error) {
	res, err := cueutil.Decode[File](schema, data, "#Module", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return fromFileValidated(res.Value, filename)
}

// ParseFile reads and validates a module.cue file.
func ParseFile(path string) (*ModuleDescriptor, error) {
	res, err := cueutil.DecodeFile[File](schema, path, "#Module")
	if err != nil {
		return nil, err
	}
	return fromFileValidated(res.Value, path)
}

func fromFileValidated(f *File, filename string) (*ModuleDescriptor, error) {
	md, err := f.Descriptor()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if err := md.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return md, nil
}

// Descriptor converts the serialized form.
func (f *File) Descriptor() (*ModuleDescriptor, error) {
	id := moduleid.ModuleRevisionID{
		Module:   moduleid.NewModuleID(f.Organisation, f.Module),
		Branch:   f.Branch,
		Revision: f.Revision,
	}
	for _, k := range slices.Sorted(maps.Keys(f.Extra)) {
		id = id.WithAttribute(k, f.Extra[k])
	}
	md := &ModuleDescriptor{
		ID:                 id,
		Status:             f.Status,
		Description:        f.Description,
		License:            f.License,
		DefaultConf:        f.DefaultConf,
		DefaultConfMapping: f.DefaultConfMapping,
	}
	if f.Publication != "" {
		t, err := time.Parse(time.RFC3339, f.Publication)
		if err != nil {
			return nil, fmt.Errorf("publication: %w", err)
		}
		md.PublicationDate = t
	}
	for _, c := range f.Configurations {
		md.Configurations = append(md.Configurations, Configuration{
			Name:        c.Name,
			Visibility:  Visibility(c.Visibility),
			Description: c.Description,
			Extends:     c.Extends,
		})
	}
	for _, a := range f.Artifacts {
		ext := a.Ext
		if ext == "" {
			ext = a.Type
		}
		md.Artifacts = append(md.Artifacts, moduleid.Artifact{
			Revision: id, Name: a.Name, Type: a.Type, Ext: ext, Confs: a.Confs,
		})
	}
	for _, d := range f.Dependencies {
		md.Dependencies = append(md.Dependencies, &DependencyDescriptor{
			ID: moduleid.ModuleRevisionID{
				Module:   moduleid.NewModuleID(d.Organisation, d.Module),
				Branch:   d.Branch,
				Revision: d.Revision,
			},
			Conf:       d.Conf,
			Force:      d.Force,
			Changing:   d.Changing,
			Transitive: d.Transitive,
			Optional:   d.Optional,
			Includes:   rules(d.Includes),
			Excludes:   rules(d.Excludes),
		})
	}
	for _, c := range f.Conflicts {
		m, err := moduleid.NewMatcher(moduleid.MatcherKind(c.Matcher), c.Organisation, c.Module)
		if err != nil {
			return nil, fmt.Errorf("conflicts: %w", err)
		}
		if c.Manager == "" && len(c.Revisions) == 0 {
			return nil, fmt.Errorf("conflicts: %s needs a manager or revisions", m)
		}
		md.Conflicts = append(md.Conflicts, ConflictOverride{Matcher: m, Manager: c.Manager, Revisions: c.Revisions})
	}
	md.Excludes = rules(f.Excludes)
	return md, nil
}

// ToFile converts a descriptor to its serialized form.
func ToFile(md *ModuleDescriptor) *File {
	f := &File{
		Organisation:       md.ID.Organisation(),
		Module:             md.ID.Name(),
		Revision:           md.ID.Revision,
		Branch:             md.ID.Branch,
		Status:             md.Status,
		Description:        md.Description,
		License:            md.License,
		DefaultConf:        md.DefaultConf,
		DefaultConfMapping: md.DefaultConfMapping,
	}
	if !md.PublicationDate.IsZero() {
		f.Publication = md.PublicationDate.UTC().Format(time.RFC3339)
	}
	if len(md.ID.Extra) > 0 {
		f.Extra = make(map[string]string, len(md.ID.Extra))
		for _, a := range md.ID.Extra {
			f.Extra[a.Name] = a.Value
		}
	}
	for _, c := range md.Configurations {
		vis := c.Visibility
		if vis == "" {
			vis = Public
		}
		f.Configurations = append(f.Configurations, ConfigurationFile{
			Name: c.Name, Visibility: string(vis), Description: c.Description, Extends: c.Extends,
		})
	}
	for _, a := range md.Artifacts {
		f.Artifacts = append(f.Artifacts, ArtifactFile{Name: a.Name, Type: a.Type, Ext: a.Ext, Confs: a.Confs})
	}
	for _, dd := range md.Dependencies {
		f.Dependencies = append(f.Dependencies, DependencyFile{
			Organisation: dd.ID.Organisation(),
			Module:       dd.ID.Name(),
			Revision:     dd.ID.Revision,
			Branch:       dd.ID.Branch,
			Conf:         dd.Conf,
			Force:        dd.Force,
			Changing:     dd.Changing,
			Transitive:   dd.Transitive,
			Optional:     dd.Optional,
			Includes:     ruleFiles(dd.Includes),
			Excludes:     ruleFiles(dd.Excludes),
		})
	}
	for _, c := range md.Conflicts {
		f.Conflicts = append(f.Conflicts, ConflictFile{
			Organisation: c.Matcher.Organisation,
			Module:       c.Matcher.Name,
			Matcher:      string(c.Matcher.Kind),
			Manager:      c.Manager,
			Revisions:    c.Revisions,
		})
	}
	f.Excludes = ruleFiles(md.Excludes)
	return f
}

func rules(in []RuleFile) []Rule {
	var out []Rule
	for _, r := range in {
		out = append(out, Rule{
			Organisation: r.Organisation,
			Module:       r.Module,
			Artifact:     r.Artifact,
			Type:         r.Type,
			Ext:          r.Ext,
			Matcher:      moduleid.MatcherKind(r.Matcher),
			Confs:        r.Confs,
		})
	}
	return out
}

func ruleFiles(in []Rule) []RuleFile {
	var out []RuleFile
	for _, r := range in {
		kind := r.Matcher
		if kind == "" {
			kind = moduleid.MatchExact
		}
		out = append(out, RuleFile{
			Organisation: orAny(r.Organisation),
			Module:       orAny(r.Module),
			Artifact:     orAny(r.Artifact),
			Type:         orAny(r.Type),
			Ext:          orAny(r.Ext),
			Matcher:      string(kind),
			Confs:        r.Confs,
		})
	}
	return out
}

func orAny(p string) string {
	if p == "" {
		return moduleid.AnyPattern
	}
	return p
}
