// SPDX-License-Identifier: MPL-2.0

package moduleid

import (
	"fmt"
	"slices"
)

type (
	// ArtifactID identifies an artifact of a module, independently of revision.
	ArtifactID struct {
		Module ModuleID
		Name   string
		Type   string
		Ext    string
	}

	// Artifact is a file published by one module revision in a set of
	// configurations.
	Artifact struct {
		Revision ModuleRevisionID
		Name     string
		Type     string
		Ext      string
		Confs    []string
	}
)

// String renders the artifact id as "org#name!artifact.ext(type)".
func (a ArtifactID) String() string {
	return fmt.Sprintf("%s!%s.%s(%s)", a.Module, a.Name, a.Ext, a.Type)
}

// ID returns the revision-independent identifier of the artifact.
func (a Artifact) ID() ArtifactID {
	return ArtifactID{Module: a.Revision.Module, Name: a.Name, Type: a.Type, Ext: a.Ext}
}

// FileName returns "name.ext", or just the name when there is no extension.
func (a Artifact) FileName() string {
	if a.Ext == "" {
		return a.Name
	}
	return a.Name + "." + a.Ext
}

// InConf reports whether the artifact is published in conf. An artifact with no
// explicit confs belongs to every configuration.
func (a Artifact) InConf(conf string) bool {
	if len(a.Confs) == 0 {
		return true
	}
	return slices.Contains(a.Confs, conf) || slices.Contains(a.Confs, "*")
}

// String renders the artifact with its revision.
func (a Artifact) String() string {
	return fmt.Sprintf("%s!%s", a.Revision, a.FileName())
}
