// SPDX-License-Identifier: MPL-2.0

package moduleid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidModuleRevisionID is the sentinel error wrapped by InvalidModuleRevisionIDError.
var ErrInvalidModuleRevisionID = errors.New("invalid module revision id")

type (
	// ModuleID identifies a module regardless of its revision.
	ModuleID struct {
		Organisation string
		Name         string
	}

	// Attribute is a single extra attribute attached to a revision id.
	// Extra attributes carry namespace extensions (e.g. a classifier).
	Attribute struct {
		Name  string
		Value string
	}

	// ModuleRevisionID identifies one revision of a module. The revision may be
	// a dynamic constraint ("latest.integration", "[1.0,2.0)", "1.0+") until it
	// has been resolved.
	ModuleRevisionID struct {
		Module   ModuleID
		Branch   string
		Revision string
		Extra    []Attribute
	}

	// InvalidModuleRevisionIDError is returned when a textual revision id
	// cannot be parsed.
	InvalidModuleRevisionIDError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidModuleRevisionIDError) Error() string {
	return fmt.Sprintf("invalid module revision id %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidModuleRevisionID for errors.Is() compatibility.
func (e *InvalidModuleRevisionIDError) Unwrap() error { return ErrInvalidModuleRevisionID }

// NewModuleID creates a module id.
func NewModuleID(org, name string) ModuleID {
	return ModuleID{Organisation: org, Name: name}
}

// String renders the module id as "org#name".
func (m ModuleID) String() string {
	return m.Organisation + "#" + m.Name
}

// IsZero reports whether the module id is empty.
func (m ModuleID) IsZero() bool {
	return m.Organisation == "" && m.Name == ""
}

// Compare orders module ids by organisation, then name.
func (m ModuleID) Compare(other ModuleID) int {
	if c := strings.Compare(m.Organisation, other.Organisation); c != 0 {
		return c
	}
	return strings.Compare(m.Name, other.Name)
}

// NewRevisionID creates a module revision id without branch or extra attributes.
func NewRevisionID(org, name, revision string) ModuleRevisionID {
	return ModuleRevisionID{Module: NewModuleID(org, name), Revision: revision}
}

// Organisation returns the organisation of the module.
func (r ModuleRevisionID) Organisation() string { return r.Module.Organisation }

// Name returns the name of the module.
func (r ModuleRevisionID) Name() string { return r.Module.Name }

// WithRevision returns a copy of r carrying another revision.
func (r ModuleRevisionID) WithRevision(revision string) ModuleRevisionID {
	out := r
	out.Revision = revision
	out.Extra = append([]Attribute(nil), r.Extra...)
	return out
}

// WithAttribute returns a copy of r with the attribute set. An existing
// attribute keeps its position; a new one is appended.
func (r ModuleRevisionID) WithAttribute(name, value string) ModuleRevisionID {
	out := r
	out.Extra = make([]Attribute, 0, len(r.Extra)+1)
	replaced := false
	for _, a := range r.Extra {
		if a.Name == name {
			a.Value = value
			replaced = true
		}
		out.Extra = append(out.Extra, a)
	}
	if !replaced {
		out.Extra = append(out.Extra, Attribute{Name: name, Value: value})
	}
	return out
}

// Attribute returns the value of an extra attribute.
func (r ModuleRevisionID) Attribute(name string) (string, bool) {
	for _, a := range r.Extra {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Key returns a canonical string covering every field of the id. Two ids are
// equal exactly when their keys are equal.
func (r ModuleRevisionID) Key() string {
	var sb strings.Builder
	sb.WriteString(r.Module.Organisation)
	sb.WriteByte('#')
	sb.WriteString(r.Module.Name)
	sb.WriteByte('#')
	sb.WriteString(r.Branch)
	sb.WriteByte(';')
	sb.WriteString(r.Revision)
	for _, a := range r.Extra {
		sb.WriteByte('|')
		sb.WriteString(a.Name)
		sb.WriteByte('=')
		sb.WriteString(a.Value)
	}
	return sb.String()
}

// Equal reports whether both ids have the same fields.
func (r ModuleRevisionID) Equal(other ModuleRevisionID) bool {
	return r.Key() == other.Key()
}

// String renders the id in the "org#name;rev" or "org#name#branch;rev" notation.
func (r ModuleRevisionID) String() string {
	s := r.Module.String()
	if r.Branch != "" {
		s += "#" + r.Branch
	}
	s += ";" + r.Revision
	return s
}

// Parse reads "org#name;rev" or "org#name#branch;rev".
func Parse(s string) (ModuleRevisionID, error) {
	coords, rev, found := strings.Cut(strings.TrimSpace(s), ";")
	if !found {
		return ModuleRevisionID{}, &InvalidModuleRevisionIDError{Value: s, Reason: "missing ';' before revision"}
	}
	parts := strings.Split(coords, "#")
	if len(parts) < 2 || len(parts) > 3 {
		return ModuleRevisionID{}, &InvalidModuleRevisionIDError{Value: s, Reason: "expected org#name or org#name#branch"}
	}
	for _, p := range parts[:2] {
		if p == "" {
			return ModuleRevisionID{}, &InvalidModuleRevisionIDError{Value: s, Reason: "organisation and name must not be empty"}
		}
	}
	if rev == "" {
		return ModuleRevisionID{}, &InvalidModuleRevisionIDError{Value: s, Reason: "revision must not be empty"}
	}
	id := NewRevisionID(parts[0], parts[1], rev)
	if len(parts) == 3 {
		id.Branch = parts[2]
	}
	return id, nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// static tables.
func MustParse(s string) ModuleRevisionID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}
