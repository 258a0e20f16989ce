// SPDX-License-Identifier: MPL-2.0

package conflict

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/invowk/trellis/pkg/latest"
	"github.com/invowk/trellis/pkg/moduleid"
)

const (
	// NoConflictName is the name of the keep-everything manager.
	NoConflictName = "all"
	// StrictName is the name of the strict manager.
	StrictName = "strict"
	// FixedName is the name of the fixed-revisions manager.
	FixedName = "fixed"
)

// ErrStrictConflict is the sentinel error wrapped by StrictConflictError.
var ErrStrictConflict = errors.New("strict conflict")

type (
	// Node is the view of a resolution node a manager works with.
	Node interface {
		ModuleID() moduleid.ModuleID
		ResolvedID() moduleid.ModuleRevisionID
		PublicationDate() time.Time
	}

	// Manager resolves a conflict between nodes sharing a module id.
	Manager interface {
		Name() string
		ResolveConflicts(parent Node, conflicts []Node) ([]Node, error)
	}

	// NoConflict keeps every node.
	NoConflict struct{}

	// Strict fails as soon as two distinct revisions compete.
	Strict struct{}

	// Fixed keeps only the nodes whose revision is listed. When no node is listed
	// it cannot decide and keeps them all.
	Fixed struct {
		Revisions []string
	}

	// Latest keeps the newest node according to its strategy.
	Latest struct {
		Strategy latest.Strategy
	}

	// StrictConflictError reports the competing revisions of a module.
	StrictConflictError struct {
		Module    moduleid.ModuleID
		Revisions []moduleid.ModuleRevisionID
	}

	// nodeInfo adapts a Node to latest.ArtifactInfo.
	nodeInfo struct {
		node Node
	}
)

// Error implements the error interface.
func (e *StrictConflictError) Error() string {
	revs := make([]string, len(e.Revisions))
	for i, r := range e.Revisions {
		revs[i] = r.Revision
	}
	return fmt.Sprintf("conflict on %s: %s", e.Module, strings.Join(revs, " != "))
}

// Unwrap returns ErrStrictConflict for errors.Is() compatibility.
func (e *StrictConflictError) Unwrap() error { return ErrStrictConflict }

// Name returns "all".
func (NoConflict) Name() string { return NoConflictName }

// ResolveConflicts returns the conflicts unchanged.
func (NoConflict) ResolveConflicts(_ Node, conflicts []Node) ([]Node, error) {
	return conflicts, nil
}

// Name returns "strict".
func (Strict) Name() string { return StrictName }

// ResolveConflicts fails with StrictConflictError when the nodes carry more than
// one distinct revision.
func (Strict) ResolveConflicts(_ Node, conflicts []Node) ([]Node, error) {
	distinct := distinctRevisions(conflicts)
	if len(distinct) > 1 {
		return nil, &StrictConflictError{Module: conflicts[0].ModuleID(), Revisions: distinct}
	}
	return conflicts, nil
}

// NewFixed creates a fixed manager.
func NewFixed(revisions ...string) Fixed {
	return Fixed{Revisions: slices.Clone(revisions)}
}

// Name returns "fixed".
func (Fixed) Name() string { return FixedName }

// ResolveConflicts keeps the listed revisions, or everything when none is listed.
func (f Fixed) ResolveConflicts(_ Node, conflicts []Node) ([]Node, error) {
	var kept []Node
	for _, n := range conflicts {
		if slices.Contains(f.Revisions, n.ResolvedID().Revision) {
			kept = append(kept, n)
		}
	}
	if len(kept) == 0 {
		return conflicts, nil
	}
	return kept, nil
}

// NewLatest creates a latest manager around strategy.
func NewLatest(strategy latest.Strategy) Latest {
	return Latest{Strategy: strategy}
}

// Name returns the name of the strategy ("latest-revision", ...).
func (l Latest) Name() string { return l.Strategy.Name() }

// ResolveConflicts keeps the single newest node. Nodes that resolved to the same
// revision as the winner survive with it.
func (l Latest) ResolveConflicts(_ Node, conflicts []Node) ([]Node, error) {
	if len(conflicts) < 2 {
		return conflicts, nil
	}
	infos := make([]latest.ArtifactInfo, len(conflicts))
	for i, n := range conflicts {
		infos[i] = nodeInfo{node: n}
	}
	best := l.Strategy.FindLatest(infos, time.Time{})
	if best == nil {
		return conflicts, nil
	}
	winner := best.(nodeInfo).node.ResolvedID()
	var kept []Node
	for _, n := range conflicts {
		if n.ResolvedID().Equal(winner) {
			kept = append(kept, n)
		}
	}
	return kept, nil
}

func (i nodeInfo) GetRevision() string { return i.node.ResolvedID().Revision }
func (i nodeInfo) GetLastModified() time.Time { return i.node.PublicationDate() }

func distinctRevisions(nodes []Node) []moduleid.ModuleRevisionID {
	var out []moduleid.ModuleRevisionID
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		id := n.ResolvedID()
		if seen[id.Key()] {
			continue
		}
		seen[id.Key()] = true
		out = append(out, id)
	}
	return out
}
