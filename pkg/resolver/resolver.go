// SPDX-License-Identifier: MPL-2.0

// Package resolver defines the repository collaborators the resolution engine
// talks to, and three implementations: an in-memory repository, a directory
// tree of module.cue files, and a chain that tries resolvers in order.
//
// Resolvers are safe for concurrent use.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
)

var (
	// ErrModuleNotFound is the sentinel error wrapped by ModuleNotFoundError.
	ErrModuleNotFound = errors.New("module not found")

	// ErrArtifactNotFound is returned by downloaders for unknown artifacts.
	ErrArtifactNotFound = errors.New("artifact not found")
)

type (
	// DependencyResolver finds module revisions in a repository.
	DependencyResolver interface {
		Name() string
		// FindModule returns the descriptor of a concrete revision. The caller
		// must Close the result.
		FindModule(ctx context.Context, id moduleid.ModuleRevisionID) (*ResolvedModuleRevision, error)
		// ListRevisions returns the known revisions of a module, in no
		// particular order.
		ListRevisions(ctx context.Context, mod moduleid.ModuleID) ([]RevisionInfo, error)
	}

	// ArtifactDownloader is implemented by resolvers able to materialize
	// artifacts locally.
	ArtifactDownloader interface {
		Download(ctx context.Context, a moduleid.Artifact) (string, error)
	}

	// ChangingResolver is implemented by resolvers that keep a local copy of
	// descriptors. FindChangingModule bypasses that copy.
	ChangingResolver interface {
		FindChangingModule(ctx context.Context, id moduleid.ModuleRevisionID) (*ResolvedModuleRevision, error)
	}

	// RevisionInfo is a revision known by a resolver. A zero PublicationDate
	// means unknown.
	RevisionInfo struct {
		Revision        string
		PublicationDate time.Time
	}

	// ResolvedModuleRevision is a found module revision. It may hold a handle on
	// the repository until closed.
	ResolvedModuleRevision struct {
		ID              moduleid.ModuleRevisionID
		Descriptor      *descriptor.ModuleDescriptor
		PublicationDate time.Time
		Downloadable    bool
		Resolver        string

		closeOnce sync.Once
		release   func()
	}

	// ModuleNotFoundError is returned when a resolver does not know a revision.
	ModuleNotFoundError struct {
		ID       moduleid.ModuleRevisionID
		Resolver string
	}
)

// GetRevision implements latest.ArtifactInfo.
func (i RevisionInfo) GetRevision() string { return i.Revision }

// GetLastModified implements latest.ArtifactInfo.
func (i RevisionInfo) GetLastModified() time.Time { return i.PublicationDate }

// Error implements the error interface.
func (e *ModuleNotFoundError) Error() string {
	if e.Resolver == "" {
		return fmt.Sprintf("module not found: %s", e.ID)
	}
	return fmt.Sprintf("module not found: %s (resolver %s)", e.ID, e.Resolver)
}

// Unwrap returns ErrModuleNotFound for errors.Is() compatibility.
func (e *ModuleNotFoundError) Unwrap() error { return ErrModuleNotFound }

// NewResolved creates a ResolvedModuleRevision. release, when not nil, runs
// once on Close.
func NewResolved(md *descriptor.ModuleDescriptor, resolverName string, downloadable bool, release func()) *ResolvedModuleRevision {
	return &ResolvedModuleRevision{
		ID:              md.ID,
		Descriptor:      md,
		PublicationDate: md.PublicationDate,
		Downloadable:    downloadable,
		Resolver:        resolverName,
		release:         release,
	}
}

// Close releases the repository handle. It is safe to call more than once.
func (r *ResolvedModuleRevision) Close() error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		if r.release != nil {
			r.release()
		}
	})
	return nil
}
