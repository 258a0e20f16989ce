// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"context"
	"fmt"

	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/resolver"
)

// Resolver serves descriptors from the cache and stores those fetched from the
// wrapped resolver.
type Resolver struct {
	inner     resolver.DependencyResolver
	cache     *Manager
	cacheOnly bool
}

// Wrap decorates inner. With cacheOnly, inner is never asked for descriptors.
func (m *Manager) Wrap(inner resolver.DependencyResolver, cacheOnly bool) *Resolver {
	return &Resolver{inner: inner, cache: m, cacheOnly: cacheOnly}
}

// Name returns the wrapped resolver name.
func (r *Resolver) Name() string { return r.inner.Name() }

// FindModule implements resolver.DependencyResolver.
func (r *Resolver) FindModule(ctx context.Context, id moduleid.ModuleRevisionID) (*resolver.ResolvedModuleRevision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	md, err := r.cache.LoadDescriptor(id)
	if err == nil {
		r.cache.logger.Debug("descriptor served from cache", "module", id.Module.String(), "revision", id.Revision)
		return resolver.NewResolved(md, r.inner.Name(), !r.cacheOnly, nil), nil
	}
	if r.cacheOnly {
		return nil, &resolver.ModuleNotFoundError{ID: id, Resolver: r.inner.Name() + " (cache only)"}
	}
	return r.FindChangingModule(ctx, id)
}

// FindChangingModule implements resolver.ChangingResolver: it always asks the
// wrapped resolver and refreshes the cached copy.
func (r *Resolver) FindChangingModule(ctx context.Context, id moduleid.ModuleRevisionID) (*resolver.ResolvedModuleRevision, error) {
	if r.cacheOnly {
		return r.FindModule(ctx, id)
	}
	res, err := r.inner.FindModule(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.SaveDescriptor(res.Descriptor); err != nil {
		r.cache.logger.Warn("failed to cache descriptor", "module", id.Module.String(), "revision", id.Revision, "error", err)
	}
	return res, nil
}

// ListRevisions implements resolver.DependencyResolver. In cache-only mode the
// cached revisions are listed.
func (r *Resolver) ListRevisions(ctx context.Context, mod moduleid.ModuleID) ([]resolver.RevisionInfo, error) {
	if !r.cacheOnly {
		return r.inner.ListRevisions(ctx, mod)
	}
	revs, err := r.cache.CachedRevisions(mod)
	if err != nil {
		return nil, err
	}
	out := make([]resolver.RevisionInfo, 0, len(revs))
	for _, rev := range revs {
		info := resolver.RevisionInfo{Revision: rev}
		if md, err := r.cache.LoadDescriptor(moduleid.ModuleRevisionID{Module: mod, Revision: rev}); err == nil {
			info.PublicationDate = md.PublicationDate
		}
		out = append(out, info)
	}
	return out, nil
}

// Download implements resolver.ArtifactDownloader by delegating to the wrapped
// resolver.
func (r *Resolver) Download(ctx context.Context, a moduleid.Artifact) (string, error) {
	d, ok := r.inner.(resolver.ArtifactDownloader)
	if !ok {
		return "", fmt.Errorf("%w: resolver %s cannot download", resolver.ErrArtifactNotFound, r.inner.Name())
	}
	return d.Download(ctx, a)
}
