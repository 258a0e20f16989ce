// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/trellis/pkg/moduleid"
)

// Chain tries its resolvers in order.
type Chain struct {
	name      string
	resolvers []DependencyResolver
}

// NewChain creates a chain.
func NewChain(name string, resolvers ...DependencyResolver) *Chain {
	return &Chain{name: name, resolvers: append([]DependencyResolver(nil), resolvers...)}
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Resolvers returns the chained resolvers.
func (c *Chain) Resolvers() []DependencyResolver {
	return append([]DependencyResolver(nil), c.resolvers...)
}

// FindModule returns the revision from the first resolver that has it. Errors
// other than not-found are kept and returned when no resolver succeeds.
func (c *Chain) FindModule(ctx context.Context, id moduleid.ModuleRevisionID) (*ResolvedModuleRevision, error) {
	var errs []error
	for _, r := range c.resolvers {
		res, err := r.FindModule(ctx, id)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, ErrModuleNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, &ModuleNotFoundError{ID: id, Resolver: c.name}
}

// ListRevisions returns the union of the revisions of every resolver. The
// first resolver listing a revision provides its publication date.
func (c *Chain) ListRevisions(ctx context.Context, mod moduleid.ModuleID) ([]RevisionInfo, error) {
	var out []RevisionInfo
	seen := make(map[string]bool)
	for _, r := range c.resolvers {
		infos, err := r.ListRevisions(ctx, mod)
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			if !seen[info.Revision] {
				seen[info.Revision] = true
				out = append(out, info)
			}
		}
	}
	return out, nil
}

// Download asks every chained downloader in order.
func (c *Chain) Download(ctx context.Context, a moduleid.Artifact) (string, error) {
	var errs []error
	for _, r := range c.resolvers {
		d, ok := r.(ArtifactDownloader)
		if !ok {
			continue
		}
		path, err := d.Download(ctx, a)
		if err == nil {
			return path, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %s (no downloader in chain %s)", ErrArtifactNotFound, a, c.name)
	}
	return "", errors.Join(errs...)
}
