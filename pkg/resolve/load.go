// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/trellis/internal/observability"
	"github.com/invowk/trellis/pkg/latest"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/resolver"
	"github.com/invowk/trellis/pkg/version"
)

// load chooses the revision of n and fetches its descriptor. Failures are
// recorded on n; only cancellation is returned.
func (r *run) load(ctx context.Context, n *Node) (err error) {
	n.loaded = true
	ctx, span := observability.StartSpan(ctx, "trellis.load", "module", n.asked.String())
	defer func() { observability.EndSpan(span, err) }()

	res, kind, ferr := r.find(ctx, n)
	if ferr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		n.addProblem(kind, ferr)
		r.e.logger.Warn("module not resolved", "module", n.asked.String(), "error", ferr)
		return nil
	}
	defer func() { _ = res.Close() }()

	md := res.Descriptor
	if r.opts.Validate {
		if verr := md.Validate(); verr != nil {
			n.addProblem(KindInvalidDescriptor, verr)
			r.e.logger.Warn("invalid descriptor", "module", res.ID.String(), "error", verr)
			return nil
		}
	}
	n.md = md
	n.resolved = res.ID
	n.publication = res.PublicationDate
	if n.publication.IsZero() {
		n.publication = md.PublicationDate
	}
	n.resolverName = res.Resolver
	n.downloadable = res.Downloadable
	if !n.resolved.Equal(n.asked) {
		r.e.logger.Debug("revision selected", "asked", n.asked.String(), "resolved", n.resolved.String())
	}

	if other := r.g.findResolved(n); other != nil {
		r.merge(n, other)
		return nil
	}
	r.g.register(n)
	for _, rc := range r.rootConfs {
		r.refreshRequired(n, rc)
	}
	return nil
}

// merge folds n into other, a node already resolved to the same revision.
func (r *run) merge(n, other *Node) {
	n.mergedTo = other.h
	for _, c := range n.callers {
		other.addCaller(c)
		r.g.node(c.parent).replaceChild(n.h, other.h)
	}
	for _, rc := range r.rootConfs {
		if raw, ok := n.raw[rc]; ok && other.confs(other.raw, rc).add(raw.order...) && other.md != nil {
			r.refreshRequired(other, rc)
		}
	}
	r.e.logger.Debug("merged node", "asked", n.asked.String(), "into", other.resolved.String())
}

// find returns the resolved revision of n.
func (r *run) find(ctx context.Context, n *Node) (*resolver.ResolvedModuleRevision, NodeErrorKind, error) {
	mod := n.ModuleID()
	dr := r.e.settings.ResolverFor(mod)
	if dr == nil {
		return nil, KindNoResolver, fmt.Errorf("%w for %s", ErrNoResolver, mod)
	}
	if c := r.e.settings.Cache(); c != nil {
		dr = c.Wrap(dr, r.opts.UseCacheOnly)
	}

	matcher := r.e.settings.Matchers()
	if !matcher.IsDynamic(n.asked) {
		res, err := r.fetch(ctx, dr, n.asked, n.isChanging())
		return res, fetchKind(err), err
	}
	if err := matcher.Validate(n.asked); err != nil {
		return nil, KindMalformedRevision, err
	}
	return r.findDynamic(ctx, dr, n, matcher)
}

// findDynamic lists the revisions of the module and returns the newest one
// accepted by the matcher, published before the date cutoff.
func (r *run) findDynamic(ctx context.Context, dr resolver.DependencyResolver, n *Node, matcher version.Matcher) (*resolver.ResolvedModuleRevision, NodeErrorKind, error) {
	infos, err := dr.ListRevisions(ctx, n.ModuleID())
	if err != nil {
		return nil, KindFetch, err
	}
	var candidates []latest.ArtifactInfo
	for _, info := range infos {
		if matcher.Accept(n.asked, n.asked.WithRevision(info.Revision)) {
			candidates = append(candidates, info)
		}
	}
	sorted := r.e.settings.DefaultLatestStrategy().Sort(candidates)
	for i := len(sorted) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, KindFetch, err
		}
		info := sorted[i]
		if !latest.Eligible(info, r.opts.Date) {
			continue
		}
		found := n.asked.WithRevision(info.GetRevision())
		res, err := r.fetch(ctx, dr, found, n.isChanging())
		if err != nil {
			if ctx.Err() != nil {
				return nil, KindFetch, err
			}
			r.e.logger.Debug("candidate revision not usable", "module", found.String(), "error", err)
			continue
		}
		if matcher.NeedModuleDescriptor(n.asked, found) && !matcher.AcceptDescriptor(n.asked, found, res.Descriptor.Status) {
			_ = res.Close()
			continue
		}
		if !latest.Eligible(resolver.RevisionInfo{Revision: found.Revision, PublicationDate: res.PublicationDate}, r.opts.Date) {
			_ = res.Close()
			continue
		}
		return res, "", nil
	}
	return nil, KindNoMatchingRevision, fmt.Errorf("%w for %s among %d revisions", ErrNoMatchingRevision, n.asked, len(infos))
}

// fetch asks dr for a concrete revision, bypassing caches for changing
// dependencies.
func (r *run) fetch(ctx context.Context, dr resolver.DependencyResolver, id moduleid.ModuleRevisionID, changing bool) (*resolver.ResolvedModuleRevision, error) {
	var (
		res *resolver.ResolvedModuleRevision
		err error
	)
	if cr, ok := dr.(resolver.ChangingResolver); ok && changing {
		res, err = cr.FindChangingModule(ctx, id)
	} else {
		res, err = dr.FindModule(ctx, id)
	}
	r.e.metrics.DescriptorFetched(dr.Name(), err)
	return res, err
}

// isChanging reports whether any edge declares the node changing.
func (n *Node) isChanging() bool {
	for _, c := range n.callers {
		if c.dd.Changing {
			return true
		}
	}
	return false
}

func fetchKind(err error) NodeErrorKind {
	if errors.Is(err, resolver.ErrModuleNotFound) {
		return KindNotFound
	}
	return KindFetch
}
