// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/invowk/trellis/pkg/cache"
	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/resolver"
)

const (
	// DownloadSuccessful means the artifact was materialized locally.
	DownloadSuccessful DownloadStatus = "downloaded"
	// DownloadNo means no download was requested.
	DownloadNo DownloadStatus = "no"
	// DownloadFailed means the download was attempted and failed.
	DownloadFailed DownloadStatus = "failed"
	// DownloadSkipped means the resolver cannot provide the artifact.
	DownloadSkipped DownloadStatus = "skipped"
)

type (
	// DownloadStatus is the outcome of an artifact download.
	DownloadStatus string

	// ArtifactDownloadReport is the outcome for one artifact.
	ArtifactDownloadReport struct {
		Artifact  moduleid.Artifact
		LocalFile string
		Status    DownloadStatus
		Err       error
	}

	// ConfigurationReport is the part of a resolution seen from one root
	// configuration.
	ConfigurationReport struct {
		Name      string
		Modules   []*Node
		Evicted   []*Node
		Problems  []*NodeError
		Artifacts []*ArtifactDownloadReport
	}

	// Report is the outcome of a resolution. It is immutable once returned.
	Report struct {
		Root           *descriptor.ModuleDescriptor
		RootNode       *Node
		Options        Options
		Fingerprint    string
		Configurations []*ConfigurationReport
		// Dependencies are the selected nodes in discovery order.
		Dependencies []*Node
		Evicted      []*Node
		Problems     []*NodeError
		Duration     time.Duration

		hasError bool
	}
)

// HasError reports whether a required module failed under Validate, or a
// requested download failed.
func (r *Report) HasError() bool { return r != nil && r.hasError }

// Configuration returns the report of a root configuration.
func (r *Report) Configuration(name string) (*ConfigurationReport, bool) {
	for _, c := range r.Configurations {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ConfigurationNames returns the resolved root configurations.
func (r *Report) ConfigurationNames() []string {
	out := make([]string, len(r.Configurations))
	for i, c := range r.Configurations {
		out[i] = c.Name
	}
	return out
}

// Selected returns the selected node of a module.
func (r *Report) Selected(mod moduleid.ModuleID) (*Node, bool) {
	for _, n := range r.Dependencies {
		if n.ModuleID() == mod {
			return n, true
		}
	}
	return nil, false
}

// Sorted returns the selected dependencies, dependencies first.
func (r *Report) Sorted() []*Node {
	return SortNodes(r.Dependencies)
}

// ModuleRevisionIDs returns the resolved ids of the modules of the
// configuration.
func (c *ConfigurationReport) ModuleRevisionIDs() []moduleid.ModuleRevisionID {
	out := make([]moduleid.ModuleRevisionID, len(c.Modules))
	for i, n := range c.Modules {
		out[i] = n.resolved
	}
	return out
}

// Record converts the report into a cache record.
func (r *Report) Record(generated time.Time) *cache.ResolvedRecord {
	rec := &cache.ResolvedRecord{
		Root:         r.Root.ID.String(),
		Organisation: r.Root.ID.Organisation(),
		Module:       r.Root.ID.Name(),
		Confs:        r.ConfigurationNames(),
		Fingerprint:  r.Fingerprint,
		Generated:    generated.UTC(),
		HasError:     r.hasError,
	}
	for _, c := range r.Configurations {
		cr := cache.ConfRecord{Name: c.Name}
		for _, n := range c.Modules {
			cr.Modules = append(cr.Modules, n.resolved.String())
		}
		for _, a := range c.Artifacts {
			row := cache.ArtifactRow{Artifact: a.Artifact.String(), Status: string(a.Status), LocalFile: a.LocalFile}
			if a.Err != nil {
				row.Error = a.Err.Error()
			}
			cr.Artifacts = append(cr.Artifacts, row)
		}
		rec.Configurations = append(rec.Configurations, cr)
	}
	for _, n := range r.Evicted {
		entry := cache.EvictedEntry{Module: n.resolved.String(), Manager: n.evictionManager}
		for _, id := range n.EvictedBy() {
			entry.EvictedBy = append(entry.EvictedBy, id.String())
		}
		rec.Evicted = append(rec.Evicted, entry)
	}
	for _, p := range r.Problems {
		rec.Problems = append(rec.Problems, cache.ProblemEntry{Module: p.Module.String(), Message: p.Error()})
	}
	return rec
}

// report builds the Report of a finished walk and downloads artifacts when
// asked to.
func (r *run) report(ctx context.Context) (*Report, error) {
	rootNode := r.g.nodes[r.g.root]
	rep := &Report{Root: r.root, RootNode: rootNode, Options: r.opts}
	if fp, err := cache.Fingerprint(r.root, r.opts.fingerprintParts(r.rootConfs)...); err == nil {
		rep.Fingerprint = fp
	}

	live := r.g.live()
	var failed []*Node
	for _, n := range r.g.nodes {
		if n.mergedTo != noHandle {
			continue
		}
		if len(n.problems) > 0 && n.reachable(live) {
			failed = append(failed, n)
			rep.Problems = append(rep.Problems, n.problems...)
			if r.opts.Validate && !n.IsOptional() {
				rep.hasError = true
			}
		}
		switch {
		case n.root || n.md == nil:
		case n.evicted:
			rep.Evicted = append(rep.Evicted, n)
		case live[n.h]:
			rep.Dependencies = append(rep.Dependencies, n)
		}
	}

	for _, rc := range r.rootConfs {
		cr := &ConfigurationReport{Name: rc}
		for _, n := range rep.Dependencies {
			if !n.required[rc].empty() {
				cr.Modules = append(cr.Modules, n)
			}
		}
		for _, n := range rep.Evicted {
			if !n.raw[rc].empty() {
				cr.Evicted = append(cr.Evicted, n)
			}
		}
		for _, n := range failed {
			if n.root || !n.raw[rc].empty() {
				cr.Problems = append(cr.Problems, n.problems...)
			}
		}
		for _, n := range cr.Modules {
			arts, err := r.artifacts(ctx, n, rc, live)
			if err != nil {
				return nil, err
			}
			cr.Artifacts = append(cr.Artifacts, arts...)
		}
		for _, a := range cr.Artifacts {
			if a.Status == DownloadFailed {
				rep.hasError = true
			}
		}
		rep.Configurations = append(rep.Configurations, cr)
	}
	return rep, nil
}

// artifacts returns the download reports of the artifacts of n used in
// rootConf and accepted by the edges leading to n.
func (r *run) artifacts(ctx context.Context, n *Node, rootConf string, live map[handle]bool) ([]*ArtifactDownloadReport, error) {
	var out []*ArtifactDownloadReport
	seen := make(map[string]bool)
	for _, conf := range n.required[rootConf].list() {
		for _, a := range n.md.ArtifactsFor(conf) {
			key := a.ID().String()
			if seen[key] || !r.acceptsArtifact(n, a, rootConf, live) {
				continue
			}
			seen[key] = true
			rep, err := r.download(ctx, n, a)
			if err != nil {
				return nil, err
			}
			out = append(out, rep)
		}
	}
	return out, nil
}

func (r *run) acceptsArtifact(n *Node, a moduleid.Artifact, rootConf string, live map[handle]bool) bool {
	if r.opts.ArtifactFilter != nil && !r.opts.ArtifactFilter(a) {
		return false
	}
	for _, c := range n.callers {
		if c.rootConf == rootConf && live[r.g.node(c.parent).h] && c.dd.AcceptsArtifact(a, c.parentConf) {
			return true
		}
	}
	return false
}

func (r *run) download(ctx context.Context, n *Node, a moduleid.Artifact) (*ArtifactDownloadReport, error) {
	rep := &ArtifactDownloadReport{Artifact: a, Status: DownloadNo}
	if !r.opts.Download {
		return rep, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var dl resolver.ArtifactDownloader
	if dr := r.e.settings.ResolverFor(n.ModuleID()); dr != nil {
		dl, _ = dr.(resolver.ArtifactDownloader)
	}
	if dl == nil || !n.downloadable {
		rep.Status = DownloadSkipped
		r.e.metrics.ArtifactDownloaded(string(rep.Status))
		return rep, nil
	}
	path, err := dl.Download(ctx, a)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		rep.Status = DownloadFailed
		rep.Err = fmt.Errorf("download %s: %w", a, err)
		r.e.logger.Warn("artifact download failed", "artifact", a.String(), "error", err)
	default:
		rep.Status = DownloadSuccessful
		rep.LocalFile = path
	}
	r.e.metrics.ArtifactDownloaded(string(rep.Status))
	return rep, nil
}
