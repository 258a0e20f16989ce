// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"strconv"

	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
)

// expandAll walks the configurations of live loaded nodes that were not
// walked yet, until no node has anything left to expand. It reports whether
// anything was expanded.
func (r *run) expandAll(ctx context.Context) (bool, error) {
	expanded := false
	for {
		progressed := false
		live := r.g.live()
		for i := 0; i < len(r.g.nodes); i++ {
			n := r.g.nodes[i]
			if !live[n.h] || n.md == nil {
				continue
			}
			p, err := r.expand(ctx, n)
			if err != nil {
				return false, err
			}
			progressed = progressed || p
		}
		if !progressed {
			return expanded, nil
		}
		expanded = true
	}
}

// expand attaches the dependencies n needs in the configurations not expanded
// yet. It reports whether anything was expanded.
func (r *run) expand(ctx context.Context, n *Node) (bool, error) {
	if !r.expands(n) {
		return false, nil
	}
	progressed := false
	for _, rc := range r.rootConfs {
		done, ok := n.expanded[rc]
		if !ok {
			done = make(map[string]bool)
			n.expanded[rc] = done
		}
		for _, conf := range n.required[rc].list() {
			if done[conf] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return false, err
			}
			done[conf] = true
			progressed = true
			if err := r.expandConf(n, conf, rc); err != nil {
				return false, err
			}
		}
	}
	return progressed, nil
}

// expands reports whether the dependencies of n are walked: always for the
// root, and otherwise when the resolution is transitive and a live edge is.
func (r *run) expands(n *Node) bool {
	if n.root {
		return true
	}
	if !r.opts.Transitive {
		return false
	}
	live := r.g.live()
	for _, c := range n.callers {
		if c.dd.Transitive && live[r.g.node(c.parent).h] {
			return true
		}
	}
	return false
}

func (r *run) expandConf(n *Node, conf, rootConf string) error {
	for _, dd := range n.md.Dependencies {
		confs, err := n.md.DependencyConfigurations(dd, conf, rootConf)
		if err != nil {
			n.addProblem(KindConfiguration, err)
			continue
		}
		if len(confs) == 0 {
			continue
		}
		mod := dd.ModuleID()
		if r.excluded(n, mod, conf, make(map[handle]bool)) {
			r.e.logger.Debug("dependency excluded", "module", mod.String(), "from", n.resolved.String())
			continue
		}
		if cycle := r.cycleTo(n, dd.ID); cycle != nil {
			if err := r.cycle(n, mod, cycle); err != nil {
				return err
			}
			continue
		}
		r.attach(n, dd, conf, rootConf, confs)
	}
	return nil
}

// attach records the edge n -> dd, creating the target node when needed.
func (r *run) attach(n *Node, dd *descriptor.DependencyDescriptor, conf, rootConf string, confs []string) {
	key := dd.ID.Key()
	var child *Node
	if h, ok := r.g.byKey[key]; ok {
		child = r.g.node(h)
	} else {
		child = r.g.newNode(dd.ID, n.depth+1)
		r.g.byKey[key] = child.h
	}
	child.addCaller(caller{parent: n.h, dd: dd, parentConf: conf, rootConf: rootConf})
	n.addChild(child.h)
	if child.confs(child.raw, rootConf).add(confs...) && child.md != nil {
		r.refreshRequired(child, rootConf)
	}
}

// refreshRequired resolves the requested configurations of a loaded node
// against its descriptor. Missing or private configurations are recorded as
// problems; the others are still used.
func (r *run) refreshRequired(n *Node, rootConf string) {
	raw, ok := n.raw[rootConf]
	if !ok || n.root {
		return
	}
	confs, err := descriptor.ResolveDependeeConfigurations(raw.list(), n.md)
	if err != nil {
		n.addProblem(KindConfiguration, err)
	}
	n.confs(n.required, rootConf).add(n.md.ExpandConfigurations(confs...)...)
}

// excluded reports whether mod is excluded below n when n is used in conf:
// by the exclude rules of n's descriptor, or on every path leading to n.
func (r *run) excluded(n *Node, mod moduleid.ModuleID, conf string, visiting map[handle]bool) bool {
	if n.md != nil && n.md.IsExcluded(mod, conf) {
		return true
	}
	if n.root || visiting[n.h] {
		return false
	}
	visiting[n.h] = true
	defer delete(visiting, n.h)

	live := r.g.live()
	paths := 0
	for _, c := range n.callers {
		parent := r.g.node(c.parent)
		if !live[parent.h] {
			continue
		}
		paths++
		if c.dd.ExcludesModule(mod, c.parentConf) {
			continue
		}
		if !r.excluded(parent, mod, c.parentConf, visiting) {
			return false
		}
	}
	return paths > 0
}

// cycleTo returns the chain of revisions from an ancestor of n belonging to
// the module of target down to target, or nil when adding n -> target closes
// no cycle.
func (r *run) cycleTo(n *Node, target moduleid.ModuleRevisionID) []moduleid.ModuleRevisionID {
	mod := target.Module
	below := map[handle]handle{n.h: noHandle}
	queue := []handle{n.h}
	for len(queue) > 0 {
		cur := r.g.nodes[queue[0]]
		queue = queue[1:]
		if cur.ModuleID() == mod {
			path := []moduleid.ModuleRevisionID{cur.resolved}
			for h := below[cur.h]; h != noHandle; h = below[h] {
				path = append(path, r.g.nodes[h].resolved)
			}
			return append(path, target)
		}
		for _, c := range cur.callers {
			p := r.g.node(c.parent)
			if _, seen := below[p.h]; seen {
				continue
			}
			below[p.h] = cur.h
			queue = append(queue, p.h)
		}
	}
	return nil
}

// cycle applies the circular strategy to a detected cycle, once per edge.
func (r *run) cycle(n *Node, mod moduleid.ModuleID, cycle []moduleid.ModuleRevisionID) error {
	key := strconv.Itoa(int(n.h)) + ">" + mod.String()
	if r.cycles[key] {
		return nil
	}
	r.cycles[key] = true
	r.e.metrics.CircularDependency()
	return r.e.settings.CircularStrategy().Handle(r.e.logger, cycle)
}
