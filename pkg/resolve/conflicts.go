// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"slices"
	"strconv"
	"strings"

	"github.com/invowk/trellis/pkg/conflict"
	"github.com/invowk/trellis/pkg/moduleid"
)

// forcedManager is the eviction manager name of forced decisions.
const forcedManager = "force"

// resolveConflicts evicts the losing revisions of mod among its loaded nodes
// still reachable from the root. Nothing happens when the candidate set did
// not change since the last call.
func (r *run) resolveConflicts(mod moduleid.ModuleID) error {
	live := r.g.live()
	var candidates []*Node
	for _, h := range r.g.byModule[mod] {
		n := r.g.nodes[h]
		if n.mergedTo == noHandle && n.md != nil && n.reachable(live) {
			candidates = append(candidates, n)
		}
	}
	sig := signature(candidates, live)
	if r.lastConflict[mod] == sig {
		return nil
	}
	r.lastConflict[mod] = sig

	switch len(candidates) {
	case 0:
		return nil
	case 1:
		if n := candidates[0]; n.evicted {
			r.restore(n)
		}
		return nil
	}

	winners, managerName, err := r.decide(mod, candidates)
	if err != nil {
		return err
	}
	evicted := 0
	for _, n := range candidates {
		if slices.Contains(winners, n) {
			if n.evicted {
				r.restore(n)
			}
			continue
		}
		if !n.evicted {
			evicted++
			r.e.logger.Debug("evicted", "module", n.resolved.String(), "manager", managerName)
		}
		n.evicted = true
		n.evictionManager = managerName
		n.evictedBy = n.evictedBy[:0]
		for _, w := range winners {
			n.evictedBy = append(n.evictedBy, w.h)
		}
	}
	r.e.metrics.ConflictResolved(managerName, evicted)
	return nil
}

// decide returns the surviving candidates. Forced edges win over the manager.
func (r *run) decide(mod moduleid.ModuleID, candidates []*Node) ([]*Node, string, error) {
	live := r.g.live()
	var forced []*Node
	for _, n := range candidates {
		if n.isForced(live) {
			forced = append(forced, n)
		}
	}
	if len(forced) > 0 {
		// Forced nodes closest to the root win; discovery order breaks ties.
		best := forced[0]
		for _, n := range forced[1:] {
			if n.depth < best.depth {
				best = n
			}
		}
		return []*Node{best}, forcedManager, nil
	}

	m := r.managerFor(mod)
	nodes := make([]conflict.Node, len(candidates))
	for i, n := range candidates {
		nodes[i] = n
	}
	kept, err := m.ResolveConflicts(r.g.nodes[r.g.root], nodes)
	if err != nil {
		return nil, m.Name(), err
	}
	if len(kept) == 0 {
		return candidates, m.Name(), nil
	}
	winners := make([]*Node, 0, len(kept))
	for _, k := range kept {
		if n, ok := k.(*Node); ok {
			winners = append(winners, n)
		}
	}
	return winners, m.Name(), nil
}

// settle re-runs conflict resolution until evictions stop changing the set of
// reachable candidates.
func (r *run) settle() error {
	for range len(r.g.nodes) + 1 {
		before := r.evictionState()
		for _, mod := range r.g.modules {
			if err := r.resolveConflicts(mod); err != nil {
				return err
			}
		}
		if r.evictionState() == before {
			return nil
		}
	}
	r.e.logger.Warn("conflict resolution did not converge", "module", r.root.ID.String())
	return nil
}

func (r *run) restore(n *Node) {
	n.evicted = false
	n.evictedBy = nil
	n.evictionManager = ""
	r.e.logger.Debug("restored", "module", n.resolved.String())
}

func (r *run) evictionState() string {
	var b strings.Builder
	for _, n := range r.g.nodes {
		if n.evicted {
			b.WriteString(strconv.Itoa(int(n.h)))
			b.WriteByte(',')
		}
	}
	return b.String()
}

// signature identifies a candidate set, including which nodes are forced.
func signature(nodes []*Node, live map[handle]bool) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = strconv.Itoa(int(n.h))
		if n.isForced(live) {
			parts[i] += "!"
		}
	}
	return strings.Join(parts, ",")
}

// isForced reports whether a live edge forces the node.
func (n *Node) isForced(live map[handle]bool) bool {
	for _, c := range n.callers {
		if c.dd.Force && live[n.g.node(c.parent).h] {
			return true
		}
	}
	return false
}
