// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"strconv"

	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/sortengine"
)

// SortNodes orders nodes so that every node comes after the nodes it depends
// on. A dependency on an evicted revision counts as a dependency on the
// selected revision of the same module. Nodes without constraints between them
// keep their order, and cycle edges are dropped.
func SortNodes(nodes []*Node) []*Node {
	key := func(n *Node) string { return strconv.Itoa(int(n.h)) }
	deps := func(n *Node) []string {
		var out []string
		for _, h := range n.children {
			c := n.g.node(h)
			if c.evicted {
				out = append(out, n.g.selected(c.ModuleID())...)
				continue
			}
			out = append(out, key(c))
		}
		return out
	}
	sorted, _ := sortengine.Sort(nodes, key, deps, nil)
	return sorted
}

// selected returns the keys of the non-evicted loaded nodes of mod.
func (g *graph) selected(mod moduleid.ModuleID) []string {
	var out []string
	for _, h := range g.byModule[mod] {
		n := g.nodes[h]
		if !n.evicted && n.mergedTo == noHandle {
			out = append(out, strconv.Itoa(int(h)))
		}
	}
	return out
}
