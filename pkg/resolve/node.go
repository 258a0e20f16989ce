// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"slices"
	"time"

	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
)

const noHandle handle = -1

type (
	// handle indexes a node in its graph.
	handle int

	// caller is one edge leading to a node.
	caller struct {
		parent     handle
		dd         *descriptor.DependencyDescriptor
		parentConf string
		rootConf   string
	}

	// confSet is an insertion-ordered set of configuration names.
	confSet struct {
		order []string
		has   map[string]bool
	}

	// Caller describes a dependency edge leading to a node.
	Caller struct {
		Parent     moduleid.ModuleRevisionID
		Dependency *descriptor.DependencyDescriptor
		ParentConf string
		RootConf   string
	}

	// Node is a vertex of the resolution graph: one asked module revision, the
	// revision it resolved to and every edge that asked for it.
	Node struct {
		g *graph
		h handle

		asked        moduleid.ModuleRevisionID
		resolved     moduleid.ModuleRevisionID
		md           *descriptor.ModuleDescriptor
		publication  time.Time
		resolverName string
		downloadable bool
		root         bool
		depth        int

		callers  []caller
		children []handle

		// raw holds the dependee configurations requested per root conf, as
		// written in the mappings; required holds them resolved against the
		// descriptor and closed over extends; expanded those whose
		// dependencies were already walked.
		raw      map[string]*confSet
		required map[string]*confSet
		expanded map[string]map[string]bool

		loaded   bool
		mergedTo handle

		evicted         bool
		evictedBy       []handle
		evictionManager string

		problems []*NodeError
	}

	// graph is the arena owning every node of a resolution.
	graph struct {
		nodes    []*Node
		byKey    map[string]handle
		byModule map[moduleid.ModuleID][]handle
		modules  []moduleid.ModuleID
		root     handle
	}
)

func newConfSet() *confSet {
	return &confSet{has: make(map[string]bool)}
}

// add inserts names and reports whether the set changed.
func (s *confSet) add(names ...string) bool {
	changed := false
	for _, n := range names {
		if !s.has[n] {
			s.has[n] = true
			s.order = append(s.order, n)
			changed = true
		}
	}
	return changed
}

func (s *confSet) list() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.order)
}

func (s *confSet) empty() bool {
	return s == nil || len(s.order) == 0
}

func newGraph() *graph {
	return &graph{
		byKey:    make(map[string]handle),
		byModule: make(map[moduleid.ModuleID][]handle),
		root:     noHandle,
	}
}

func (g *graph) newNode(asked moduleid.ModuleRevisionID, depth int) *Node {
	n := &Node{
		g:        g,
		h:        handle(len(g.nodes)),
		asked:    asked,
		resolved: asked,
		depth:    depth,
		raw:      make(map[string]*confSet),
		required: make(map[string]*confSet),
		expanded: make(map[string]map[string]bool),
		mergedTo: noHandle,
	}
	g.nodes = append(g.nodes, n)
	return n
}

// node returns the node behind h, following merges.
func (g *graph) node(h handle) *Node {
	n := g.nodes[h]
	for n.mergedTo != noHandle {
		n = g.nodes[n.mergedTo]
	}
	return n
}

// register adds a loaded node to the conflict set of its module.
func (g *graph) register(n *Node) {
	mod := n.ModuleID()
	if _, ok := g.byModule[mod]; !ok {
		g.modules = append(g.modules, mod)
	}
	g.byModule[mod] = append(g.byModule[mod], n.h)
}

// findResolved returns another loaded node resolved to the same revision.
func (g *graph) findResolved(n *Node) *Node {
	key := n.resolved.Key()
	for _, h := range g.byModule[n.ModuleID()] {
		other := g.nodes[h]
		if other != n && other.resolved.Key() == key {
			return other
		}
	}
	return nil
}

// live returns the nodes reachable from the root through non-evicted nodes.
func (g *graph) live() map[handle]bool {
	live := make(map[handle]bool, len(g.nodes))
	if g.root == noHandle {
		return live
	}
	live[g.root] = true
	queue := []handle{g.root}
	for len(queue) > 0 {
		n := g.nodes[queue[0]]
		queue = queue[1:]
		for _, ch := range n.children {
			c := g.node(ch)
			if c.evicted || live[c.h] {
				continue
			}
			live[c.h] = true
			queue = append(queue, c.h)
		}
	}
	return live
}

// reachable reports whether n has a caller in live. The root is reachable.
func (n *Node) reachable(live map[handle]bool) bool {
	if n.root {
		return true
	}
	for _, c := range n.callers {
		if live[n.g.node(c.parent).h] {
			return true
		}
	}
	return false
}

func (n *Node) addCaller(c caller) {
	for _, existing := range n.callers {
		if existing.parent == c.parent && existing.dd == c.dd && existing.parentConf == c.parentConf && existing.rootConf == c.rootConf {
			return
		}
	}
	n.callers = append(n.callers, c)
}

func (n *Node) addChild(h handle) {
	if !slices.Contains(n.children, h) {
		n.children = append(n.children, h)
	}
}

func (n *Node) replaceChild(from, to handle) {
	i := slices.Index(n.children, from)
	if i < 0 {
		return
	}
	if slices.Contains(n.children, to) {
		n.children = slices.Delete(n.children, i, i+1)
		return
	}
	n.children[i] = to
}

func (n *Node) addProblem(kind NodeErrorKind, err error) {
	for _, p := range n.problems {
		if p.Kind == kind && p.Err.Error() == err.Error() {
			return
		}
	}
	n.problems = append(n.problems, &NodeError{Module: n.resolved, Kind: kind, Err: err})
}

func (n *Node) confs(m map[string]*confSet, rootConf string) *confSet {
	s, ok := m[rootConf]
	if !ok {
		s = newConfSet()
		m[rootConf] = s
	}
	return s
}

// ID returns the revision asked by the dependency descriptors.
func (n *Node) ID() moduleid.ModuleRevisionID { return n.asked }

// ResolvedID returns the concrete revision selected for the node, or the asked
// one before loading.
func (n *Node) ResolvedID() moduleid.ModuleRevisionID { return n.resolved }

// ModuleID returns the module of the node.
func (n *Node) ModuleID() moduleid.ModuleID { return n.asked.Module }

// Descriptor returns the fetched descriptor, or nil when loading failed or did
// not happen.
func (n *Node) Descriptor() *descriptor.ModuleDescriptor { return n.md }

// PublicationDate returns the publication date of the resolved revision.
func (n *Node) PublicationDate() time.Time { return n.publication }

// Resolver returns the name of the resolver that found the node.
func (n *Node) Resolver() string { return n.resolverName }

// IsDownloadable reports whether the resolver can provide artifacts.
func (n *Node) IsDownloadable() bool { return n.downloadable }

// IsRoot reports whether the node is the resolved module itself.
func (n *Node) IsRoot() bool { return n.root }

// IsLoaded reports whether the descriptor was fetched.
func (n *Node) IsLoaded() bool { return n.md != nil }

// Depth returns the level at which the node was first discovered.
func (n *Node) Depth() int { return n.depth }

// IsEvicted reports whether a conflict manager evicted the node.
func (n *Node) IsEvicted() bool { return n.evicted }

// EvictedBy returns the revisions that won against an evicted node.
func (n *Node) EvictedBy() []moduleid.ModuleRevisionID {
	out := make([]moduleid.ModuleRevisionID, 0, len(n.evictedBy))
	for _, h := range n.evictedBy {
		out = append(out, n.g.nodes[h].resolved)
	}
	return out
}

// EvictionManager returns the name of the manager that evicted the node.
func (n *Node) EvictionManager() string { return n.evictionManager }

// Problems returns the recoverable failures recorded on the node.
func (n *Node) Problems() []*NodeError { return slices.Clone(n.problems) }

// Problem joins the recorded failures, or returns nil.
func (n *Node) Problem() error {
	errs := make([]error, 0, len(n.problems))
	for _, p := range n.problems {
		errs = append(errs, p)
	}
	return errors.Join(errs...)
}

// Configurations returns the configurations of the node used while resolving
// rootConf.
func (n *Node) Configurations(rootConf string) []string {
	return n.required[rootConf].list()
}

// IsOptional reports whether every edge leading to the node is optional.
func (n *Node) IsOptional() bool {
	if len(n.callers) == 0 {
		return false
	}
	for _, c := range n.callers {
		if !c.dd.Optional {
			return false
		}
	}
	return true
}

// Callers returns the edges leading to the node.
func (n *Node) Callers() []Caller {
	out := make([]Caller, 0, len(n.callers))
	for _, c := range n.callers {
		out = append(out, Caller{
			Parent:     n.g.node(c.parent).resolved,
			Dependency: c.dd,
			ParentConf: c.parentConf,
			RootConf:   c.rootConf,
		})
	}
	return out
}

// Dependencies returns the nodes this node depends on, in declaration order.
// Evicted dependencies are included.
func (n *Node) Dependencies() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, h := range n.children {
		out = append(out, n.g.node(h))
	}
	return out
}

// String returns the resolved revision.
func (n *Node) String() string { return n.resolved.String() }
