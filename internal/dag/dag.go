// SPDX-License-Identifier: MPL-2.0

// Package dag provides the ordering primitives behind module sorting and
// resolver chain construction: a directed graph keyed by strings that
// remembers insertion order, a Kahn topological sort that rejects cycles, and
// a depth-first ordering that skips back edges and reports them.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the nodes that form the cycle (not necessarily all of them,
		// but enough to identify the problem).
		Cycle []string
	}

	// Graph is a directed graph. An edge from A to B means A must be ordered
	// before B (B depends on A).
	Graph struct {
		// successors maps each node to the nodes that must follow it.
		successors map[string][]string
		// predecessors maps each node to the nodes that must precede it, in edge
		// insertion order.
		predecessors map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes   []string
		nodeSet map[string]bool
	}

	// BackEdgeFunc receives the cycle closed by a skipped edge, starting and
	// ending with the same node.
	BackEdgeFunc func(cycle []string)
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		successors:   make(map[string][]string),
		predecessors: make(map[string][]string),
		nodeSet:      make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" is ordered before
// "to". Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.successors[from] = append(g.successors[from], to)
	g.predecessors[to] = append(g.predecessors[to], from)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []string { return slices.Clone(g.nodes) }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns a valid order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// The returned order is deterministic: nodes at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.successors {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	// Seed the queue with nodes that have no incoming edges, in insertion order.
	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.successors[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		// Remaining nodes with non-zero in-degree form the cycle.
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}

// DepthFirstOrder walks the nodes in insertion order and emits each one after
// all of its predecessors (depth-first post-order). Nodes without constraints
// between them keep their insertion order. An edge leading back to a node still
// being visited is skipped and reported to onBackEdge, which may be nil.
func (g *Graph) DepthFirstOrder(onBackEdge BackEdgeFunc) []string {
	if len(g.nodes) == 0 {
		return nil
	}
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.nodes))
	result := make([]string, 0, len(g.nodes))
	var stack []string

	var visit func(n string)
	visit = func(n string) {
		state[n] = visiting
		stack = append(stack, n)
		for _, p := range g.predecessors[n] {
			switch state[p] {
			case unvisited:
				visit(p)
			case visiting:
				if onBackEdge != nil {
					onBackEdge(cycleFrom(stack, p))
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		result = append(result, n)
	}

	for _, n := range g.nodes {
		if state[n] == unvisited {
			visit(n)
		}
	}
	return result
}

// cycleFrom returns the stack suffix starting at n, closed by n.
func cycleFrom(stack []string, n string) []string {
	i := slices.Index(stack, n)
	cycle := slices.Clone(stack[i:])
	return append(cycle, n)
}
