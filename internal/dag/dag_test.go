// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

type edge struct{ from, to string }

func build(nodes []string, edges ...edge) *Graph {
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		g.AddEdge(e.from, e.to)
	}
	return g
}

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []string
		edges []edge
		want  []string
	}{
		{"empty", nil, nil, nil},
		{"single", []string{"A"}, nil, []string{"A"}},
		{"chain", nil, []edge{{"A", "B"}, {"B", "C"}}, []string{"A", "B", "C"}},
		{"diamond", nil, []edge{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}}, []string{"A", "B", "C", "D"}},
		{"duplicate_edges", nil, []edge{{"A", "B"}, {"A", "B"}}, []string{"A", "B"}},
		{"disconnected", []string{"C", "D"}, []edge{{"A", "B"}}, []string{"C", "D", "A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := build(tt.nodes, tt.edges...).TopologicalSort()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("TopologicalSort() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopologicalSort_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		edges   []edge
		minSize int
	}{
		{"self_loop", []edge{{"A", "A"}}, 1},
		{"two_nodes", []edge{{"A", "B"}, {"B", "A"}}, 2},
		{"three_nodes", []edge{{"A", "B"}, {"B", "C"}, {"C", "A"}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := build(nil, tt.edges...).TopologicalSort()
			var cycleErr *CycleError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("expected *CycleError, got %T: %v", err, err)
			}
			if len(cycleErr.Cycle) < tt.minSize {
				t.Errorf("expected at least %d nodes in cycle, got %v", tt.minSize, cycleErr.Cycle)
			}
		})
	}
}

func TestDepthFirstOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []string
		edges []edge
		want  []string
	}{
		{"empty", nil, nil, nil},
		{"unconstrained_keeps_insertion_order", []string{"C", "A", "B"}, nil, []string{"C", "A", "B"}},
		{"dependency_pulled_forward", []string{"app", "util", "lib"}, []edge{{"lib", "app"}}, []string{"lib", "app", "util"}},
		{"transitive", []string{"app", "lib", "base"}, []edge{{"lib", "app"}, {"base", "lib"}}, []string{"base", "lib", "app"}},
		{"diamond", []string{"app", "left", "right", "base"}, []edge{
			{"left", "app"}, {"right", "app"}, {"base", "left"}, {"base", "right"},
		}, []string{"base", "left", "right", "app"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := build(tt.nodes, tt.edges...).DepthFirstOrder(nil)
			if !slices.Equal(got, tt.want) {
				t.Errorf("DepthFirstOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDepthFirstOrder_BackEdges(t *testing.T) {
	t.Parallel()

	// x depends on y and y depends on x.
	g := build([]string{"x", "y"}, edge{"y", "x"}, edge{"x", "y"})
	var cycles [][]string
	got := g.DepthFirstOrder(func(c []string) { cycles = append(cycles, c) })

	if !slices.Equal(got, []string{"y", "x"}) {
		t.Errorf("DepthFirstOrder() = %v, want [y x]", got)
	}
	if len(cycles) != 1 {
		t.Fatalf("reported %d cycles, want 1: %v", len(cycles), cycles)
	}
	if want := []string{"x", "y", "x"}; !slices.Equal(cycles[0], want) {
		t.Errorf("cycle = %v, want %v", cycles[0], want)
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"A", "B", "C"}}
	expected := "dependency cycle detected: A -> B -> C"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
