// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"slices"
	"testing"
	"time"

	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/resolver"
	"github.com/invowk/trellis/pkg/settings"
	"github.com/invowk/trellis/pkg/version"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mod(id string, deps ...*descriptor.DependencyDescriptor) *descriptor.ModuleDescriptor {
	md := descriptor.New(moduleid.MustParse(id))
	md.Status = version.StatusRelease
	md.PublicationDate = epoch
	md.Artifacts = []moduleid.Artifact{{Revision: md.ID, Name: md.ID.Name(), Type: "jar", Ext: "jar"}}
	md.Dependencies = deps
	return md
}

func published(md *descriptor.ModuleDescriptor, at time.Time, status string) *descriptor.ModuleDescriptor {
	md.PublicationDate = at
	md.Status = status
	return md
}

func dep(id string) *descriptor.DependencyDescriptor {
	return descriptor.NewDependency(moduleid.MustParse(id), "")
}

func depConf(id, conf string) *descriptor.DependencyDescriptor {
	return descriptor.NewDependency(moduleid.MustParse(id), conf)
}

func newEngine(t *testing.T, repo resolver.DependencyResolver, configure ...func(*settings.Builder)) *Engine {
	t.Helper()
	b := settings.NewBuilder().AddResolver(repo)
	for _, c := range configure {
		c(b)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	return NewEngine(s)
}

func selectedIDs(rep *Report) []string {
	out := make([]string, 0, len(rep.Dependencies))
	for _, n := range rep.Dependencies {
		out = append(out, n.ResolvedID().String())
	}
	slices.Sort(out)
	return out
}

func evictedIDs(rep *Report) []string {
	out := make([]string, 0, len(rep.Evicted))
	for _, n := range rep.Evicted {
		out = append(out, n.ResolvedID().String())
	}
	slices.Sort(out)
	return out
}

func assertSelected(t *testing.T, rep *Report, want ...string) {
	t.Helper()
	slices.Sort(want)
	if got := selectedIDs(rep); !slices.Equal(got, want) {
		t.Errorf("selected = %v, want %v", got, want)
	}
}

// assertOneSelectedPerModule checks that no two selected nodes share a module.
func assertOneSelectedPerModule(t *testing.T, rep *Report) {
	t.Helper()
	seen := make(map[moduleid.ModuleID]bool)
	for _, n := range rep.Dependencies {
		if seen[n.ModuleID()] {
			t.Errorf("module %s selected more than once", n.ModuleID())
		}
		seen[n.ModuleID()] = true
		if n.IsEvicted() {
			t.Errorf("selected node %s is evicted", n)
		}
	}
}

// assertSorted checks that every node comes after its selected dependencies.
func assertSorted(t *testing.T, sorted []*Node) {
	t.Helper()
	index := make(map[*Node]int, len(sorted))
	for i, n := range sorted {
		index[n] = i
	}
	for _, n := range sorted {
		for _, d := range n.Dependencies() {
			if d.IsEvicted() {
				continue
			}
			if i, ok := index[d]; ok && i > index[n] {
				t.Errorf("%s sorted before its dependency %s", n, d)
			}
		}
	}
}
