// SPDX-License-Identifier: MPL-2.0

package sortengine

import (
	"errors"
	"slices"
	"testing"

	"github.com/invowk/trellis/pkg/circular"
	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
)

func md(id string, deps ...string) *descriptor.ModuleDescriptor {
	m := descriptor.New(moduleid.MustParse(id))
	for _, d := range deps {
		m.Dependencies = append(m.Dependencies, descriptor.NewDependency(moduleid.MustParse(d), ""))
	}
	return m
}

func names(mds []*descriptor.ModuleDescriptor) []string {
	out := make([]string, 0, len(mds))
	for _, m := range mds {
		out = append(out, m.ID.Name())
	}
	return out
}

func TestSort_Generic(t *testing.T) {
	t.Parallel()

	deps := map[string][]string{"app": {"lib", "missing"}, "lib": {"base"}}
	got, err := Sort([]string{"app", "tool", "lib", "base", "app"},
		func(s string) string { return s },
		func(s string) []string { return deps[s] },
		nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"base", "lib", "app", "tool"}; !slices.Equal(got, want) {
		t.Errorf("Sort() = %v, want %v", got, want)
	}
}

func TestSortModuleDescriptors(t *testing.T) {
	t.Parallel()

	mds := []*descriptor.ModuleDescriptor{
		md("org#app;1.0", "org#lib;[1.0,2.0)", "org#util;1.0"),
		md("org#util;1.0"),
		md("org#lib;1.5", "org#base;latest.integration"),
		md("org#base;3.0"),
	}
	got, err := SortModuleDescriptors(mds, Options{})
	if err != nil {
		t.Fatalf("SortModuleDescriptors() error = %v", err)
	}
	want := []string{"base", "lib", "util", "app"}
	if !slices.Equal(names(got), want) {
		t.Errorf("SortModuleDescriptors() = %v, want %v", names(got), want)
	}
}

func TestSortModuleDescriptors_NonMatching(t *testing.T) {
	t.Parallel()

	mds := []*descriptor.ModuleDescriptor{
		md("org#app;1.0", "org#lib;2.0"),
		md("org#lib;1.0"),
	}

	for _, strategy := range []NonMatchingStrategy{NonMatchingWarn, NonMatchingIgnore} {
		got, err := SortModuleDescriptors(mds, Options{NonMatching: strategy})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", strategy, err)
		}
		if want := []string{"app", "lib"}; !slices.Equal(names(got), want) {
			t.Errorf("%s: order = %v, want %v (non matching dependency must not constrain)", strategy, names(got), want)
		}
	}

	_, err := SortModuleDescriptors(mds, Options{NonMatching: NonMatchingError})
	var nmErr *NonMatchingVersionError
	if !errors.As(err, &nmErr) || !errors.Is(err, ErrNonMatchingVersion) {
		t.Fatalf("error = %v, want NonMatchingVersionError", err)
	}
	if nmErr.Found.Revision != "1.0" || nmErr.Asked.Revision != "2.0" {
		t.Errorf("error fields = %+v", nmErr)
	}
}

func TestSortModuleDescriptors_Cycles(t *testing.T) {
	t.Parallel()

	mds := []*descriptor.ModuleDescriptor{
		md("org#x;1.0", "org#y;1.0"),
		md("org#y;1.0", "org#x;1.0"),
	}

	got, err := SortModuleDescriptors(mds, Options{})
	if err != nil {
		t.Fatalf("warn strategy returned error: %v", err)
	}
	if want := []string{"y", "x"}; !slices.Equal(names(got), want) {
		t.Errorf("order = %v, want %v", names(got), want)
	}

	_, err = SortModuleDescriptors(mds, Options{Circular: circular.Error})
	if !errors.Is(err, circular.ErrCircularDependency) {
		t.Errorf("error strategy: error = %v, want ErrCircularDependency", err)
	}
}

func TestParseNonMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    NonMatchingStrategy
		wantErr bool
	}{
		{"", NonMatchingWarn, false},
		{"warn", NonMatchingWarn, false},
		{"error", NonMatchingError, false},
		{"ignore", NonMatchingIgnore, false},
		{"fail", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseNonMatching(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownNonMatchingStrategy) {
					t.Errorf("error = %v, want ErrUnknownNonMatchingStrategy", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseNonMatching(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}
