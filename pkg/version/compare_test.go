// SPDX-License-Identifier: MPL-2.0

package version

import (
	"slices"
	"testing"
)

func TestCompareRevisions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.1", -1},
		{"1.2", "1.10", -1},
		{"1.10", "2.0-dev", -1},
		{"1.0-dev", "1.0-beta", -1},
		{"1.0-beta", "1.0", -1},
		{"1.0", "1.0.1", -1},
		{"1.0-rc1", "1.0-final", -1},
		{"1.0-beta", "1.0-rc", -1},
		{"1.0alpha", "1.0beta", -1},
		{"1.0a1", "1.0a2", -1},
		{"1_0", "1.1", -1},
		{"1.0+build", "1.0", -1},
		{"20231201", "3", 1},
		{"99999999999999999999", "100000000000000000000", -1},
		{"1.1", "1.a", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			t.Parallel()
			if got := sign(CompareRevisions(tt.a, tt.b)); got != tt.want {
				t.Errorf("CompareRevisions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := sign(CompareRevisions(tt.b, tt.a)); got != -tt.want {
				t.Errorf("CompareRevisions(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestCompareRevisions_TotalOrder(t *testing.T) {
	t.Parallel()

	want := []string{"1.0-dev", "1.0-beta", "1.0-rc1", "1.0", "1.0.1", "1.2", "1.10", "2.0-dev", "2.0"}
	got := []string{"2.0", "1.10", "1.0", "2.0-dev", "1.0-rc1", "1.0.1", "1.0-dev", "1.2", "1.0-beta"}
	slices.SortStableFunc(got, CompareRevisions)
	if !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
