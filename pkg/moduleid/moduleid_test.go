// SPDX-License-Identifier: MPL-2.0

package moduleid

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    ModuleRevisionID
		wantErr bool
	}{
		{"simple", "org#mod;1.0", NewRevisionID("org", "mod", "1.0"), false},
		{"with_branch", "org#mod#trunk;2.0", ModuleRevisionID{Module: NewModuleID("org", "mod"), Branch: "trunk", Revision: "2.0"}, false},
		{"dynamic", "org#mod;[1.0,2.0)", NewRevisionID("org", "mod", "[1.0,2.0)"), false},
		{"missing_revision", "org#mod", ModuleRevisionID{}, true},
		{"empty_revision", "org#mod;", ModuleRevisionID{}, true},
		{"missing_name", "org;1.0", ModuleRevisionID{}, true},
		{"empty_org", "#mod;1.0", ModuleRevisionID{}, true},
		{"too_many_parts", "a#b#c#d;1.0", ModuleRevisionID{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidModuleRevisionID) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidModuleRevisionID", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestModuleRevisionID_KeyCoversAllFields(t *testing.T) {
	t.Parallel()

	base := NewRevisionID("org", "mod", "1.0")
	variants := []ModuleRevisionID{
		base.WithRevision("1.1"),
		{Module: base.Module, Branch: "b", Revision: "1.0"},
		base.WithAttribute("classifier", "src"),
		NewRevisionID("org", "other", "1.0"),
		NewRevisionID("other", "mod", "1.0"),
	}
	for _, v := range variants {
		if v.Equal(base) {
			t.Errorf("%v should differ from %v", v, base)
		}
	}
	if !base.Equal(NewRevisionID("org", "mod", "1.0")) {
		t.Error("identical ids should be equal")
	}
}

func TestModuleRevisionID_AttributesAreCopied(t *testing.T) {
	t.Parallel()

	a := NewRevisionID("org", "mod", "1.0").WithAttribute("k", "v1")
	b := a.WithAttribute("k", "v2")
	c := a.WithRevision("2.0")

	if v, _ := a.Attribute("k"); v != "v1" {
		t.Errorf("original attribute mutated: %q", v)
	}
	if v, _ := b.Attribute("k"); v != "v2" {
		t.Errorf("b attribute = %q, want v2", v)
	}
	if len(b.Extra) != 1 {
		t.Errorf("replacing an attribute should not append, got %v", b.Extra)
	}
	if v, ok := c.Attribute("k"); !ok || v != "v1" {
		t.Errorf("WithRevision dropped attributes: %v", c.Extra)
	}
	if _, ok := a.Attribute("missing"); ok {
		t.Error("missing attribute should not be found")
	}
}

func TestModuleID_CompareAndString(t *testing.T) {
	t.Parallel()

	a := NewModuleID("a", "z")
	b := NewModuleID("b", "a")
	if a.Compare(b) >= 0 || b.Compare(a) <= 0 || a.Compare(a) != 0 {
		t.Error("ModuleID.Compare should order by organisation first")
	}
	if a.String() != "a#z" {
		t.Errorf("String() = %q", a.String())
	}
	if !(ModuleID{}).IsZero() || a.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestArtifact(t *testing.T) {
	t.Parallel()

	art := Artifact{Revision: NewRevisionID("org", "mod", "1.0"), Name: "mod", Type: "jar", Ext: "jar", Confs: []string{"runtime"}}
	if art.FileName() != "mod.jar" {
		t.Errorf("FileName() = %q", art.FileName())
	}
	if !art.InConf("runtime") || art.InConf("test") {
		t.Error("InConf mismatch for explicit confs")
	}
	if art.ID().String() != "org#mod!mod.jar(jar)" {
		t.Errorf("ID().String() = %q", art.ID().String())
	}
	unscoped := Artifact{Name: "readme"}
	if !unscoped.InConf("anything") || unscoped.FileName() != "readme" {
		t.Error("artifact without confs should belong to every conf")
	}
}
