// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
)

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	WriteFiles(t, dir, map[string]string{
		"a.txt":       "a",
		"nested/b.go": "b",
	})
	for rel, want := range map[string]string{"a.txt": "a", "nested/b.go": "b"} {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", rel, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", rel, data, want)
		}
	}
}

func TestWriteDescriptor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	md := descriptor.New(moduleid.NewRevisionID("acme", "core", "1.0"))
	md.Configurations = []descriptor.Configuration{{Name: "default"}}
	md.Artifacts = []moduleid.Artifact{{Revision: md.ID, Name: "core", Type: "jar", Ext: "jar"}}
	md.Dependencies = []*descriptor.DependencyDescriptor{
		descriptor.NewDependency(moduleid.NewRevisionID("acme", "util", "[1.0,2.0)"), "default->default"),
	}

	path := WriteDescriptor(t, root, md, "core.jar")
	if want := filepath.Join(root, "acme", "core", "1.0", descriptor.FileName); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "core.jar")); err != nil {
		t.Errorf("artifact not written: %v", err)
	}

	back, err := descriptor.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}
	if back.ID.String() != md.ID.String() {
		t.Errorf("ID = %s, want %s", back.ID, md.ID)
	}
	if len(back.Dependencies) != 1 || back.Dependencies[0].ID.Revision != "[1.0,2.0)" {
		t.Errorf("Dependencies = %v", back.Dependencies)
	}
	if names := back.ConfigurationNames(); len(names) != 1 || names[0] != "default" {
		t.Errorf("ConfigurationNames() = %v", names)
	}
}
