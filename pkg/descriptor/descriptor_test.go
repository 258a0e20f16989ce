// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/invowk/trellis/pkg/moduleid"
)

const sampleModule = `
organisation: "acme"
module:       "app"
revision:     "1.2.0"
status:       "release"
publication:  "2024-03-01T10:00:00Z"
license:      "MPL-2.0"
default_conf_mapping: "compile->compile(default)"

configurations: [
	{name: "compile"},
	{name: "runtime", extends: ["compile"]},
	{name: "test", visibility: "private", extends: ["runtime"]},
]

artifacts: [
	{name: "app", confs: ["compile"]},
	{name: "app-sources", type: "source", ext: "zip", confs: ["runtime"]},
]

dependencies: [
	{organisation: "acme", module: "core", revision: "[1.0,2.0)", conf: "compile->default"},
	{organisation: "acme", module: "log", revision: "2.1", transitive: false, conf: "runtime->*"},
	{
		organisation: "acme"
		module:       "testkit"
		revision:     "latest.integration"
		conf:         "test->default"
		changing:     true
		excludes: [{module: "legacy"}]
	},
]

conflicts: [
	{module: "core", manager: "strict"},
	{organisation: "acme", module: "lo*", matcher: "glob", revisions: ["2.1"]},
]

excludes: [{organisation: "evil"}]
`

func TestParse(t *testing.T) {
	t.Parallel()

	md, err := Parse([]byte(sampleModule), "module.cue")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if md.ID.String() != "acme#app;1.2.0" || md.Status != "release" {
		t.Errorf("unexpected id/status: %s %s", md.ID, md.Status)
	}
	if !md.PublicationDate.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PublicationDate = %v", md.PublicationDate)
	}
	if got := md.PublicConfigurations(); !slices.Equal(got, []string{"compile", "runtime"}) {
		t.Errorf("PublicConfigurations() = %v", got)
	}
	if got := md.ExpandConfigurations("test"); !slices.Equal(got, []string{"test", "runtime", "compile"}) {
		t.Errorf("ExpandConfigurations(test) = %v", got)
	}
	if len(md.Dependencies) != 3 {
		t.Fatalf("expected 3 dependencies, got %d", len(md.Dependencies))
	}
	core, log, kit := md.Dependencies[0], md.Dependencies[1], md.Dependencies[2]
	if !core.Transitive || core.Force || log.Transitive || !kit.Changing {
		t.Errorf("dependency flags not decoded: core=%+v log=%+v kit=%+v", core, log, kit)
	}
	if !kit.ExcludesModule(moduleid.NewModuleID("other", "legacy"), "test") {
		t.Error("testkit should exclude legacy")
	}
	art := md.ArtifactsFor("runtime")
	if len(art) != 1 || art[0].FileName() != "app-sources.zip" {
		t.Errorf("ArtifactsFor(runtime) = %v", art)
	}
	if a := md.ArtifactsFor("compile"); len(a) != 1 || a[0].Ext != "jar" {
		t.Errorf("artifact ext should default to its type: %v", a)
	}
	if len(md.Conflicts) != 2 || md.Conflicts[0].Manager != "strict" || !md.Conflicts[1].Matcher.Matches(moduleid.NewModuleID("acme", "log")) {
		t.Errorf("conflicts not decoded: %+v", md.Conflicts)
	}
	if !md.IsExcluded(moduleid.NewModuleID("evil", "x"), "compile") {
		t.Error("module-level exclude should match evil#x")
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"missing_revision", `organisation: "a", module: "b"`},
		{"bad_visibility", `organisation: "a", module: "b", revision: "1", configurations: [{name: "c", visibility: "hidden"}]`},
		{"bad_mapping", `organisation: "a", module: "b", revision: "1", dependencies: [{organisation: "x", module: "y", revision: "1", conf: "a->b->c"}]`},
		{"unknown_master_conf", `organisation: "a", module: "b", revision: "1", dependencies: [{organisation: "x", module: "y", revision: "1", conf: "nope->default"}]`},
		{"unknown_extends", `organisation: "a", module: "b", revision: "1", configurations: [{name: "c", extends: ["d"]}]`},
		{"duplicate_conf", `organisation: "a", module: "b", revision: "1", configurations: [{name: "c"}, {name: "c"}]`},
		{"bad_name", `organisation: "a#b", module: "b", revision: "1"`},
		{"unknown_field", `organisation: "a", module: "b", revision: "1", colour: "red"`},
		{"conflict_without_manager", `organisation: "a", module: "b", revision: "1", conflicts: [{module: "x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse([]byte(tt.doc), "module.cue"); err == nil {
				t.Errorf("Parse() should fail for %s", tt.name)
			}
		})
	}
}

func TestParse_ValidateWrapsSentinels(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`organisation: "a", module: "b", revision: "1", dependencies: [{organisation: "x", module: "y", revision: "1", conf: "nope->default"}]`), "module.cue")
	if !errors.Is(err, ErrInvalidDescriptor) || !errors.Is(err, ErrConfigurationNotFound) {
		t.Errorf("error = %v, want ErrInvalidDescriptor and ErrConfigurationNotFound", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	md, err := Parse([]byte(sampleModule), "module.cue")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	back, err := ToFile(md).Descriptor()
	if err != nil {
		t.Fatalf("Descriptor() error: %v", err)
	}
	if !back.ID.Equal(md.ID) || !back.PublicationDate.Equal(md.PublicationDate) {
		t.Errorf("round trip changed id/date: %v %v", back.ID, back.PublicationDate)
	}
	if len(back.Dependencies) != len(md.Dependencies) || back.Dependencies[1].Transitive {
		t.Errorf("round trip changed dependencies: %+v", back.Dependencies)
	}
	if back.Conflicts[1].Revisions[0] != "2.1" || back.Excludes[0].Organisation != "evil" {
		t.Errorf("round trip changed conflicts/excludes")
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(sampleModule), 0o644); err != nil {
		t.Fatal(err)
	}
	md, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}
	if md.ID.Name() != "app" {
		t.Errorf("ParseFile() id = %v", md.ID)
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.cue")); err == nil {
		t.Error("ParseFile() should fail for a missing file")
	}
}

func TestExpandConfigurations_CycleGuard(t *testing.T) {
	t.Parallel()

	md := New(moduleid.NewRevisionID("o", "m", "1"))
	md.Configurations = []Configuration{
		{Name: "a", Extends: []string{"b"}},
		{Name: "b", Extends: []string{"a"}},
	}
	if got := md.ExpandConfigurations("a"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("ExpandConfigurations(a) = %v", got)
	}
	if got := New(moduleid.NewRevisionID("o", "m", "1")).ConfigurationNames(); !slices.Equal(got, []string{DefaultConfName}) {
		t.Errorf("implicit configurations = %v", got)
	}
}

func TestDependency_AcceptsArtifact(t *testing.T) {
	t.Parallel()

	id := moduleid.NewRevisionID("org", "dep", "1.0")
	jar := moduleid.Artifact{Revision: id, Name: "dep", Type: "jar", Ext: "jar"}
	src := moduleid.Artifact{Revision: id, Name: "dep-sources", Type: "source", Ext: "zip"}

	dd := NewDependency(id, "")
	if !dd.AcceptsArtifact(jar, "compile") || !dd.AcceptsArtifact(src, "compile") {
		t.Error("no rules should accept everything")
	}

	dd.Includes = []Rule{{Type: "jar"}}
	if !dd.AcceptsArtifact(jar, "compile") || dd.AcceptsArtifact(src, "compile") {
		t.Error("include rule should keep only jars")
	}

	dd.Includes = nil
	dd.Excludes = []Rule{{Artifact: "*-sources", Matcher: moduleid.MatchGlob, Confs: []string{"runtime"}}}
	if !dd.AcceptsArtifact(src, "compile") || dd.AcceptsArtifact(src, "runtime") {
		t.Error("exclude rule should only apply in runtime")
	}
	if dd.ExcludesModule(id.Module, "runtime") {
		t.Error("an artifact rule must not exclude the module")
	}
}
