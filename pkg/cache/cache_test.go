// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/resolver"
	"github.com/invowk/trellis/pkg/version"
)

func module(id string, deps ...string) *descriptor.ModuleDescriptor {
	md := descriptor.New(moduleid.MustParse(id))
	md.Status = version.StatusRelease
	md.PublicationDate = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	md.Artifacts = []moduleid.Artifact{{Revision: md.ID, Name: md.ID.Name(), Type: "jar", Ext: "jar"}}
	for _, d := range deps {
		md.Dependencies = append(md.Dependencies, descriptor.NewDependency(moduleid.MustParse(d), ""))
	}
	return md
}

func TestDescriptorRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	md := module("org#app;1.0", "org#lib;2.0")
	md.Dependencies[0].Changing = true

	if err := m.SaveDescriptor(md); err != nil {
		t.Fatalf("SaveDescriptor() error = %v", err)
	}
	got, err := m.LoadDescriptor(md.ID)
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	if !got.ID.Equal(md.ID) {
		t.Errorf("ID = %s, want %s", got.ID, md.ID)
	}
	if !got.PublicationDate.Equal(md.PublicationDate) {
		t.Errorf("PublicationDate = %v, want %v", got.PublicationDate, md.PublicationDate)
	}
	if len(got.Dependencies) != 1 || !got.Dependencies[0].Changing || !got.Dependencies[0].Transitive {
		t.Errorf("Dependencies = %+v", got.Dependencies)
	}
	if len(got.Artifacts) != 1 || got.Artifacts[0].Name != "app" {
		t.Errorf("Artifacts = %+v", got.Artifacts)
	}
}

func TestLoadDescriptor_NotCached(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	_, err := m.LoadDescriptor(moduleid.MustParse("org#missing;1.0"))
	if !errors.Is(err, ErrNotCached) {
		t.Fatalf("error = %v, want ErrNotCached", err)
	}
}

func TestCachedRevisions(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	for _, id := range []string{"org#lib;1.0", "org#lib;2.0-rc1", "org#other;1.0"} {
		if err := m.SaveDescriptor(module(id)); err != nil {
			t.Fatal(err)
		}
	}
	revs, err := m.CachedRevisions(moduleid.NewModuleID("org", "lib"))
	if err != nil {
		t.Fatal(err)
	}
	slices.Sort(revs)
	if !slices.Equal(revs, []string{"1.0", "2.0-rc1"}) {
		t.Errorf("CachedRevisions() = %v", revs)
	}

	none, err := m.CachedRevisions(moduleid.NewModuleID("org", "nothing"))
	if err != nil || len(none) != 0 {
		t.Errorf("CachedRevisions(unknown) = %v, %v", none, err)
	}
}

func TestReportRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	rec := &ResolvedRecord{
		Root:         "org#app;1.0",
		Organisation: "org",
		Module:       "app",
		Confs:        []string{"default"},
		Fingerprint:  "abc",
		Generated:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Configurations: []ConfRecord{{
			Name:      "default",
			Modules:   []string{"org#lib;2.0"},
			Artifacts: []ArtifactRow{{Artifact: "org#lib!lib.jar(jar)", Status: "successful", LocalFile: "/tmp/lib.jar"}},
		}},
		Evicted: []EvictedEntry{{Module: "org#lib;1.0", EvictedBy: []string{"org#lib;2.0"}, Manager: "latest-revision"}},
	}
	if err := m.SaveReport(rec); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	got, err := m.LoadReport(moduleid.NewModuleID("org", "app"))
	if err != nil {
		t.Fatalf("LoadReport() error = %v", err)
	}
	if got.Root != rec.Root || got.Fingerprint != rec.Fingerprint || !got.Generated.Equal(rec.Generated) {
		t.Errorf("LoadReport() = %+v", got)
	}
	conf, ok := got.Conf("default")
	if !ok || !slices.Equal(conf.Modules, []string{"org#lib;2.0"}) || len(conf.Artifacts) != 1 {
		t.Errorf("Conf(default) = %+v, %v", conf, ok)
	}
	if len(got.Evicted) != 1 || got.Evicted[0].Manager != "latest-revision" {
		t.Errorf("Evicted = %+v", got.Evicted)
	}

	if _, err := m.LoadReport(moduleid.NewModuleID("org", "other")); !errors.Is(err, ErrNotCached) {
		t.Errorf("LoadReport(unknown) error = %v, want ErrNotCached", err)
	}
}

func TestIsUpToDate(t *testing.T) {
	t.Parallel()

	chain := version.DefaultChain(version.DefaultStatuses())
	static := module("org#app;1.0", "org#lib;2.0")
	dynamic := module("org#dyn;1.0", "org#lib;latest.integration")
	changing := module("org#chg;1.0", "org#lib;2.0")
	changing.Dependencies[0].Changing = true

	fp, err := Fingerprint(static, "default")
	if err != nil {
		t.Fatal(err)
	}

	m := NewManager(t.TempDir())
	for _, md := range []*descriptor.ModuleDescriptor{static, dynamic, changing} {
		rec := &ResolvedRecord{
			Root: md.ID.String(), Organisation: md.ID.Organisation(), Module: md.ID.Name(),
			Confs: []string{"default"}, Fingerprint: fp,
		}
		if err := m.SaveReport(rec); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name        string
		md          *descriptor.ModuleDescriptor
		confs       []string
		fingerprint string
		want        bool
	}{
		{"same_fingerprint", static, []string{"default"}, fp, true},
		{"other_fingerprint", static, []string{"default"}, "other", false},
		{"missing_conf", static, []string{"test"}, fp, false},
		{"dynamic_dependency", dynamic, []string{"default"}, fp, false},
		{"changing_dependency", changing, []string{"default"}, fp, false},
		{"no_record", module("org#fresh;1.0"), []string{"default"}, fp, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := m.IsUpToDate(tt.md, tt.confs, tt.fingerprint, chain); got != tt.want {
				t.Errorf("IsUpToDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a, _ := Fingerprint(module("org#app;1.0", "org#lib;1.0"), "default")
	b, _ := Fingerprint(module("org#app;1.0", "org#lib;1.0"), "default")
	c, _ := Fingerprint(module("org#app;1.0", "org#lib;2.0"), "default")
	d, _ := Fingerprint(module("org#app;1.0", "org#lib;1.0"), "default", "transitive=false")
	if a != b {
		t.Error("fingerprint is not stable")
	}
	if a == c || a == d {
		t.Error("fingerprint ignores descriptor or options")
	}
}

func TestResolver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := resolver.NewMemory("repo").Add(module("org#lib;1.0"), module("org#lib;2.0"))
	m := NewManager(t.TempDir())
	id := moduleid.MustParse("org#lib;1.0")

	r := m.Wrap(repo, false)
	res, err := r.FindModule(ctx, id)
	if err != nil {
		t.Fatalf("FindModule() error = %v", err)
	}
	_ = res.Close()
	res, err = r.FindModule(ctx, id)
	if err != nil {
		t.Fatalf("FindModule() second call error = %v", err)
	}
	_ = res.Close()
	if n := repo.Fetches(id); n != 1 {
		t.Errorf("repository fetches = %d, want 1", n)
	}

	res, err = r.FindChangingModule(ctx, id)
	if err != nil {
		t.Fatalf("FindChangingModule() error = %v", err)
	}
	_ = res.Close()
	if n := repo.Fetches(id); n != 2 {
		t.Errorf("repository fetches after changing lookup = %d, want 2", n)
	}

	offline := m.Wrap(repo, true)
	if _, err := offline.FindModule(ctx, moduleid.MustParse("org#lib;2.0")); !errors.Is(err, resolver.ErrModuleNotFound) {
		t.Errorf("cache-only FindModule(uncached) error = %v, want ErrModuleNotFound", err)
	}
	revs, err := offline.ListRevisions(ctx, id.Module)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 1 || revs[0].Revision != "1.0" || revs[0].PublicationDate.IsZero() {
		t.Errorf("cache-only ListRevisions() = %+v", revs)
	}
	if repo.OpenHandles() != 0 {
		t.Errorf("open handles = %d, want 0", repo.OpenHandles())
	}
}
