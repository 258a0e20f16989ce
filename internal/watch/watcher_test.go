// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

// recorder collects callback invocations.
type recorder struct {
	mu    sync.Mutex
	calls [][]string
	fired chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) onChange(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, changed)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// start runs w until the test ends.
func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(Config{Roots: []string{dir}, Debounce: 100 * time.Millisecond, OnChange: rec.onChange, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	start(t, w)

	for _, name := range []string{"a.cue", "b.cue", "c.cue"} {
		writeFile(t, filepath.Join(dir, name))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-rec.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	time.Sleep(250 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("callbacks = %d, want 1 (%v)", len(calls), calls)
	}
	for _, name := range []string{"a.cue", "b.cue", "c.cue"} {
		if !slices.Contains(calls[0], filepath.Join(dir, name)) {
			t.Errorf("changed = %v, want %s", calls[0], name)
		}
	}
	if !slices.IsSorted(calls[0]) {
		t.Errorf("changed = %v, want sorted", calls[0])
	}
}

func TestWatcher_IgnoresAndSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		t.Fatal(err)
	}
	rec := newRecorder()
	w, err := New(Config{
		Roots:    []string{filepath.Join(dir, "module.cue"), dir},
		Ignore:   []string{"**/*.log"},
		SkipDirs: []string{cacheDir},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
		Stderr:   &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	start(t, w)

	writeFile(t, filepath.Join(dir, "build.log"))
	writeFile(t, filepath.Join(dir, "module.cue.swp"))
	writeFile(t, filepath.Join(cacheDir, "report.toml"))

	select {
	case <-rec.fired:
		t.Fatalf("ignored changes fired the callback: %v", rec.snapshot())
	case <-time.After(300 * time.Millisecond):
	}

	writeFile(t, filepath.Join(dir, "module.cue"))
	select {
	case <-rec.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	if calls := rec.snapshot(); !slices.Equal(calls[0], []string{filepath.Join(dir, "module.cue")}) {
		t.Errorf("changed = %v", calls[0])
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	rec := newRecorder()
	w, err := New(Config{Roots: []string{repo}, Debounce: 50 * time.Millisecond, OnChange: rec.onChange, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	start(t, w)

	revDir := filepath.Join(repo, "2.0")
	if err := os.Mkdir(revDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Wait for the directory creation to be reported and watched.
	select {
	case <-rec.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for directory creation")
	}

	writeFile(t, filepath.Join(revDir, "module.cue"))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-rec.fired:
			for _, call := range rec.snapshot() {
				if slices.Contains(call, filepath.Join(revDir, "module.cue")) {
					return
				}
			}
		case <-deadline:
			t.Fatalf("file in new directory not reported: %v", rec.snapshot())
		}
	}
}

func TestWatcher_Errors(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Error("New() without roots succeeded")
	}
	if _, err := New(Config{Roots: []string{t.TempDir()}, Ignore: []string{"["}}); err == nil {
		t.Error("New() accepted an invalid pattern")
	}

	var stderr bytes.Buffer
	w, err := New(Config{Roots: []string{filepath.Join(t.TempDir(), "missing")}, Stderr: &stderr})
	if err != nil {
		t.Fatalf("New() with a missing root error = %v", err)
	}
	if stderr.Len() == 0 {
		t.Error("missing root not reported")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	repo := filepath.FromSlash("/repo")
	w := &Watcher{ignores: DefaultIgnores(), roots: []string{repo}}
	tests := []struct {
		path string
		want bool
	}{
		{"/repo/.git", true},
		{"/repo/.git/objects/ab", true},
		{"/repo/acme/core/1.0/module.cue.swp", true},
		{"/repo/module.cue~", true},
		{"/cache/report.toml.123.tmp", true},
		{"/repo/acme/core/1.0/module.cue", false},
		{"/repo/acme/core/1.0/core.jar", false},
		{"/repo/acme/git/1.0/module.cue", false},
	}
	for _, tt := range tests {
		if got := w.isIgnored(filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("isIgnored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	ignores := DefaultIgnores()
	ignores[0] = "changed"
	if DefaultIgnores()[0] == "changed" {
		t.Error("DefaultIgnores() exposes the package slice")
	}
}

func TestWatcher_PathPatterns(t *testing.T) {
	t.Parallel()

	repo := filepath.FromSlash("/repo")
	cache := filepath.FromSlash("/repo/.trellis")
	w := &Watcher{
		ignores: []string{"acme/**/*.jar", "*/build/**"},
		roots:   []string{repo, filepath.FromSlash("/repo/vendor")},
		skip:    []string{cache},
	}
	tests := []struct {
		path    string
		ignored bool
		skipped bool
	}{
		{"/repo/acme/core/1.0/core.jar", true, false},
		{"/repo/other/core/1.0/core.jar", false, false},
		{"/repo/acme/core/1.0/module.cue", false, false},
		// Relative to the longest root: "build/out" does not match "*/build/**".
		{"/repo/vendor/build/out", false, false},
		{"/repo/other/build/out", true, false},
		{"/repo/.trellis", false, true},
		{"/repo/.trellis/reports/acme.toml", false, true},
		{"/repo/.trellis-old/module.cue", false, false},
	}
	for _, tt := range tests {
		path := filepath.FromSlash(tt.path)
		if got := w.isIgnored(path); got != tt.ignored {
			t.Errorf("isIgnored(%q) = %v, want %v", tt.path, got, tt.ignored)
		}
		if got := w.isSkipped(path); got != tt.skipped {
			t.Errorf("isSkipped(%q) = %v, want %v", tt.path, got, tt.skipped)
		}
	}
}
