// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when module descriptors or repository
// contents change.
//
// A Watcher monitors directory trees and invokes its callback once the tree has
// been quiet for the debounce period, with every path changed in between.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// defaultIgnores never trigger the callback: VCS metadata, editor swap files
// and the temporary files of atomic writes.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/*.tmp",
}

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are the directories watched recursively. A file root watches
		// its parent directory.
		Roots []string

		// Ignore are additional doublestar patterns (e.g. "**/*.log") matched
		// against paths relative to their root, merged with the built-in
		// ignores. An ignored directory is not descended into.
		Ignore []string

		// SkipDirs are directories never watched, with everything below them,
		// such as the descriptor cache that a resolution writes to.
		SkipDirs []string

		// Debounce is the quiet period after the last event before the callback
		// fires. Zero or negative values fall back to 500ms.
		Debounce time.Duration

		// OnChange receives the sorted absolute paths changed since the last
		// call. Calls never overlap.
		OnChange func(ctx context.Context, changed []string) error

		// Stderr receives non-fatal watcher diagnostics. Nil means os.Stderr.
		Stderr io.Writer
	}

	// Watcher monitors directory trees. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		roots    []string
		skip     []string
		stderr   io.Writer
		debounce time.Duration
		started  atomic.Bool
	}
)

// New creates a Watcher and registers every non-ignored directory under the
// roots.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Roots) == 0 {
		return nil, errors.New("watch: no roots to watch")
	}
	if err := validatePatterns(cfg.Ignore); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		stderr:   cfg.Stderr,
		debounce: cfg.Debounce,
	}
	if w.stderr == nil {
		w.stderr = os.Stderr
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	for _, d := range cfg.SkipDirs {
		if abs, err := filepath.Abs(d); err == nil {
			w.skip = append(w.skip, abs)
		}
	}

	for _, root := range cfg.Roots {
		if err := w.addRoot(root); err != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				fmt.Fprintf(w.stderr, "watch: close after init failure: %v\n", closeErr)
			}
			return nil, err
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may run after cancellation since it is scheduled by AfterFunc. A
	// busy callback postpones the pending set to the next quiet period.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				fmt.Fprintf(w.stderr, "watch: callback error: %v\n", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			fmt.Fprintf(w.stderr, "watch: close fsnotify: %v\n", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if w.isIgnored(evt.Name) || w.isSkipped(evt.Name) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			fmt.Fprintf(w.stderr, "watch: fsnotify error: %v\n", err)
		}
	}
}

// addRoot registers root and its sub-directories. Missing roots are reported
// and skipped: a repository may not exist yet.
func (w *Watcher) addRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("watch: resolve %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		fmt.Fprintf(w.stderr, "watch: skipping %q: %v\n", abs, err)
		return nil
	}
	if !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	if !slices.Contains(w.roots, abs) {
		w.roots = append(w.roots, abs)
	}

	walkErr := filepath.WalkDir(abs, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			fmt.Fprintf(w.stderr, "watch: skipping inaccessible path %q: %v\n", path, walkDirErr)
			return nil //nolint:nilerr // keep watching the rest of the tree
		}
		if !d.IsDir() {
			return nil
		}
		if path != abs && (w.isIgnored(path) || w.isSkipped(path)) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk %q: %w", abs, walkErr)
	}
	return nil
}

// maybeAddDir extends the watch to directories created after New, such as a
// newly published module revision.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.isSkipped(path) {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		fmt.Fprintf(w.stderr, "watch: add new directory %q: %v\n", path, addErr)
	}
}

// isIgnored reports whether path, relative to the root it lies under, matches
// an ignore pattern. Directories also match as rel + "/" so that "**/.git/**"
// covers the .git directory itself. Paths outside every root are matched by
// base name.
func (w *Watcher) isIgnored(path string) bool {
	rel := w.relative(path)
	for _, pat := range w.ignores {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pat, rel+"/"); err == nil && matched {
			return true
		}
	}
	return false
}

// relative returns path relative to the longest root containing it, with
// forward slashes.
func (w *Watcher) relative(path string) string {
	best := ""
	for _, root := range w.roots {
		if within(root, path) && len(root) > len(best) {
			best = root
		}
	}
	if best == "" {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(best, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// isSkipped reports whether path is a skipped directory or lies below one.
func (w *Watcher) isSkipped(path string) bool {
	for _, d := range w.skip {
		if path == d || within(d, path) {
			return true
		}
	}
	return false
}

func within(dir, path string) bool {
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid ignore pattern %q: %w", pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
