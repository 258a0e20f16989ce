// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/invowk/trellis/internal/watch"
	"github.com/invowk/trellis/pkg/resolve"
	"github.com/invowk/trellis/pkg/resolver"
	"github.com/invowk/trellis/pkg/settings"
)

// watchResolve resolves targets, then again after every change to the
// descriptors or the filesystem repositories, until ctx is cancelled.
// Descriptors are read again on every change; failures are printed and the
// watch goes on.
func watchResolve(ctx context.Context, app *App, env *environment, flags *resolveFlags, args []string, targets []resolveTarget, opts resolve.Options) error {
	run := func(ctx context.Context, targets []resolveTarget) {
		if _, _, err := resolveAndPrint(ctx, app, env, targets, opts, flags.jobs); err != nil {
			_ = app.handleError(err)
		}
		writeMetrics(env, flags.metricsFile)
	}
	run(ctx, targets)

	// Later runs must not be skipped: the repositories are not part of the
	// stored fingerprint.
	opts.Refresh = true

	var roots []string
	if slices.ContainsFunc(targets, func(t resolveTarget) bool { return t.md != nil }) {
		for _, p := range app.descriptorArgs(args) {
			roots = append(roots, filepath.Dir(p))
		}
	}
	roots = append(roots, repositoryRoots(env.settings)...)

	var skip, ignore []string
	if c := env.settings.Cache(); c != nil {
		skip = append(skip, c.Dir())
	}
	if flags.metricsFile != "" {
		// Covers the temporary file the metrics are renamed from.
		ignore = append(ignore, "**/"+filepath.Base(flags.metricsFile)+"*")
	}

	w, err := watch.New(watch.Config{
		Roots:    roots,
		SkipDirs: skip,
		Ignore:   ignore,
		Stderr:   app.stderr,
		OnChange: func(ctx context.Context, changed []string) error {
			env.logger.Debug("change detected", "paths", len(changed))
			next, err := resolveTargets(app, flags, args)
			if err != nil {
				_ = app.handleError(err)
				return nil
			}
			run(ctx, next)
			return nil
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(app.stderr, SubtitleStyle.Render("watching for changes, press Ctrl+C to stop"))
	return w.Run(ctx)
}

// repositoryRoots returns the directories of the filesystem resolvers,
// looking through chains.
func repositoryRoots(s *settings.Settings) []string {
	var roots []string
	seen := make(map[string]bool)
	var collect func(r resolver.DependencyResolver)
	collect = func(r resolver.DependencyResolver) {
		switch r := r.(type) {
		case *resolver.FileSystem:
			if !seen[r.Root()] {
				seen[r.Root()] = true
				roots = append(roots, r.Root())
			}
		case *resolver.Chain:
			for _, m := range r.Resolvers() {
				collect(m)
			}
		}
	}
	for _, name := range s.ResolverNames() {
		if r, ok := s.Resolver(name); ok {
			collect(r)
		}
	}
	return roots
}
