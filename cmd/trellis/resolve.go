// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/invowk/trellis/internal/issue"
	"github.com/invowk/trellis/internal/observability"
	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/resolve"
)

// errReportHasErrors is returned when a resolution completed with failures.
var errReportHasErrors = errors.New("resolution completed with errors")

type (
	// resolveFlags are the flags of `trellis resolve`.
	resolveFlags struct {
		confs        []string
		modules      []string
		types        []string
		validate     bool
		noTransitive bool
		cacheOnly    bool
		noCache      bool
		download     bool
		date         string
		refresh      bool
		jobs         int
		metricsFile  string
		watch        bool
	}

	// resolveTarget is a descriptor to resolve, or a module revision to
	// resolve through a synthetic caller.
	resolveTarget struct {
		md *descriptor.ModuleDescriptor
		id moduleid.ModuleRevisionID
	}

	// resolveOutcome is the result for one target. upToDate outcomes carry
	// no report.
	resolveOutcome struct {
		target   resolveTarget
		report   *resolve.Report
		upToDate bool
	}
)

func newResolveCommand(app *App) *cobra.Command {
	flags := &resolveFlags{}
	cmd := &cobra.Command{
		Use:   "resolve [module.cue...]",
		Short: "Resolve the dependencies of module descriptors",
		Long: `Resolve the dependencies of one or more module descriptors.

Each descriptor is resolved on its own; several descriptors are resolved
concurrently, at most --jobs at a time. The selected modules are printed in
dependency order followed by the evicted revisions.

Without arguments, ./module.cue is resolved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.handleError(runResolve(cmd.Context(), app, flags, args))
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&flags.confs, "conf", "c", []string{descriptor.AllConfs}, "root configurations to resolve")
	f.StringSliceVarP(&flags.modules, "module", "m", nil, `resolve a published module revision ("org#name;rev")`)
	f.StringSliceVar(&flags.types, "types", nil, "only report and download artifacts of these types")
	f.BoolVar(&flags.validate, "validate", true, "fail when a required module cannot be resolved")
	f.BoolVar(&flags.noTransitive, "no-transitive", false, "resolve direct dependencies only")
	f.BoolVar(&flags.cacheOnly, "cache-only", false, "serve descriptors from the cache only")
	f.BoolVar(&flags.noCache, "no-cache", false, "ignore the configured cache")
	f.BoolVarP(&flags.download, "download", "d", false, "download the artifacts of the selected modules")
	f.StringVar(&flags.date, "date", "", "ignore revisions published after this date (RFC 3339 or YYYY-MM-DD)")
	f.BoolVar(&flags.refresh, "refresh", false, "resolve even when the stored resolution is up to date")
	f.IntVarP(&flags.jobs, "jobs", "j", 4, "number of descriptors resolved concurrently")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	f.BoolVarP(&flags.watch, "watch", "w", false, "resolve again whenever a descriptor or a repository changes")
	return cmd
}

// options converts the flags into engine options.
func (f *resolveFlags) options(cacheEnabled bool) (resolve.Options, error) {
	opts := resolve.DefaultOptions()
	opts.Confs = f.confs
	opts.Validate = f.validate
	opts.Transitive = !f.noTransitive
	opts.UseCacheOnly = f.cacheOnly
	opts.Download = f.download
	opts.Refresh = f.refresh
	opts.OutputReport = cacheEnabled
	if len(f.types) > 0 {
		types := slices.Clone(f.types)
		opts.ArtifactFilter = func(a moduleid.Artifact) bool { return slices.Contains(types, a.Type) }
	}
	if f.date != "" {
		d, err := parseDate(f.date)
		if err != nil {
			return resolve.Options{}, err
		}
		opts.Date = d
	}
	return opts, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func runResolve(ctx context.Context, app *App, flags *resolveFlags, args []string) error {
	if flags.jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", flags.jobs)
	}
	env, err := app.loadEnvironment(ctx, flags.noCache)
	if err != nil {
		return err
	}
	opts, err := flags.options(env.settings.Cache() != nil)
	if err != nil {
		return err
	}

	targets, err := resolveTargets(app, flags, args)
	if err != nil {
		return err
	}
	if flags.watch {
		return watchResolve(ctx, app, env, flags, args, targets, opts)
	}

	failed, total, err := resolveAndPrint(ctx, app, env, targets, opts, flags.jobs)
	if err != nil {
		return err
	}
	writeMetrics(env, flags.metricsFile)

	if failed > 0 {
		fmt.Fprintln(app.stderr, ErrorStyle.Render(fmt.Sprintf("%d of %d resolution(s) completed with errors", failed, total)))
		return &ExitError{Code: ExitProblems, Err: errReportHasErrors}
	}
	return nil
}

// resolveAndPrint resolves targets and prints every outcome. It returns the
// number of reports with errors.
func resolveAndPrint(ctx context.Context, app *App, env *environment, targets []resolveTarget, opts resolve.Options, jobs int) (failed, total int, err error) {
	outcomes, err := resolveAll(ctx, env, targets, opts, jobs)
	if err != nil {
		return 0, 0, newServiceError(err, classifyError(err), "")
	}
	for _, o := range outcomes {
		if o.upToDate {
			fmt.Fprintf(app.stdout, "%s %s\n", TitleStyle.Render(o.target.md.ID.String()),
				SubtitleStyle.Render("up to date (use --refresh to resolve again)"))
			continue
		}
		writeReport(app.stdout, o.report)
		if o.report.HasError() {
			failed++
		}
	}
	return failed, len(outcomes), nil
}

func writeMetrics(env *environment, path string) {
	if path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, env.registry); err != nil {
		env.logger.Error("failed to write metrics", "path", path, "error", err)
	}
}

// resolveTargets collects the --module revisions and the descriptor
// arguments. Without either, ./module.cue is used.
func resolveTargets(app *App, flags *resolveFlags, args []string) ([]resolveTarget, error) {
	var targets []resolveTarget
	for _, m := range flags.modules {
		id, err := moduleid.Parse(m)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("parse --module").
				WithResource(m).
				WithSuggestion(`Use the "org#name;revision" notation, for example "acme#lib;1.+"`).
				Wrap(err).
				BuildError()
		}
		targets = append(targets, resolveTarget{id: id})
	}
	if len(args) == 0 && len(targets) > 0 {
		return targets, nil
	}
	mds, err := parseDescriptors(app.descriptorArgs(args))
	if err != nil {
		return nil, err
	}
	for _, md := range mds {
		targets = append(targets, resolveTarget{md: md})
	}
	return targets, nil
}

// resolveAll resolves every target with at most jobs resolutions in flight.
// The first fatal error cancels the others.
func resolveAll(ctx context.Context, env *environment, targets []resolveTarget, opts resolve.Options, jobs int) ([]resolveOutcome, error) {
	outcomes := make([]resolveOutcome, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, t := range targets {
		g.Go(func() error {
			outcomes[i].target = t
			if t.md == nil {
				rep, err := env.engine.ResolveModule(gctx, t.id, opts)
				if err != nil {
					return err
				}
				outcomes[i].report = rep
				return nil
			}
			if env.engine.UpToDate(t.md, opts) {
				env.logger.Debug("resolution is up to date", "module", t.md.ID.String())
				env.metrics.ObserveResolution(observability.OutcomeUpToDate, 0)
				outcomes[i].upToDate = true
				return nil
			}
			rep, err := env.engine.Resolve(gctx, t.md, opts)
			if err != nil {
				return err
			}
			outcomes[i].report = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// writeReport prints the selected modules in dependency order, the evicted
// revisions and the problems of a report.
func writeReport(w io.Writer, rep *resolve.Report) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(rep.Root.ID.String()),
		SubtitleStyle.Render(fmt.Sprintf("[%s] resolved in %s", strings.Join(rep.ConfigurationNames(), ", "), rep.Duration.Round(time.Millisecond))))

	var body strings.Builder
	sorted := rep.Sorted()
	if len(sorted) == 0 {
		body.WriteString(SubtitleStyle.Render("no dependencies") + "\n")
	}
	for _, n := range sorted {
		var confs []string
		for _, rc := range rep.ConfigurationNames() {
			if len(n.Configurations(rc)) > 0 {
				confs = append(confs, rc+"("+strings.Join(n.Configurations(rc), ",")+")")
			}
		}
		fmt.Fprintf(&body, "%s %s %s\n", SuccessStyle.Render("+"), CmdStyle.Render(n.ResolvedID().String()),
			SubtitleStyle.Render(strings.Join(confs, " ")))
	}
	for _, n := range rep.Evicted {
		by := make([]string, 0, len(n.EvictedBy()))
		for _, id := range n.EvictedBy() {
			by = append(by, id.String())
		}
		fmt.Fprintf(&body, "%s %s %s\n", WarningStyle.Render("-"), n.ResolvedID().String(),
			SubtitleStyle.Render(fmt.Sprintf("evicted by %s (%s)", strings.Join(by, ", "), n.EvictionManager())))
	}
	for _, c := range rep.Configurations {
		for _, a := range c.Artifacts {
			if a.Status == resolve.DownloadNo {
				continue
			}
			line := fmt.Sprintf("%s %s [%s]", c.Name, a.Artifact.String(), a.Status)
			if a.LocalFile != "" {
				line += " " + a.LocalFile
			}
			style := SubtitleStyle
			if a.Status == resolve.DownloadFailed {
				style = ErrorStyle
			}
			body.WriteString(style.Render(line) + "\n")
		}
	}
	for _, p := range rep.Problems {
		body.WriteString(WarningStyle.Render("! "+p.Error()) + "\n")
	}
	fmt.Fprint(w, sectionStyle.Render(strings.TrimSuffix(body.String(), "\n"))+"\n")
}
